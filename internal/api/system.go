package api

import (
	"net/http"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type systemStats struct {
	CPUPercent float64 `json:"cpuPercent"`
	MemUsed    uint64  `json:"memUsed"`
	MemTotal   uint64  `json:"memTotal"`
	DiskUsed   uint64  `json:"diskUsed"`
	DiskTotal  uint64  `json:"diskTotal"`
}

// handleSystemStats reports host resource usage for the daemon's dashboard.
func (api *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	var stats systemStats

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemUsed = vm.Used
		stats.MemTotal = vm.Total
	}
	if du, err := disk.Usage("/"); err == nil {
		stats.DiskUsed = du.Used
		stats.DiskTotal = du.Total
	}

	writeJSON(w, stats)
}
