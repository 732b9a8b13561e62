package sdk

import "time"

type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	JoinedAt time.Time `json:"joinedAt"`
}

type LogEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
}

type Server struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	Game           string     `json:"game"`
	CreatorID      string     `json:"creatorId"`
	Status         string     `json:"status"`
	Players        []Player   `json:"players"`
	MaxPlayers     int        `json:"maxPlayers"`
	BannedIDs      []string   `json:"bannedIds"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
	Logs           []LogEntry `json:"logs"`
	JoinLink       string     `json:"joinLink"`
	JoinCode       string     `json:"joinCode"`
	Ping           int        `json:"ping"`
	Address        string     `json:"address"`
	Port           int        `json:"port"`
}

type CreateServerRequest struct {
	CreatorID       string `json:"creatorId"`
	Game            string `json:"game"`
	Kind            string `json:"kind"`
	MaxPlayers      int    `json:"maxPlayers"`
	PaymentApproved bool   `json:"paymentApproved"`
}

type UpdateServerRequest struct {
	AdminID    string  `json:"adminId"`
	Name       *string `json:"name,omitempty"`
	Kind       *string `json:"kind,omitempty"`
	MaxPlayers *int    `json:"maxPlayers,omitempty"`
}

type SystemStats struct {
	CPUPercent float64 `json:"cpuPercent"`
	MemUsed    uint64  `json:"memUsed"`
	MemTotal   uint64  `json:"memTotal"`
	DiskUsed   uint64  `json:"diskUsed"`
	DiskTotal  uint64  `json:"diskTotal"`
}
