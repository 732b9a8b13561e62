package main

import (
	"omlethub/internal/cli/cmd"
	"omlethub/internal/config"
)

func main() {
	port := 8080
	if configDir, err := config.Dir(); err == nil {
		if cfg, err := config.LoadConfig(configDir); err == nil {
			port = cfg.Port
		}
	}

	cmd.Execute(port)
}
