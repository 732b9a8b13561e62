package app

import (
	"omlethub/internal/domain"
	"omlethub/internal/fleet"
	"omlethub/internal/ws"
)

type Container struct {
	Store      domain.Repository
	Registry   *fleet.Registry
	HubManager *ws.HubManager
}
