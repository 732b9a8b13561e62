// Package deeplink builds per-game client URIs for joining a server and
// hands them to the OS. Whether the game client actually launches cannot be
// observed; launch is strictly fire-and-forget.
package deeplink

import (
	"fmt"
	"net/url"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"

	"omlethub/internal/domain"
)

var ErrUnsupportedGame = fmt.Errorf("no deep link known for this game")

// BuildURI returns the client URI for joining srv in its game, or
// ErrUnsupportedGame when the game has no known scheme.
func BuildURI(srv *domain.ServerRecord) (string, error) {
	switch srv.Game {
	case "Minecraft":
		target := fmt.Sprintf("%s|%s:%d", srv.Name, srv.Address, srv.Port)
		return "minecraft://?addExternalServer=" + url.QueryEscape(target), nil
	case "Roblox":
		return "roblox://placeId=" + srv.ID, nil
	case "Free Fire":
		return "freefire://join/" + srv.ID, nil
	case "PUBG":
		return "pubgm://join/" + srv.ID, nil
	case "Among Us":
		return "amongus://join/" + srv.ID, nil
	default:
		return "", ErrUnsupportedGame
	}
}

// Launch builds the URI and asks the OS to open it. The returned URI lets
// the caller present a fallback; the open call's outcome is not reported
// back because it says nothing about whether the game joined.
func Launch(srv *domain.ServerRecord) (string, error) {
	uri, err := BuildURI(srv)
	if err != nil {
		return "", err
	}

	go func() {
		if err := browser.OpenURL(uri); err != nil {
			log.Debug().Err(err).Str("game", srv.Game).Msg("Deep link open failed")
		}
	}()

	return uri, nil
}
