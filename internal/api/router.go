package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"omlethub/internal/app"
	"omlethub/internal/deeplink"
	"omlethub/internal/domain"
	"omlethub/internal/fleet"
	"omlethub/internal/ws"
)

type Server struct {
	Registry   *fleet.Registry
	Store      domain.Repository
	HubManager *ws.HubManager
}

func NewAPIServer(container *app.Container) *Server {
	return &Server{
		Registry:   container.Registry,
		Store:      container.Store,
		HubManager: container.HubManager,
	}
}

// Handler builds the route table. The caller owns the http.Server so it can
// shut down gracefully.
func (api *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /servers", api.handleListServers)
	mux.HandleFunc("POST /servers", api.handleCreateServer)
	mux.HandleFunc("GET /servers/{id}", api.handleGetServer)
	mux.HandleFunc("PUT /servers/{id}", api.handleUpdateServer)
	mux.HandleFunc("DELETE /servers/{id}", api.handleTerminateServer)

	mux.HandleFunc("POST /servers/{id}/join", api.handleJoin)
	mux.HandleFunc("POST /servers/{id}/leave", api.handleLeave)
	mux.HandleFunc("POST /servers/{id}/kick", api.handleKick)
	mux.HandleFunc("POST /servers/{id}/ban", api.handleBan)
	mux.HandleFunc("POST /servers/{id}/control", api.handleControl)
	mux.HandleFunc("POST /servers/{id}/launch", api.handleLaunch)
	mux.HandleFunc("GET /servers/{id}/logs", api.handleLogs)

	mux.HandleFunc("GET /ws/servers/{id}/logs", api.handleLogsStream)

	mux.HandleFunc("GET /match", api.handleMatch)
	mux.HandleFunc("GET /access/{accountId}", api.handleAccess)
	mux.HandleFunc("POST /payments", api.handleRecordPayment)

	mux.HandleFunc("GET /system/stats", api.handleSystemStats)

	return api.corsMiddleware(api.loggingMiddleware(api.rateLimitMiddleware(mux)))
}

// writeError translates the registry's failure signals to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrBanned):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrServerFull):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrPaymentRequired):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (api *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	var servers []domain.ServerRecord
	switch r.URL.Query().Get("kind") {
	case "public":
		servers = api.Registry.ListByKind(domain.KindPublic)
	case "private":
		servers = api.Registry.ListByKind(domain.KindPrivate)
	default:
		servers = api.Registry.List()
	}

	if servers == nil {
		servers = []domain.ServerRecord{}
	}
	writeJSON(w, servers)
}

func (api *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreatorID       string            `json:"creatorId"`
		Game            string            `json:"game"`
		Kind            domain.ServerKind `json:"kind"`
		MaxPlayers      int               `json:"maxPlayers"`
		PaymentApproved bool              `json:"paymentApproved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.CreatorID == "" {
		http.Error(w, "creatorId is required", http.StatusBadRequest)
		return
	}

	approved := req.PaymentApproved
	if req.Kind == domain.KindPrivate && !approved {
		ok, err := api.Registry.CheckPrivateAccess(req.CreatorID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		approved = ok
	}

	srv, err := api.Registry.Create(req.CreatorID, req.Game, req.Kind, req.MaxPlayers, approved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, srv)
}

func (api *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	srv, ok := api.Registry.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "server not found", http.StatusNotFound)
		return
	}
	writeJSON(w, srv)
}

func (api *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdminID string `json:"adminId"`
		domain.ServerUpdate
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := api.Registry.UpdateSettings(r.PathValue("id"), req.AdminID, req.ServerUpdate); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "updated"})
}

func (api *Server) handleTerminateServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	adminID := r.URL.Query().Get("adminId")

	if err := api.Registry.Control(id, adminID, domain.ActionTerminate); err != nil {
		writeError(w, err)
		return
	}
	api.HubManager.RemoveHub(id)
	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var player domain.Player
	if err := json.NewDecoder(r.Body).Decode(&player); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if player.ID == "" {
		http.Error(w, "player id is required", http.StatusBadRequest)
		return
	}

	// The path segment may be the server id or its 6-digit join code.
	if err := api.Registry.Join(r.PathValue("id"), player); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "joined"})
}

func (api *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := api.Registry.Leave(r.PathValue("id"), req.PlayerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "left"})
}

func (api *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID string `json:"targetId"`
		AdminID  string `json:"adminId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := api.Registry.Kick(r.PathValue("id"), req.TargetID, req.AdminID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "kicked"})
}

func (api *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID string `json:"targetId"`
		AdminID  string `json:"adminId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := api.Registry.Ban(r.PathValue("id"), req.TargetID, req.AdminID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "banned"})
}

func (api *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		AdminID string               `json:"adminId"`
		Action  domain.ControlAction `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := api.Registry.Control(id, req.AdminID, req.Action); err != nil {
		writeError(w, err)
		return
	}
	if req.Action == domain.ActionTerminate {
		api.HubManager.RemoveHub(id)
	}
	writeJSON(w, map[string]string{"status": string(req.Action)})
}

func (api *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	srv, ok := api.Registry.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "server not found", http.StatusNotFound)
		return
	}

	uri, err := deeplink.Launch(srv)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]string{"uri": uri})
}

func (api *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs, ok := api.Registry.Logs(r.PathValue("id"))
	if !ok {
		http.Error(w, "server not found", http.StatusNotFound)
		return
	}
	if logs == nil {
		logs = []domain.LogEntry{}
	}
	writeJSON(w, logs)
}

func (api *Server) handleLogsStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	backlog, ok := api.Registry.Logs(id)
	if !ok {
		http.Error(w, "server not found", http.StatusNotFound)
		return
	}

	hub := api.HubManager.GetHub(id)
	hub.ServeWs(w, r, backlog)
}

func (api *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	game := r.URL.Query().Get("game")
	if game == "" {
		http.Error(w, "game is required", http.StatusBadRequest)
		return
	}

	srv, ok := api.Registry.FindMatch(game)
	if !ok {
		http.Error(w, "no available room", http.StatusNotFound)
		return
	}
	writeJSON(w, srv)
}

func (api *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	approved, err := api.Registry.CheckPrivateAccess(r.PathValue("accountId"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"approved": approved})
}

func (api *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var approval domain.PaymentApproval
	if err := json.NewDecoder(r.Body).Decode(&approval); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if approval.AccountID == "" {
		http.Error(w, "accountId is required", http.StatusBadRequest)
		return
	}

	if err := api.Store.SaveApproval(&approval); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "recorded"})
}
