package fleet

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"omlethub/internal/domain"
)

const nameSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// LogSink receives every audit entry the registry appends, keyed by server
// id. Implementations must not block.
type LogSink interface {
	PublishLog(serverID string, entry domain.LogEntry)
}

// Options tune the registry's timing and identity generation. Zero values
// fall back to the production defaults.
type Options struct {
	IdleShutdownAfter   time.Duration // offline after this long with no players
	StuckAfter          time.Duration // restart after this long without activity
	RestartDelay        time.Duration // offline window during a restart
	HealthCheckInterval time.Duration
	PingInterval        time.Duration
	JoinScheme          string // deep-link scheme for join links
	AddressDomain       string // domain suffix for simulated addresses
	NewID               func() string
	Clock               Clock
}

func (o *Options) applyDefaults() {
	if o.IdleShutdownAfter == 0 {
		o.IdleShutdownAfter = 5 * time.Minute
	}
	if o.StuckAfter == 0 {
		o.StuckAfter = 10 * time.Minute
	}
	if o.RestartDelay == 0 {
		o.RestartDelay = 2 * time.Second
	}
	if o.HealthCheckInterval == 0 {
		o.HealthCheckInterval = time.Minute
	}
	if o.PingInterval == 0 {
		o.PingInterval = 5 * time.Second
	}
	if o.JoinScheme == "" {
		o.JoinScheme = "omlet"
	}
	if o.AddressDomain == "" {
		o.AddressDomain = "omlet.gg"
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
}

// Registry owns the in-memory fleet of server records. Every mutation goes
// through its methods under a single mutex, appends an audit entry and is
// written through to the store. Background maintenance (health check, ping
// refresh, idle shutdown) runs on the same mutex.
type Registry struct {
	mu      sync.Mutex
	servers map[string]*domain.ServerRecord

	store domain.Repository
	clock Clock
	opts  Options
	sink  LogSink

	shutdownTimers map[string]Timer
	restartTimers  map[string]Timer

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRegistry builds a registry and loads the persisted fleet into memory.
func NewRegistry(store domain.Repository, opts Options) (*Registry, error) {
	opts.applyDefaults()

	r := &Registry{
		servers:        make(map[string]*domain.ServerRecord),
		store:          store,
		clock:          opts.Clock,
		opts:           opts,
		shutdownTimers: make(map[string]Timer),
		restartTimers:  make(map[string]Timer),
		stop:           make(chan struct{}),
	}

	saved, err := store.LoadServers()
	if err != nil {
		return nil, fmt.Errorf("loading fleet: %w", err)
	}
	for i := range saved {
		srv := saved[i]
		r.servers[srv.ID] = &srv
	}

	return r, nil
}

// SetLogSink attaches a sink for live audit entries. Call before Start.
func (r *Registry) SetLogSink(sink LogSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// Start launches the health-check and ping-refresh loops.
func (r *Registry) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop halts the background loops and cancels all pending per-server timers.
func (r *Registry) Stop() {
	close(r.stop)
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.shutdownTimers {
		t.Stop()
		delete(r.shutdownTimers, id)
	}
	for id, t := range r.restartTimers {
		t.Stop()
		delete(r.restartTimers, id)
	}
}

func (r *Registry) run() {
	defer r.wg.Done()

	health := time.NewTicker(r.opts.HealthCheckInterval)
	defer health.Stop()
	ping := time.NewTicker(r.opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-health.C:
			r.checkStuckServers()
		case <-ping.C:
			r.refreshPings()
		case <-r.stop:
			return
		}
	}
}

// Create registers a new server owned by creatorID. Private servers require
// a prior payment approval; without it the call fails with
// domain.ErrPaymentRequired and nothing is created.
func (r *Registry) Create(creatorID, game string, kind domain.ServerKind, maxPlayers int, paymentApproved bool) (*domain.ServerRecord, error) {
	if kind == domain.KindPrivate && !paymentApproved {
		return nil, domain.ErrPaymentRequired
	}
	if kind == "" {
		kind = domain.KindPublic
	}
	if game == "" {
		game = "Minecraft"
	}
	if maxPlayers <= 0 {
		maxPlayers = 10
	}

	id := r.opts.NewID()
	now := r.clock.Now()

	srv := &domain.ServerRecord{
		ID:             id,
		Name:           autoName(creatorID),
		Kind:           kind,
		Game:           game,
		CreatorID:      creatorID,
		Status:         domain.StatusOnline,
		Players:        []domain.Player{},
		MaxPlayers:     maxPlayers,
		BannedIDs:      []string{},
		CreatedAt:      now,
		LastActivityAt: now,
		JoinLink:       fmt.Sprintf("%s://join/%s", r.opts.JoinScheme, id),
		JoinCode:       generateJoinCode(),
		Ping:           10 + rand.IntN(50),
		Address:        fmt.Sprintf("server-%s.%s", idTail(id, 8), r.opts.AddressDomain),
		Port:           25565 + rand.IntN(1000),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.servers[id] = srv
	r.appendLog(srv, domain.LogSystem, fmt.Sprintf("Server %q created and started", srv.Name), "")
	r.appendLog(srv, domain.LogSystem, fmt.Sprintf("Address: %s:%d", srv.Address, srv.Port), "")
	r.appendLog(srv, domain.LogSystem, fmt.Sprintf("Join link: %s", srv.JoinLink), "")
	r.appendLog(srv, domain.LogSystem, fmt.Sprintf("Join code: %s", srv.JoinCode), "")

	if err := r.persist(srv); err != nil {
		return cloneServer(srv), err
	}
	return cloneServer(srv), nil
}

// Join adds a player to the server identified by its id or, failing that,
// its 6-digit join code. An offline server is revived before capacity is
// evaluated. Joining a server the player is already on is a no-op success.
func (r *Registry) Join(idOrCode string, player domain.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv := r.resolve(idOrCode)
	if srv == nil {
		return domain.ErrNotFound
	}

	if srv.IsBanned(player.ID) {
		return domain.ErrBanned
	}

	if srv.Status == domain.StatusOffline {
		srv.Status = domain.StatusOnline
		r.appendLog(srv, domain.LogSystem, "Server restarted automatically", "")
		r.cancelShutdown(srv.ID)
	}

	if srv.HasPlayer(player.ID) {
		return nil
	}

	if len(srv.Players) >= srv.MaxPlayers {
		return domain.ErrServerFull
	}

	player.JoinedAt = r.clock.Now()
	srv.Players = append(srv.Players, player)
	srv.LastActivityAt = r.clock.Now()
	r.appendLog(srv, domain.LogJoin, fmt.Sprintf("%s joined the server", player.Name), player.Name)
	r.cancelShutdown(srv.ID)

	return r.persist(srv)
}

// Leave removes a player from the server. A player that is not present is a
// no-op. When the last player leaves, the idle-shutdown timer is armed.
func (r *Registry) Leave(serverID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv, ok := r.servers[serverID]
	if !ok {
		return domain.ErrNotFound
	}

	name, removed := removePlayer(srv, playerID)
	if !removed {
		return nil
	}

	srv.LastActivityAt = r.clock.Now()
	r.appendLog(srv, domain.LogLeave, fmt.Sprintf("%s left the server", name), name)

	if len(srv.Players) == 0 {
		r.scheduleShutdown(srv.ID)
	}

	return r.persist(srv)
}

// Kick removes a player by creator authority. Kicking a player that is not
// on the server is a no-op success.
func (r *Registry) Kick(serverID, targetID, adminID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv, ok := r.servers[serverID]
	if !ok {
		return domain.ErrNotFound
	}
	if srv.CreatorID != adminID {
		return domain.ErrNotAuthorized
	}

	name, removed := removePlayer(srv, targetID)
	if !removed {
		return nil
	}

	srv.LastActivityAt = r.clock.Now()
	r.appendLog(srv, domain.LogKick, fmt.Sprintf("%s was kicked from the server", name), name)

	if len(srv.Players) == 0 {
		r.scheduleShutdown(srv.ID)
	}

	return r.persist(srv)
}

// Ban removes the player if present and permanently excludes the id from
// rejoining. Banning an already banned id has no additional effect.
func (r *Registry) Ban(serverID, targetID, adminID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv, ok := r.servers[serverID]
	if !ok {
		return domain.ErrNotFound
	}
	if srv.CreatorID != adminID {
		return domain.ErrNotAuthorized
	}

	name, removed := removePlayer(srv, targetID)
	if name == "" {
		name = targetID
	}
	if !srv.IsBanned(targetID) {
		srv.BannedIDs = append(srv.BannedIDs, targetID)
	}

	srv.LastActivityAt = r.clock.Now()
	r.appendLog(srv, domain.LogBan, fmt.Sprintf("%s was banned from the server", name), name)

	if removed && len(srv.Players) == 0 {
		r.scheduleShutdown(srv.ID)
	}

	return r.persist(srv)
}

// UpdateSettings applies the non-nil fields of upd. Lowering MaxPlayers
// below the current player count is tolerated; capacity is only enforced on
// join.
func (r *Registry) UpdateSettings(serverID, adminID string, upd domain.ServerUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv, ok := r.servers[serverID]
	if !ok {
		return domain.ErrNotFound
	}
	if srv.CreatorID != adminID {
		return domain.ErrNotAuthorized
	}

	if upd.Name != nil {
		srv.Name = *upd.Name
	}
	if upd.Kind != nil {
		srv.Kind = *upd.Kind
	}
	if upd.MaxPlayers != nil && *upd.MaxPlayers > 0 {
		srv.MaxPlayers = *upd.MaxPlayers
	}

	srv.LastActivityAt = r.clock.Now()
	r.appendLog(srv, domain.LogSystem, "Server settings updated", "")

	return r.persist(srv)
}

// Control drives the server state machine by creator authority. Restart is
// asynchronous: the server goes offline immediately and comes back online
// after the configured delay. Terminate deletes the record; no operation on
// its id succeeds afterwards.
func (r *Registry) Control(serverID, adminID string, action domain.ControlAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv, ok := r.servers[serverID]
	if !ok {
		return domain.ErrNotFound
	}
	if srv.CreatorID != adminID {
		return domain.ErrNotAuthorized
	}

	switch action {
	case domain.ActionPause:
		srv.Status = domain.StatusPaused
		r.appendLog(srv, domain.LogSystem, "Server paused", "")
	case domain.ActionStart:
		srv.Status = domain.StatusOnline
		r.appendLog(srv, domain.LogSystem, "Server started", "")
	case domain.ActionRestart:
		r.restart(srv)
	case domain.ActionTerminate:
		return r.terminate(srv)
	default:
		return fmt.Errorf("unknown control action %q", action)
	}

	srv.LastActivityAt = r.clock.Now()
	return r.persist(srv)
}

// restart flips the server offline and schedules the online transition.
// Caller holds the mutex.
func (r *Registry) restart(srv *domain.ServerRecord) {
	if t, ok := r.restartTimers[srv.ID]; ok {
		t.Stop()
	}

	srv.Status = domain.StatusOffline
	r.appendLog(srv, domain.LogSystem, "Restarting server...", "")

	id := srv.ID
	r.restartTimers[id] = r.clock.AfterFunc(r.opts.RestartDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(r.restartTimers, id)
		srv, ok := r.servers[id]
		if !ok {
			return
		}
		srv.Status = domain.StatusOnline
		r.appendLog(srv, domain.LogSystem, "Server restarted", "")
		if err := r.persist(srv); err != nil {
			log.Warn().Err(err).Str("server", id).Msg("Failed to persist restart")
		}
	})
}

// terminate deletes the record and cancels its timers. Caller holds the
// mutex.
func (r *Registry) terminate(srv *domain.ServerRecord) error {
	r.appendLog(srv, domain.LogSystem, "Server terminated", "")

	delete(r.servers, srv.ID)
	r.cancelShutdown(srv.ID)
	if t, ok := r.restartTimers[srv.ID]; ok {
		t.Stop()
		delete(r.restartTimers, srv.ID)
	}

	if err := r.store.DeleteServer(srv.ID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Get returns a snapshot of a single record.
func (r *Registry) Get(id string) (*domain.ServerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv, ok := r.servers[id]
	if !ok {
		return nil, false
	}
	return cloneServer(srv), true
}

// List returns a snapshot of the whole fleet.
func (r *Registry) List() []domain.ServerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ServerRecord, 0, len(r.servers))
	for _, srv := range r.servers {
		out = append(out, *cloneServer(srv))
	}
	return out
}

// ListByKind returns a snapshot of the servers of one kind.
func (r *Registry) ListByKind(kind domain.ServerKind) []domain.ServerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.ServerRecord
	for _, srv := range r.servers {
		if srv.Kind == kind {
			out = append(out, *cloneServer(srv))
		}
	}
	return out
}

// FindMatch picks the best public room for a game: online, under capacity,
// most players first. Ties break on earliest creation, then id, so the
// result is deterministic.
func (r *Registry) FindMatch(game string) (*domain.ServerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *domain.ServerRecord
	for _, srv := range r.servers {
		if srv.Kind != domain.KindPublic || srv.Status != domain.StatusOnline {
			continue
		}
		if srv.Game != game || len(srv.Players) >= srv.MaxPlayers {
			continue
		}
		if best == nil || betterMatch(srv, best) {
			best = srv
		}
	}

	if best == nil {
		return nil, false
	}
	return cloneServer(best), true
}

func betterMatch(a, b *domain.ServerRecord) bool {
	if len(a.Players) != len(b.Players) {
		return len(a.Players) > len(b.Players)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// CheckPrivateAccess reports whether the account holds an approved payment
// in the ledger. The registry only ever reads the ledger.
func (r *Registry) CheckPrivateAccess(accountID string) (bool, error) {
	return r.store.HasApproval(accountID)
}

// Logs returns a snapshot of a server's audit trail.
func (r *Registry) Logs(serverID string) ([]domain.LogEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	srv, ok := r.servers[serverID]
	if !ok {
		return nil, false
	}
	out := make([]domain.LogEntry, len(srv.Logs))
	copy(out, srv.Logs)
	return out, true
}

// checkStuckServers restarts online servers with no activity for the stuck
// threshold. Runs on the health-check cadence.
func (r *Registry) checkStuckServers() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	for _, srv := range r.servers {
		if srv.Status != domain.StatusOnline {
			continue
		}
		if now.Sub(srv.LastActivityAt) <= r.opts.StuckAfter {
			continue
		}

		log.Warn().Str("server", srv.ID).Str("name", srv.Name).Msg("Stuck server detected, restarting")
		r.appendLog(srv, domain.LogSystem, "Stuck server detected, restarting automatically", "")
		r.restart(srv)
		srv.LastActivityAt = now
		if err := r.persist(srv); err != nil {
			log.Warn().Err(err).Str("server", srv.ID).Msg("Failed to persist health-check restart")
		}
	}
}

// refreshPings rewrites the simulated ping of every online server.
func (r *Registry) refreshPings() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, srv := range r.servers {
		if srv.Status != domain.StatusOnline {
			continue
		}
		srv.Ping = 10 + rand.IntN(140)
		if err := r.persist(srv); err != nil {
			log.Warn().Err(err).Str("server", srv.ID).Msg("Failed to persist ping refresh")
		}
	}
}

// scheduleShutdown (re)arms the idle-shutdown timer for a server. Caller
// holds the mutex.
func (r *Registry) scheduleShutdown(serverID string) {
	r.cancelShutdown(serverID)

	r.shutdownTimers[serverID] = r.clock.AfterFunc(r.opts.IdleShutdownAfter, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(r.shutdownTimers, serverID)
		srv, ok := r.servers[serverID]
		if !ok || len(srv.Players) > 0 {
			return
		}
		srv.Status = domain.StatusOffline
		r.appendLog(srv, domain.LogSystem, "Server shut down automatically (no players for 5 minutes)", "")
		if err := r.persist(srv); err != nil {
			log.Warn().Err(err).Str("server", serverID).Msg("Failed to persist idle shutdown")
		}
	})
}

func (r *Registry) cancelShutdown(serverID string) {
	if t, ok := r.shutdownTimers[serverID]; ok {
		t.Stop()
		delete(r.shutdownTimers, serverID)
	}
}

// appendLog appends one audit entry, enforces the cap and publishes the
// entry to the sink. Caller holds the mutex.
func (r *Registry) appendLog(srv *domain.ServerRecord, kind domain.LogKind, message, actor string) {
	entry := domain.LogEntry{
		ID:        r.opts.NewID(),
		Kind:      kind,
		Message:   message,
		Timestamp: r.clock.Now(),
		Actor:     actor,
	}

	srv.Logs = append(srv.Logs, entry)
	if len(srv.Logs) > domain.MaxLogEntries {
		srv.Logs = srv.Logs[len(srv.Logs)-domain.MaxLogEntries:]
	}

	if r.sink != nil {
		r.sink.PublishLog(srv.ID, entry)
	}
}

func (r *Registry) persist(srv *domain.ServerRecord) error {
	if err := r.store.SaveServer(srv); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// resolve looks a server up by id first, then by join code.
func (r *Registry) resolve(idOrCode string) *domain.ServerRecord {
	if srv, ok := r.servers[idOrCode]; ok {
		return srv
	}
	for _, srv := range r.servers {
		if srv.JoinCode == idOrCode {
			return srv
		}
	}
	return nil
}

func removePlayer(srv *domain.ServerRecord, playerID string) (string, bool) {
	for i, p := range srv.Players {
		if p.ID == playerID {
			srv.Players = append(srv.Players[:i], srv.Players[i+1:]...)
			return p.Name, true
		}
	}
	return "", false
}

func cloneServer(srv *domain.ServerRecord) *domain.ServerRecord {
	out := *srv
	out.Players = append([]domain.Player(nil), srv.Players...)
	out.BannedIDs = append([]string(nil), srv.BannedIDs...)
	out.Logs = append([]domain.LogEntry(nil), srv.Logs...)
	return &out
}

func autoName(creatorID string) string {
	prefix := creatorID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}

	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = nameSuffixAlphabet[rand.IntN(len(nameSuffixAlphabet))]
	}

	return fmt.Sprintf("Server-%s-%s", prefix, string(suffix))
}

func generateJoinCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

func idTail(id string, n int) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) <= n {
		return id
	}
	return id[len(id)-n:]
}
