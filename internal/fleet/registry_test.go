package fleet

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"omlethub/internal/domain"
)

// memStore is an in-memory domain.Repository. failSaves makes every
// SaveServer fail so persistence-error behavior can be exercised.
type memStore struct {
	mu        sync.Mutex
	servers   map[string]domain.ServerRecord
	approvals map[string]string
	failSaves bool
	deleted   []string
}

func newMemStore() *memStore {
	return &memStore{
		servers:   make(map[string]domain.ServerRecord),
		approvals: make(map[string]string),
	}
}

func (s *memStore) SaveServer(srv *domain.ServerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return errors.New("disk full")
	}
	s.servers[srv.ID] = *srv
	return nil
}

func (s *memStore) LoadServers() ([]domain.ServerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ServerRecord
	for _, srv := range s.servers {
		out = append(out, srv)
	}
	return out, nil
}

func (s *memStore) DeleteServer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.servers, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *memStore) HasApproval(accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approvals[accountID] == domain.PaymentStatusApproved, nil
}

func (s *memStore) SaveApproval(a *domain.PaymentApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals[a.AccountID] = a.Status
	return nil
}

// fakeClock drives AfterFunc timers manually.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and fires every due timer, including timers
// armed by the fired callbacks themselves.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due *fakeTimer
		for _, t := range c.timers {
			if !t.fired && !t.stopped && !t.deadline.After(c.now) {
				due = t
				break
			}
		}
		if due != nil {
			due.fired = true
		}
		c.mu.Unlock()

		if due == nil {
			return
		}
		due.f()
	}
}

func newTestRegistry(t *testing.T) (*Registry, *memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	clock := newFakeClock()
	reg, err := NewRegistry(store, Options{Clock: clock})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg, store, clock
}

func player(id string) domain.Player {
	return domain.Player{ID: id, Name: "player-" + id, Avatar: "🙂"}
}

func TestCreateGeneratesIdentity(t *testing.T) {
	reg, store, _ := newTestRegistry(t)

	srv, err := reg.Create("creator-1234567890", "Minecraft", domain.KindPublic, 4, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if srv.Status != domain.StatusOnline {
		t.Errorf("new server status = %s, want online", srv.Status)
	}
	if len(srv.Players) != 0 {
		t.Errorf("new server has %d players, want 0", len(srv.Players))
	}
	if len(srv.JoinCode) != 6 {
		t.Errorf("join code %q, want 6 digits", srv.JoinCode)
	}
	for _, c := range srv.JoinCode {
		if c < '0' || c > '9' {
			t.Errorf("join code %q contains non-digit", srv.JoinCode)
		}
	}
	if want := "omlet://join/" + srv.ID; srv.JoinLink != want {
		t.Errorf("join link = %q, want %q", srv.JoinLink, want)
	}
	if srv.Ping < 10 || srv.Ping >= 60 {
		t.Errorf("initial ping = %d, want [10,60)", srv.Ping)
	}
	if srv.Port < 25565 || srv.Port >= 26565 {
		t.Errorf("port = %d, want [25565,26565)", srv.Port)
	}
	if len(srv.Logs) != 4 {
		t.Errorf("creation wrote %d audit entries, want 4", len(srv.Logs))
	}
	if !strings.HasPrefix(srv.Name, "Server-") {
		t.Errorf("auto name = %q, want Server- prefix", srv.Name)
	}

	store.mu.Lock()
	_, persisted := store.servers[srv.ID]
	store.mu.Unlock()
	if !persisted {
		t.Error("new server was not persisted")
	}
}

func TestCreatePrivateRequiresPayment(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, err := reg.Create("creator", "Minecraft", domain.KindPrivate, 4, false)
	if !errors.Is(err, domain.ErrPaymentRequired) {
		t.Fatalf("err = %v, want ErrPaymentRequired", err)
	}
	if srv != nil {
		t.Fatal("a record was returned despite the payment failure")
	}
	if got := len(reg.List()); got != 0 {
		t.Fatalf("fleet has %d servers after failed create, want 0", got)
	}

	if _, err := reg.Create("creator", "Minecraft", domain.KindPrivate, 4, true); err != nil {
		t.Fatalf("approved private create failed: %v", err)
	}
}

func TestJoinCapacityScenario(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, err := reg.Create("creator", "Minecraft", domain.KindPublic, 2, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := reg.Join(srv.ID, player("a")); err != nil {
		t.Fatalf("join A: %v", err)
	}

	// Second join of the same player is an idempotent success.
	logsBefore, _ := reg.Logs(srv.ID)
	if err := reg.Join(srv.ID, player("a")); err != nil {
		t.Fatalf("rejoin A: %v", err)
	}
	logsAfter, _ := reg.Logs(srv.ID)
	if len(logsAfter) != len(logsBefore) {
		t.Errorf("idempotent join appended %d audit entries", len(logsAfter)-len(logsBefore))
	}

	got, _ := reg.Get(srv.ID)
	if len(got.Players) != 1 {
		t.Fatalf("players = %d after duplicate join, want 1", len(got.Players))
	}

	if err := reg.Join(srv.ID, player("b")); err != nil {
		t.Fatalf("join B: %v", err)
	}
	if err := reg.Join(srv.ID, player("c")); !errors.Is(err, domain.ErrServerFull) {
		t.Fatalf("join C err = %v, want ErrServerFull", err)
	}

	got, _ = reg.Get(srv.ID)
	if len(got.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(got.Players))
	}
	if len(got.Players) > got.MaxPlayers {
		t.Fatal("capacity invariant violated")
	}
}

func TestJoinByCode(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)

	if err := reg.Join(srv.JoinCode, player("a")); err != nil {
		t.Fatalf("join by code: %v", err)
	}
	got, _ := reg.Get(srv.ID)
	if !got.HasPlayer("a") {
		t.Error("player missing after join by code")
	}

	if err := reg.Join("000000", player("b")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown code err = %v, want ErrNotFound", err)
	}
}

func TestBanPreventsRejoin(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	if err := reg.Join(srv.ID, player("x")); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := reg.Ban(srv.ID, "x", "creator"); err != nil {
		t.Fatalf("ban: %v", err)
	}

	got, _ := reg.Get(srv.ID)
	if got.HasPlayer("x") {
		t.Error("banned player still in players")
	}
	if !got.IsBanned("x") {
		t.Error("ban list missing the player")
	}

	if err := reg.Join(srv.ID, player("x")); !errors.Is(err, domain.ErrBanned) {
		t.Fatalf("rejoin err = %v, want ErrBanned", err)
	}
	got, _ = reg.Get(srv.ID)
	if got.HasPlayer("x") {
		t.Error("banned player appeared in players after rejoin attempt")
	}

	// Banning the same id again is idempotent on the ban list.
	if err := reg.Ban(srv.ID, "x", "creator"); err != nil {
		t.Fatalf("second ban: %v", err)
	}
	got, _ = reg.Get(srv.ID)
	if len(got.BannedIDs) != 1 {
		t.Errorf("banned ids = %d, want 1", len(got.BannedIDs))
	}
}

func TestAdminActionsRequireCreator(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Join(srv.ID, player("a"))

	before, _ := reg.Get(srv.ID)

	name := "hacked"
	cases := []struct {
		name string
		call func() error
	}{
		{"kick", func() error { return reg.Kick(srv.ID, "a", "intruder") }},
		{"ban", func() error { return reg.Ban(srv.ID, "a", "intruder") }},
		{"update", func() error {
			return reg.UpdateSettings(srv.ID, "intruder", domain.ServerUpdate{Name: &name})
		}},
		{"control", func() error { return reg.Control(srv.ID, "intruder", domain.ActionPause) }},
	}

	for _, tc := range cases {
		if err := tc.call(); !errors.Is(err, domain.ErrNotAuthorized) {
			t.Errorf("%s err = %v, want ErrNotAuthorized", tc.name, err)
		}
	}

	after, _ := reg.Get(srv.ID)
	if after.Name != before.Name || after.Status != before.Status {
		t.Error("unauthorized call mutated the record")
	}
	if len(after.Logs) != len(before.Logs) {
		t.Error("unauthorized call appended audit entries")
	}
	if !after.HasPlayer("a") {
		t.Error("unauthorized call removed a player")
	}
}

func TestKickAbsentPlayerIsNoop(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	before, _ := reg.Logs(srv.ID)

	if err := reg.Kick(srv.ID, "ghost", "creator"); err != nil {
		t.Fatalf("kick absent: %v", err)
	}
	after, _ := reg.Logs(srv.ID)
	if len(after) != len(before) {
		t.Error("kick of absent player appended an audit entry")
	}
}

func TestIdleShutdown(t *testing.T) {
	reg, _, clock := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Join(srv.ID, player("a"))
	if err := reg.Leave(srv.ID, "a"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	// Just short of the window: still online.
	clock.Advance(5*time.Minute - time.Second)
	got, _ := reg.Get(srv.ID)
	if got.Status != domain.StatusOnline {
		t.Fatalf("status = %s before window expired, want online", got.Status)
	}

	clock.Advance(time.Second)
	got, _ = reg.Get(srv.ID)
	if got.Status != domain.StatusOffline {
		t.Fatalf("status = %s after idle window, want offline", got.Status)
	}
}

func TestJoinCancelsIdleShutdown(t *testing.T) {
	reg, _, clock := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Join(srv.ID, player("a"))
	reg.Leave(srv.ID, "a")

	clock.Advance(4 * time.Minute)
	if err := reg.Join(srv.ID, player("b")); err != nil {
		t.Fatalf("join: %v", err)
	}

	clock.Advance(10 * time.Minute)
	got, _ := reg.Get(srv.ID)
	if got.Status != domain.StatusOnline {
		t.Fatalf("status = %s, want online: idle timer should have been cancelled", got.Status)
	}
}

func TestJoinRevivesOfflineServer(t *testing.T) {
	reg, _, clock := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Join(srv.ID, player("a"))
	reg.Leave(srv.ID, "a")
	clock.Advance(5 * time.Minute)

	got, _ := reg.Get(srv.ID)
	if got.Status != domain.StatusOffline {
		t.Fatalf("precondition failed: status = %s", got.Status)
	}

	if err := reg.Join(srv.ID, player("b")); err != nil {
		t.Fatalf("join offline server: %v", err)
	}
	got, _ = reg.Get(srv.ID)
	if got.Status != domain.StatusOnline {
		t.Fatalf("status = %s after reviving join, want online", got.Status)
	}
}

func TestControlStateMachine(t *testing.T) {
	reg, _, clock := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)

	if err := reg.Control(srv.ID, "creator", domain.ActionPause); err != nil {
		t.Fatalf("pause: %v", err)
	}
	got, _ := reg.Get(srv.ID)
	if got.Status != domain.StatusPaused {
		t.Fatalf("status = %s, want paused", got.Status)
	}

	if err := reg.Control(srv.ID, "creator", domain.ActionStart); err != nil {
		t.Fatalf("start: %v", err)
	}
	got, _ = reg.Get(srv.ID)
	if got.Status != domain.StatusOnline {
		t.Fatalf("status = %s, want online", got.Status)
	}

	// Restart goes offline immediately and online after the delay.
	if err := reg.Control(srv.ID, "creator", domain.ActionRestart); err != nil {
		t.Fatalf("restart: %v", err)
	}
	got, _ = reg.Get(srv.ID)
	if got.Status != domain.StatusOffline {
		t.Fatalf("status right after restart = %s, want offline", got.Status)
	}

	clock.Advance(2 * time.Second)
	got, _ = reg.Get(srv.ID)
	if got.Status != domain.StatusOnline {
		t.Fatalf("status after restart delay = %s, want online", got.Status)
	}
}

func TestTerminate(t *testing.T) {
	reg, store, clock := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Control(srv.ID, "creator", domain.ActionRestart)

	if err := reg.Control(srv.ID, "creator", domain.ActionTerminate); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	if _, ok := reg.Get(srv.ID); ok {
		t.Error("terminated server still readable")
	}
	if err := reg.Join(srv.ID, player("a")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("join after terminate err = %v, want ErrNotFound", err)
	}

	store.mu.Lock()
	deleted := len(store.deleted) == 1 && store.deleted[0] == srv.ID
	store.mu.Unlock()
	if !deleted {
		t.Error("terminate did not delete the persisted record")
	}

	// The pending restart timer must not resurrect the record.
	clock.Advance(time.Minute)
	if _, ok := reg.Get(srv.ID); ok {
		t.Error("restart timer resurrected a terminated server")
	}
}

func TestUpdateSettings(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Join(srv.ID, player("a"))
	reg.Join(srv.ID, player("b"))

	name := "Weekend Room"
	kind := domain.KindPrivate
	maxPlayers := 1
	err := reg.UpdateSettings(srv.ID, "creator", domain.ServerUpdate{
		Name:       &name,
		Kind:       &kind,
		MaxPlayers: &maxPlayers,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := reg.Get(srv.ID)
	if got.Name != name || got.Kind != kind || got.MaxPlayers != 1 {
		t.Errorf("update not applied: %+v", got)
	}
	// Lowering capacity below the player count is tolerated, not enforced.
	if len(got.Players) != 2 {
		t.Errorf("players = %d, existing members must not be evicted", len(got.Players))
	}

	// Partial update leaves other fields alone.
	newName := "Renamed"
	if err := reg.UpdateSettings(srv.ID, "creator", domain.ServerUpdate{Name: &newName}); err != nil {
		t.Fatalf("partial update: %v", err)
	}
	got, _ = reg.Get(srv.ID)
	if got.Kind != kind || got.MaxPlayers != 1 {
		t.Error("partial update touched unspecified fields")
	}
}

func TestLogCapEvictsOldest(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)

	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("p%d", i)
		reg.Join(srv.ID, player(id))
		reg.Leave(srv.ID, id)
	}

	logs, _ := reg.Logs(srv.ID)
	if len(logs) != domain.MaxLogEntries {
		t.Fatalf("logs = %d, want %d", len(logs), domain.MaxLogEntries)
	}
	// The creation entries were the oldest and must be gone.
	for _, e := range logs {
		if strings.Contains(e.Message, "created and started") {
			t.Error("oldest entries were not evicted first")
		}
	}
	// Entries stay in chronological order.
	for i := 1; i < len(logs); i++ {
		if logs[i].Timestamp.Before(logs[i-1].Timestamp) {
			t.Fatal("audit entries out of order")
		}
	}
}

func TestHealthCheckRestartsStuckServer(t *testing.T) {
	reg, _, clock := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)

	clock.Advance(11 * time.Minute)
	reg.checkStuckServers()

	got, _ := reg.Get(srv.ID)
	if got.Status != domain.StatusOffline {
		t.Fatalf("status = %s after stuck detection, want offline", got.Status)
	}

	clock.Advance(2 * time.Second)
	got, _ = reg.Get(srv.ID)
	if got.Status != domain.StatusOnline {
		t.Fatalf("status = %s after recovery, want online", got.Status)
	}

	// Fresh activity must not trigger the health check.
	reg.Join(srv.ID, player("a"))
	reg.checkStuckServers()
	got, _ = reg.Get(srv.ID)
	if got.Status != domain.StatusOnline {
		t.Error("health check restarted an active server")
	}
}

func TestRefreshPings(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	online, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	paused, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Control(paused.ID, "creator", domain.ActionPause)
	pausedBefore, _ := reg.Get(paused.ID)

	reg.refreshPings()

	got, _ := reg.Get(online.ID)
	if got.Ping < 10 || got.Ping >= 150 {
		t.Errorf("refreshed ping = %d, want [10,150)", got.Ping)
	}

	gotPaused, _ := reg.Get(paused.ID)
	if gotPaused.Ping != pausedBefore.Ping {
		t.Error("ping refresh touched a non-online server")
	}
}

func TestFindMatch(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	empty, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	busy, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Join(busy.ID, player("a"))
	reg.Join(busy.ID, player("b"))

	full, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 1, false)
	reg.Join(full.ID, player("c"))

	private, _ := reg.Create("creator", "Minecraft", domain.KindPrivate, 4, true)
	reg.Join(private.ID, player("d"))

	match, ok := reg.FindMatch("Minecraft")
	if !ok {
		t.Fatal("no match found")
	}
	if match.ID != busy.ID {
		t.Errorf("match = %s, want the fullest under-capacity public room %s", match.ID, busy.ID)
	}
	_ = empty

	if _, ok := reg.FindMatch("Roblox"); ok {
		t.Error("found a match for a game with no rooms")
	}
}

func TestPersistenceFailureKeepsMemoryAuthoritative(t *testing.T) {
	reg, store, _ := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)

	store.mu.Lock()
	store.failSaves = true
	store.mu.Unlock()

	err := reg.Join(srv.ID, player("a"))
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}

	got, _ := reg.Get(srv.ID)
	if !got.HasPlayer("a") {
		t.Error("in-memory state lost the join after a failed write")
	}
}

func TestReloadFromStore(t *testing.T) {
	store := newMemStore()
	clock := newFakeClock()

	reg, err := NewRegistry(store, Options{Clock: clock})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Join(srv.ID, player("a"))

	// A second registry over the same store sees the same fleet.
	reg2, err := NewRegistry(store, Options{Clock: clock})
	if err != nil {
		t.Fatalf("NewRegistry reload: %v", err)
	}

	got, ok := reg2.Get(srv.ID)
	if !ok {
		t.Fatal("reloaded registry lost the server")
	}
	if !got.HasPlayer("a") || got.JoinCode != srv.JoinCode {
		t.Error("reloaded record differs from the original")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	srv, _ := reg.Create("creator", "Minecraft", domain.KindPublic, 4, false)
	reg.Join(srv.ID, player("a"))

	snap, _ := reg.Get(srv.ID)
	snap.Players[0].Name = "tampered"
	snap.Name = "tampered"

	got, _ := reg.Get(srv.ID)
	if got.Players[0].Name == "tampered" || got.Name == "tampered" {
		t.Error("snapshot mutation leaked into the registry")
	}
}
