package domain

import "time"

type ServerKind string

const (
	KindPublic  ServerKind = "public"
	KindPrivate ServerKind = "private"
)

type ServerStatus string

const (
	StatusOnline  ServerStatus = "online"
	StatusOffline ServerStatus = "offline"
	StatusPaused  ServerStatus = "paused"
)

type ControlAction string

const (
	ActionPause     ControlAction = "pause"
	ActionStart     ControlAction = "start"
	ActionRestart   ControlAction = "restart"
	ActionTerminate ControlAction = "terminate"
)

type LogKind string

const (
	LogSystem LogKind = "system"
	LogJoin   LogKind = "join"
	LogLeave  LogKind = "leave"
	LogKick   LogKind = "kick"
	LogBan    LogKind = "ban"
	LogChat   LogKind = "chat"
)

// MaxLogEntries caps the per-server audit log; the oldest entries are
// evicted first once the cap is exceeded.
const MaxLogEntries = 100

type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	JoinedAt time.Time `json:"joinedAt"`
}

type LogEntry struct {
	ID        string    `json:"id"`
	Kind      LogKind   `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
}

// ServerRecord is the unit of management: one simulated game server with its
// own lifecycle, membership and audit trail. Address, port, join link and
// join code are assigned at creation and never change afterwards.
type ServerRecord struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Kind           ServerKind   `json:"kind"`
	Game           string       `json:"game"`
	CreatorID      string       `json:"creatorId"`
	Status         ServerStatus `json:"status"`
	Players        []Player     `json:"players"`
	MaxPlayers     int          `json:"maxPlayers"`
	BannedIDs      []string     `json:"bannedIds"`
	CreatedAt      time.Time    `json:"createdAt"`
	LastActivityAt time.Time    `json:"lastActivityAt"`
	Logs           []LogEntry   `json:"logs"`
	JoinLink       string       `json:"joinLink"`
	JoinCode       string       `json:"joinCode"`
	Ping           int          `json:"ping"`
	Address        string       `json:"address"`
	Port           int          `json:"port"`
}

// ServerUpdate is a partial settings update; nil fields are left unchanged.
type ServerUpdate struct {
	Name       *string     `json:"name"`
	Kind       *ServerKind `json:"kind"`
	MaxPlayers *int        `json:"maxPlayers"`
}

func (s *ServerRecord) HasPlayer(playerID string) bool {
	for _, p := range s.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func (s *ServerRecord) IsBanned(playerID string) bool {
	for _, id := range s.BannedIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

type PaymentApproval struct {
	AccountID string `json:"accountId"`
	Status    string `json:"status"`
}

// PaymentStatusApproved is the ledger status that grants private-server
// creation rights.
const PaymentStatusApproved = "approved"
