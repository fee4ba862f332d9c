package types

import "errors"

// ErrUnknownItem is returned when an admin query names an item kind the
// server does not know.
var ErrUnknownItem = errors.New("unknown item")

// ConnectPlayerEvent is queued once a connection has authenticated.
// FirstJoin is set when the player has never joined this server before.
type ConnectPlayerEvent struct {
	UID       string
	Name      string
	FirstJoin bool
}

type DisconnectPlayerEvent struct {
	UID string
}

type AdminQueryKind int

const (
	AdminQueryPlayers AdminQueryKind = iota
	AdminQueryParties
	AdminQueryGroups
	AdminGiveItem
)

// AdminQuery is answered by the game loop on Resp, which must be buffered.
type AdminQuery struct {
	Kind AdminQueryKind
	UID  string
	Item string
	Resp chan AdminResponse
}

func NewAdminQuery(kind AdminQueryKind) *AdminQuery {
	return &AdminQuery{
		Kind: kind,
		Resp: make(chan AdminResponse, 1),
	}
}

type AdminResponse struct {
	Players []PlayerInfo   `json:"players,omitempty"`
	Parties []PartyInfo    `json:"parties,omitempty"`
	Groups  []GroupInfo    `json:"groups,omitempty"`
	Items   map[string]int `json:"items,omitempty"`
	Err     error          `json:"-"`
}

type PlayerInfo struct {
	UID           string  `json:"uid"`
	Name          string  `json:"name"`
	HasShareCode  bool    `json:"hasShareCode"`
	PartyID       uint64  `json:"partyId,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Z             float64 `json:"z"`
	ConnectedAtMs int64   `json:"connectedAtMs"`
}

type PartyInfo struct {
	PartyID           uint64   `json:"partyId"`
	LeaderUID         string   `json:"leaderUid"`
	OriginalLeaderUID string   `json:"originalLeaderUid"`
	MemberUIDs        []string `json:"memberUids"`
	MemberNames       []string `json:"memberNames"`
	MemberOnline      []bool   `json:"memberOnline"`
}

// GroupInfo describes a share code group without revealing the code.
type GroupInfo struct {
	Size       int      `json:"size"`
	MemberUIDs []string `json:"memberUids"`
}
