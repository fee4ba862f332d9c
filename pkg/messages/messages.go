package messages

import "fmt"

const (
	// MaxMessageSize bounds a single serialized envelope on the wire.
	MaxMessageSize = 64 * 1024

	// VitalsUnchanged is sent in every vitals field of a beacon entry whose
	// vitals were not included this tick. Receivers keep their last value.
	VitalsUnchanged float32 = -1
)

type MessageType byte

// Message types
const (
	MessageTypeClientLogin MessageType = iota + 1
	MessageTypeServerLoginSuccess
	MessageTypeServerLoginFailure
	MessageTypeClientPing
	MessageTypeServerPong
	MessageTypeClientPlayerUpdate
	MessageTypeClientTeleportRequest
	MessageTypeServerTeleportPrompt
	MessageTypeServerTeleportResult
	MessageTypeClientTeleportResponse
	MessageTypeServerTeleportExecute
	MessageTypeClientSilencePlayer
	MessageTypeClientPartyInvite
	MessageTypeServerPartyInvitePrompt
	MessageTypeServerPartyInviteResult
	MessageTypeClientPartyInviteResponse
	MessageTypeClientPartyLeave
	MessageTypeClientPartyKick
	MessageTypeClientPartyMakeLead
	MessageTypeServerPartyState
	MessageTypeServerPartyDisbanded
	MessageTypeServerBeaconPosition
	MessageTypeClientMapPing
	MessageTypeServerMapPing
	MessageTypeClientPlayerListRequest
	MessageTypeServerPlayerListResponse
	MessageTypeClientBeaconCodeSet
	MessageTypeClientBeaconBandSetCode
	MessageTypeClientBuddyChat
	MessageTypeServerBuddyChat
)

var messageTypeNames = map[MessageType]string{
	MessageTypeClientLogin:               "ClientLogin",
	MessageTypeServerLoginSuccess:        "ServerLoginSuccess",
	MessageTypeServerLoginFailure:        "ServerLoginFailure",
	MessageTypeClientPing:                "ClientPing",
	MessageTypeServerPong:                "ServerPong",
	MessageTypeClientPlayerUpdate:        "ClientPlayerUpdate",
	MessageTypeClientTeleportRequest:     "ClientTeleportRequest",
	MessageTypeServerTeleportPrompt:      "ServerTeleportPrompt",
	MessageTypeServerTeleportResult:      "ServerTeleportResult",
	MessageTypeClientTeleportResponse:    "ClientTeleportResponse",
	MessageTypeServerTeleportExecute:     "ServerTeleportExecute",
	MessageTypeClientSilencePlayer:       "ClientSilencePlayer",
	MessageTypeClientPartyInvite:         "ClientPartyInvite",
	MessageTypeServerPartyInvitePrompt:   "ServerPartyInvitePrompt",
	MessageTypeServerPartyInviteResult:   "ServerPartyInviteResult",
	MessageTypeClientPartyInviteResponse: "ClientPartyInviteResponse",
	MessageTypeClientPartyLeave:          "ClientPartyLeave",
	MessageTypeClientPartyKick:           "ClientPartyKick",
	MessageTypeClientPartyMakeLead:       "ClientPartyMakeLead",
	MessageTypeServerPartyState:          "ServerPartyState",
	MessageTypeServerPartyDisbanded:      "ServerPartyDisbanded",
	MessageTypeServerBeaconPosition:      "ServerBeaconPosition",
	MessageTypeClientMapPing:             "ClientMapPing",
	MessageTypeServerMapPing:             "ServerMapPing",
	MessageTypeClientPlayerListRequest:   "ClientPlayerListRequest",
	MessageTypeServerPlayerListResponse:  "ServerPlayerListResponse",
	MessageTypeClientBeaconCodeSet:       "ClientBeaconCodeSet",
	MessageTypeClientBeaconBandSetCode:   "ClientBeaconBandSetCode",
	MessageTypeClientBuddyChat:           "ClientBuddyChat",
	MessageTypeServerBuddyChat:           "ServerBuddyChat",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", byte(t))
}

// Message is the envelope for every message on the wire.
// PlayerUID is empty for messages sent by the server.
type Message struct {
	PlayerUID string
	Type      MessageType
	Payload   []byte
}

type ClientLogin struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type ServerLoginSuccess struct {
	UID       string `json:"uid"`
	SessionID string `json:"sessionId"`
}

type ServerLoginFailure struct {
	Reason string `json:"reason"`
}

type ClientPing struct {
	Timestamp int64 `json:"timestamp"`
}

type ServerPong struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}

// ClientPlayerUpdate is pushed by the host bridge with the player's latest
// world position and vitals.
type ClientPlayerUpdate struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Z             float64 `json:"z"`
	Health        float32 `json:"health"`
	MaxHealth     float32 `json:"maxHealth"`
	Saturation    float32 `json:"saturation"`
	MaxSaturation float32 `json:"maxSaturation"`
}

type TeleportKind byte

const (
	// TeleportKindTo moves the requester to the target.
	TeleportKindTo TeleportKind = iota
	// TeleportKindSummon moves the target to the requester.
	TeleportKindSummon
)

// TeleportKindNone marks exchanges that are not teleports. It is never sent.
const TeleportKindNone TeleportKind = 0xff

func (k TeleportKind) String() string {
	switch k {
	case TeleportKindTo:
		return "teleport"
	case TeleportKindSummon:
		return "summon"
	case TeleportKindNone:
		return "none"
	default:
		return fmt.Sprintf("TeleportKind(%d)", byte(k))
	}
}

type ClientTeleportRequest struct {
	TargetUID string       `json:"targetUid"`
	Kind      TeleportKind `json:"kind"`
}

type ServerTeleportPrompt struct {
	RequesterName string       `json:"requesterName"`
	RequesterUID  string       `json:"requesterUid"`
	RequestID     uint64       `json:"requestId"`
	RequestCount  int          `json:"requestCount"`
	RequestedAtMs int64        `json:"requestedAtMs"`
	Kind          TeleportKind `json:"kind"`
}

type ServerTeleportResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ClientTeleportResponse struct {
	RequestID uint64 `json:"requestId"`
	Accepted  bool   `json:"accepted"`
}

type ServerTeleportExecute struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type ClientSilencePlayer struct {
	UID string `json:"uidToSilence"`
}

type ClientPartyInvite struct {
	TargetUID string `json:"targetUid"`
}

type ServerPartyInvitePrompt struct {
	InviterName   string `json:"inviterName"`
	InviterUID    string `json:"inviterUid"`
	InviteID      uint64 `json:"inviteId"`
	RequestedAtMs int64  `json:"requestedAtMs"`
	RequestCount  int    `json:"requestCount"`
}

type ServerPartyInviteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ClientPartyInviteResponse struct {
	InviteID uint64 `json:"inviteId"`
	Accepted bool   `json:"accepted"`
}

type ClientPartyLeave struct{}

type ClientPartyKick struct {
	TargetUID string `json:"targetUid"`
}

type ClientPartyMakeLead struct {
	TargetUID string `json:"targetUid"`
}

// ServerPartyState is a full snapshot of a party. Clients replace their
// local view with it.
type ServerPartyState struct {
	PartyID            uint64   `json:"partyId"`
	LeaderUID          string   `json:"leaderUid"`
	LeaderName         string   `json:"leaderName"`
	OriginalLeaderUID  string   `json:"originalLeaderUid"`
	OriginalLeaderName string   `json:"originalLeaderName"`
	MemberUIDs         []string `json:"memberUids"`
	MemberNames        []string `json:"memberNames"`
	MemberOnline       []bool   `json:"memberOnline"`
}

// Party removal reasons.
const (
	PartyReasonLeft       = "left"
	PartyReasonKicked     = "kicked"
	PartyReasonDisbanded  = "disbanded"
	PartyReasonLeaderLeft = "leader_left"
)

type ServerPartyDisbanded struct {
	Reason string `json:"reason"`
}

// ServerBeaconPosition carries one entry per included subject in parallel
// arrays. Vitals fields hold VitalsUnchanged when not included.
type ServerBeaconPosition struct {
	Names         []string  `json:"names"`
	UIDs          []string  `json:"uids"`
	X             []float64 `json:"x"`
	Y             []float64 `json:"y"`
	Z             []float64 `json:"z"`
	Timestamps    []int64   `json:"timestamps"`
	Health        []float32 `json:"health"`
	MaxHealth     []float32 `json:"maxHealth"`
	Saturation    []float32 `json:"saturation"`
	MaxSaturation []float32 `json:"maxSaturation"`
}

func (b *ServerBeaconPosition) Len() int {
	return len(b.UIDs)
}

type ClientMapPing struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

type ServerMapPing struct {
	SenderName string  `json:"senderName"`
	SenderUID  string  `json:"senderUid"`
	X          float64 `json:"x"`
	Z          float64 `json:"z"`
	Timestamp  int64   `json:"timestamp"`
}

type ClientPlayerListRequest struct{}

type ServerPlayerListResponse struct {
	Names []string `json:"names"`
	UIDs  []string `json:"uids"`
}

// ClientBeaconCodeSet sets the player's manual share code. An empty code
// clears it.
type ClientBeaconCodeSet struct {
	Code string `json:"code"`
}

// ClientBeaconBandSetCode writes a share code onto the held beacon band.
type ClientBeaconBandSetCode struct {
	Code string `json:"code"`
}

type ClientBuddyChat struct {
	Message     string   `json:"message"`
	TargetNames []string `json:"targetNames,omitempty"`
	IsPartyChat bool     `json:"isPartyChat"`
}

type ServerBuddyChat struct {
	SenderName  string `json:"senderName"`
	SenderUID   string `json:"senderUid"`
	Message     string `json:"message"`
	IsPartyChat bool   `json:"isPartyChat"`
	Timestamp   int64  `json:"timestamp"`
}
