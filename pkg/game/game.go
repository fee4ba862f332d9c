package game

import (
	"context"
	"fmt"
	"time"

	"github.com/cbodonnell/buddybeacon/pkg/abuse"
	"github.com/cbodonnell/buddybeacon/pkg/beacon"
	"github.com/cbodonnell/buddybeacon/pkg/config"
	"github.com/cbodonnell/buddybeacon/pkg/exchange"
	"github.com/cbodonnell/buddybeacon/pkg/game/types"
	"github.com/cbodonnell/buddybeacon/pkg/inventory"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/party"
	"github.com/cbodonnell/buddybeacon/pkg/queue"
	"github.com/cbodonnell/buddybeacon/pkg/state"
)

// Outbox delivers a server message to one connected player. Send must not
// block the game loop.
type Outbox interface {
	Send(uid string, t messages.MessageType, payload interface{})
}

// GameManager is the single coordinator. Every piece of coordination state is
// owned by the loop started with Start and is never touched from elsewhere.
type GameManager struct {
	config             config.Config
	clock              Clock
	outbox             Outbox
	codec              messages.Codec
	clientMessageQueue queue.Queue
	serverEventQueue   queue.Queue
	inventory          inventory.Inventory
	world              state.StateManager
	gameLoopInterval   time.Duration

	roster        *Roster
	exchanges     *exchange.Registry
	silences      *abuse.SilenceList
	requestCounts *abuse.RequestCounter
	pingLimiter   *abuse.WindowLimiter
	chatLimiter   *abuse.WindowLimiter
	parties       *party.Directory
	beacons       *beacon.Broadcaster
	scheduler     *scheduler
	manualCodes   map[string]string
}

// NewGameManagerOptions contains options for creating a new GameManager.
type NewGameManagerOptions struct {
	Config             config.Config
	Clock              Clock
	Outbox             Outbox
	Codec              messages.Codec
	ClientMessageQueue queue.Queue
	ServerEventQueue   queue.Queue
	Inventory          inventory.Inventory
	World              state.StateManager
}

func NewGameManager(opts NewGameManagerOptions) (*GameManager, error) {
	cfg := opts.Config
	vitals, err := beacon.ParseVitalsPolicy(cfg.Beacon.HealthDataMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse health data mode: %v", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = NewSystemClock()
	}
	codec := opts.Codec
	if codec == nil {
		codec = messages.JSONCodec{}
	}

	gm := &GameManager{
		config:             cfg,
		clock:              clock,
		outbox:             opts.Outbox,
		codec:              codec,
		clientMessageQueue: opts.ClientMessageQueue,
		serverEventQueue:   opts.ServerEventQueue,
		inventory:          opts.Inventory,
		world:              opts.World,
		gameLoopInterval:   cfg.Network.GameLoopInterval(),

		roster:        NewRoster(),
		exchanges:     exchange.NewRegistry(cfg.Requests.Timeout().Milliseconds()),
		silences:      abuse.NewSilenceList(),
		requestCounts: abuse.NewRequestCounter(),
		pingLimiter:   abuse.NewWindowLimiter(cfg.MapPings.Window(), cfg.MapPings.MaxPerWindow),
		chatLimiter:   abuse.NewWindowLimiter(cfg.Chat.Window(), cfg.Chat.MaxPerWindow),
		scheduler:     newScheduler(),
		manualCodes:   make(map[string]string),
	}
	gm.parties = party.NewDirectory(gm.roster, cfg.Party.MaxSize)
	gm.beacons = beacon.NewBroadcaster(beacon.Options{
		IntervalMs:          cfg.Beacon.Interval().Milliseconds(),
		MaxGroupSize:        cfg.Beacon.MaxGroupSize,
		PositionThreshold:   cfg.Beacon.PositionChangeThreshold,
		Vitals:              vitals,
		HealthThreshold:     float32(cfg.Beacon.HealthChangeThreshold),
		SaturationThreshold: float32(cfg.Beacon.SaturationChangeThreshold),
		LODEnabled:          cfg.Beacon.EnableDistanceLOD,
		LODNear:             cfg.Beacon.LODNearDistance,
		LODMid:              cfg.Beacon.LODMidDistance,
	})

	now := gm.clock.NowMs()
	gm.scheduler.every(timerSweep, now, cfg.Requests.SweepInterval().Milliseconds())
	gm.scheduler.every(timerBroadcast, now, cfg.Beacon.Interval().Milliseconds())

	return gm, nil
}

// Start starts the game loop.
func (gm *GameManager) Start(ctx context.Context) error {
	ticker := time.NewTicker(gm.gameLoopInterval)
	defer ticker.Stop()

	log.Info("Game loop started with interval %s", gm.gameLoopInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := gm.gameTick(ctx, gm.clock.NowMs()); err != nil {
				log.Error("Failed to run game tick: %v", err)
			}
		}
	}
}

// gameTick runs one iteration of the game loop.
func (gm *GameManager) gameTick(ctx context.Context, nowMs int64) error {
	gm.processServerEvents(ctx, nowMs)
	gm.processClientMessages(ctx, nowMs)
	gm.runTimers(ctx, nowMs)
	return nil
}

// processServerEvents processes all pending server events in the queue.
func (gm *GameManager) processServerEvents(ctx context.Context, nowMs int64) {
	pendingEvents, err := gm.serverEventQueue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read server events: %v", err)
		return
	}
	for _, item := range pendingEvents {
		switch event := item.(type) {
		case *types.ConnectPlayerEvent:
			gm.handleConnect(ctx, event, nowMs)
		case *types.DisconnectPlayerEvent:
			gm.handleDisconnect(ctx, event.UID, nowMs)
		case *types.AdminQuery:
			gm.handleAdminQuery(ctx, event)
		default:
			log.Error("unhandled server event type: %T", event)
		}
	}
}

// processClientMessages processes all pending client messages in the queue.
// Messages from players that are no longer connected are dropped.
func (gm *GameManager) processClientMessages(ctx context.Context, nowMs int64) {
	pendingMessages, err := gm.clientMessageQueue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read client messages: %v", err)
		return
	}
	for _, item := range pendingMessages {
		message, ok := item.(*messages.Message)
		if !ok {
			log.Error("Failed to cast message to messages.Message")
			continue
		}
		if !gm.roster.IsOnline(message.PlayerUID) {
			log.Debug("Dropping %s from offline player %s", message.Type, message.PlayerUID)
			continue
		}
		gm.dispatch(ctx, message, nowMs)
	}
}

func (gm *GameManager) dispatch(ctx context.Context, message *messages.Message, nowMs int64) {
	uid := message.PlayerUID
	switch message.Type {
	case messages.MessageTypeClientPing:
		ping := &messages.ClientPing{}
		if gm.decode(message, ping) {
			gm.send(uid, messages.MessageTypeServerPong, &messages.ServerPong{
				ClientTimestamp: ping.Timestamp,
				ServerTimestamp: nowMs,
			})
		}
	case messages.MessageTypeClientPlayerUpdate:
		update := &messages.ClientPlayerUpdate{}
		if gm.decode(message, update) {
			gm.handlePlayerUpdate(ctx, uid, update, nowMs)
		}
	case messages.MessageTypeClientTeleportRequest:
		request := &messages.ClientTeleportRequest{}
		if gm.decode(message, request) {
			gm.handleTeleportRequest(uid, request, nowMs)
		}
	case messages.MessageTypeClientTeleportResponse:
		response := &messages.ClientTeleportResponse{}
		if gm.decode(message, response) {
			gm.handleTeleportResponse(ctx, uid, response)
		}
	case messages.MessageTypeClientSilencePlayer:
		silence := &messages.ClientSilencePlayer{}
		if gm.decode(message, silence) {
			gm.handleSilencePlayer(uid, silence, nowMs)
		}
	case messages.MessageTypeClientPartyInvite:
		invite := &messages.ClientPartyInvite{}
		if gm.decode(message, invite) {
			gm.handlePartyInvite(uid, invite, nowMs)
		}
	case messages.MessageTypeClientPartyInviteResponse:
		response := &messages.ClientPartyInviteResponse{}
		if gm.decode(message, response) {
			gm.handlePartyInviteResponse(uid, response, nowMs)
		}
	case messages.MessageTypeClientPartyLeave:
		gm.handlePartyLeave(uid)
	case messages.MessageTypeClientPartyKick:
		kick := &messages.ClientPartyKick{}
		if gm.decode(message, kick) {
			gm.handlePartyKick(uid, kick)
		}
	case messages.MessageTypeClientPartyMakeLead:
		makeLead := &messages.ClientPartyMakeLead{}
		if gm.decode(message, makeLead) {
			gm.handlePartyMakeLead(uid, makeLead)
		}
	case messages.MessageTypeClientMapPing:
		ping := &messages.ClientMapPing{}
		if gm.decode(message, ping) {
			gm.handleMapPing(uid, ping, nowMs)
		}
	case messages.MessageTypeClientPlayerListRequest:
		gm.handlePlayerListRequest(uid)
	case messages.MessageTypeClientBeaconCodeSet:
		codeSet := &messages.ClientBeaconCodeSet{}
		if gm.decode(message, codeSet) {
			gm.handleBeaconCodeSet(uid, codeSet)
		}
	case messages.MessageTypeClientBeaconBandSetCode:
		codeSet := &messages.ClientBeaconBandSetCode{}
		if gm.decode(message, codeSet) {
			gm.handleBeaconBandSetCode(uid, codeSet)
		}
	case messages.MessageTypeClientBuddyChat:
		chat := &messages.ClientBuddyChat{}
		if gm.decode(message, chat) {
			gm.handleBuddyChat(uid, chat, nowMs)
		}
	default:
		log.Warn("Unhandled message type %s from %s", message.Type, uid)
	}
}

func (gm *GameManager) decode(message *messages.Message, v interface{}) bool {
	if err := gm.codec.Unmarshal(message.Payload, v); err != nil {
		log.Warn("Failed to decode %s from %s: %v", message.Type, message.PlayerUID, err)
		return false
	}
	return true
}

// runTimers fires every scheduled timer due at nowMs in order.
func (gm *GameManager) runTimers(ctx context.Context, nowMs int64) {
	for {
		t, ok := gm.scheduler.next(nowMs)
		if !ok {
			return
		}
		switch t.kind {
		case timerSweep:
			gm.sweepExchanges(nowMs)
			gm.silences.Prune(nowMs)
		case timerBroadcast:
			gm.broadcastBeacons(ctx, t.fireAtMs)
		case timerPartyResync:
			gm.resyncParty(t.uid)
		}
	}
}

// send drops messages to players that are not connected.
func (gm *GameManager) send(uid string, t messages.MessageType, payload interface{}) {
	if !gm.roster.IsOnline(uid) {
		return
	}
	gm.outbox.Send(uid, t, payload)
}

func (gm *GameManager) teleportResult(uid string, success bool, format string, args ...interface{}) {
	gm.send(uid, messages.MessageTypeServerTeleportResult, &messages.ServerTeleportResult{
		Success: success,
		Message: fmt.Sprintf(format, args...),
	})
}

func (gm *GameManager) partyResult(uid string, success bool, format string, args ...interface{}) {
	gm.send(uid, messages.MessageTypeServerPartyInviteResult, &messages.ServerPartyInviteResult{
		Success: success,
		Message: fmt.Sprintf(format, args...),
	})
}

// displayName resolves a name for online players and for offline party
// members.
func (gm *GameManager) displayName(uid string) string {
	if p, ok := gm.roster.Get(uid); ok {
		return p.Name
	}
	if name, ok := gm.parties.MemberName(uid); ok {
		return name
	}
	return uid
}
