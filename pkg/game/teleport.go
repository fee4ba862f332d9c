package game

import (
	"context"
	"errors"

	"github.com/cbodonnell/buddybeacon/pkg/config"
	"github.com/cbodonnell/buddybeacon/pkg/exchange"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
)

const notAcceptingRequests = "That player is not accepting requests right now."

var itemNames = map[string]string{
	config.ItemWayfinderCompass: "Wayfinder's Compass",
	config.ItemHerosCallStone:   "Hero's Call Stone",
	config.ItemBeaconBand:       "Beacon Band",
}

// teleportItem is the token the requester must hold for kind.
func teleportItem(kind messages.TeleportKind) (string, bool) {
	switch kind {
	case messages.TeleportKindTo:
		return config.ItemWayfinderCompass, true
	case messages.TeleportKindSummon:
		return config.ItemHerosCallStone, true
	default:
		return "", false
	}
}

func (gm *GameManager) handleTeleportRequest(uid string, req *messages.ClientTeleportRequest, nowMs int64) {
	if gm.silences.IsSilenced(req.TargetUID, uid, nowMs) {
		log.Debug("Teleport request from %s to %s dropped: silenced", uid, req.TargetUID)
		gm.teleportResult(uid, false, notAcceptingRequests)
		return
	}
	if req.TargetUID == uid {
		gm.teleportResult(uid, false, "You cannot teleport to yourself.")
		return
	}
	if !gm.roster.IsOnline(req.TargetUID) {
		gm.teleportResult(uid, false, "Target player is not online.")
		return
	}
	item, ok := teleportItem(req.Kind)
	if !ok {
		log.Debug("Teleport request from %s has unknown kind %d", uid, req.Kind)
		gm.teleportResult(uid, false, "Unknown teleport type.")
		return
	}
	if !gm.inventory.HasToken(uid, item) {
		gm.teleportResult(uid, false, "You need a %s to do this.", itemNames[item])
		return
	}

	count := gm.requestCounts.Increment(req.TargetUID, uid)
	e := gm.exchanges.Open(exchange.KindTeleport, uid, req.TargetUID, 0, req.Kind, nowMs)
	gm.send(req.TargetUID, messages.MessageTypeServerTeleportPrompt, &messages.ServerTeleportPrompt{
		RequesterName: gm.roster.Name(uid),
		RequesterUID:  uid,
		RequestID:     e.ID,
		RequestCount:  count,
		RequestedAtMs: nowMs,
		Kind:          req.Kind,
	})
	gm.teleportResult(uid, true, "Request sent to %s. Waiting for response...", gm.roster.Name(req.TargetUID))
	log.Debug("Opened %s request %d from %s to %s (count %d)", req.Kind, e.ID, uid, req.TargetUID, count)
}

func (gm *GameManager) handleTeleportResponse(ctx context.Context, uid string, resp *messages.ClientTeleportResponse) {
	res, ok := gm.resolve(exchange.KindTeleport, resp.RequestID, uid, resp.Accepted)
	if !ok {
		gm.teleportResult(uid, false, "Request has expired.")
		return
	}
	e := res.Exchange
	requester := e.InitiatorUID
	if !gm.roster.IsOnline(requester) {
		gm.teleportResult(uid, false, "Requester is no longer online.")
		return
	}
	if res.Outcome == exchange.OutcomeDeclined {
		gm.teleportResult(requester, false, "%s declined your request.", gm.roster.Name(uid))
		gm.teleportResult(uid, true, "Request declined.")
		log.Debug("Teleport request %d declined by %s", e.ID, uid)
		return
	}
	gm.executeTeleport(ctx, e)
}

// resolve answers an exchange of the expected kind. It reports false when
// the id is unknown, of another kind or addressed to someone else.
func (gm *GameManager) resolve(kind exchange.Kind, id uint64, responderUID string, accepted bool) (exchange.Resolution, bool) {
	e, ok := gm.exchanges.Get(id)
	if !ok || e.Kind != kind {
		return exchange.Resolution{}, false
	}
	res, err := gm.exchanges.Resolve(id, responderUID, accepted)
	if err != nil {
		if errors.Is(err, exchange.ErrNotAddressee) {
			log.Debug("%s tried to answer %s %d addressed to %s", responderUID, kind, id, e.TargetUID)
		}
		return exchange.Resolution{}, false
	}
	return res, true
}

// executeTeleport moves one party of an accepted exchange next to the other.
// Item possession is checked again because it may have changed while the
// request was pending.
func (gm *GameManager) executeTeleport(ctx context.Context, e exchange.Exchange) {
	requester, target := e.InitiatorUID, e.TargetUID
	item, _ := teleportItem(e.TeleportKind)
	if !gm.inventory.HasToken(requester, item) {
		gm.teleportResult(requester, false, "You no longer have the teleport item.")
		gm.teleportResult(target, false, "Teleport failed - requester lacks item.")
		return
	}

	mover, anchor := requester, target
	if e.TeleportKind == messages.TeleportKindSummon {
		mover, anchor = target, requester
	}
	anchorState, err := gm.world.Get(ctx, anchor)
	if err == nil {
		_, err = gm.world.Get(ctx, mover)
	}
	if err != nil {
		log.Debug("Teleport %d failed: %v", e.ID, err)
		gm.teleportResult(requester, false, "Teleport failed - player entity not found.")
		gm.teleportResult(target, false, "Teleport failed - player entity not found.")
		return
	}
	if !gm.inventory.ConsumeToken(requester, item) {
		gm.teleportResult(requester, false, "You no longer have the teleport item.")
		gm.teleportResult(target, false, "Teleport failed - requester lacks item.")
		return
	}

	dest := anchorState.Pos
	dest.X += 1
	if err := gm.world.TeleportTo(ctx, mover, dest); err != nil {
		log.Error("Failed to teleport %s: %v", mover, err)
		gm.teleportResult(requester, false, "Teleport failed - player entity not found.")
		gm.teleportResult(target, false, "Teleport failed - player entity not found.")
		return
	}
	gm.send(mover, messages.MessageTypeServerTeleportExecute, &messages.ServerTeleportExecute{
		X: dest.X,
		Y: dest.Y,
		Z: dest.Z,
	})

	requesterName, targetName := gm.roster.Name(requester), gm.roster.Name(target)
	if e.TeleportKind == messages.TeleportKindSummon {
		gm.teleportResult(requester, true, "Summoned %s to you!", targetName)
		gm.teleportResult(target, true, "You were summoned to %s.", requesterName)
	} else {
		gm.teleportResult(requester, true, "Teleported to %s!", targetName)
		gm.teleportResult(target, true, "%s teleported to you.", requesterName)
	}
	log.Info("Teleport %d executed: %s moved to %s at (%.1f, %.1f, %.1f)", e.ID, mover, anchor, dest.X, dest.Y, dest.Z)
}

func (gm *GameManager) handleSilencePlayer(uid string, req *messages.ClientSilencePlayer, nowMs int64) {
	if req.UID == "" || req.UID == uid {
		gm.teleportResult(uid, false, "You cannot silence yourself.")
		return
	}
	d := gm.config.Requests.SilenceDuration()
	gm.silences.Silence(uid, req.UID, nowMs, d)
	gm.teleportResult(uid, true, "Silenced %s for %g minutes.", gm.displayName(req.UID), d.Minutes())
	log.Info("Player %s silenced %s for %s", uid, req.UID, d)
}

// sweepExchanges expires stale exchanges and notifies both sides.
func (gm *GameManager) sweepExchanges(nowMs int64) {
	for _, res := range gm.exchanges.Sweep(nowMs) {
		e := res.Exchange
		switch e.Kind {
		case exchange.KindTeleport:
			gm.teleportResult(e.InitiatorUID, false, "Teleport request timed out.")
			gm.teleportResult(e.TargetUID, false, "Request has expired.")
		case exchange.KindPartyInvite:
			gm.partyResult(e.InitiatorUID, false, "Party invite to %s timed out.", gm.displayName(e.TargetUID))
			gm.partyResult(e.TargetUID, false, "Party invite expired.")
		}
		log.Debug("%s %d from %s to %s timed out", e.Kind, e.ID, e.InitiatorUID, e.TargetUID)
	}
}
