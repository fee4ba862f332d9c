package game

import (
	"context"

	"github.com/cbodonnell/buddybeacon/pkg/exchange"
	"github.com/cbodonnell/buddybeacon/pkg/game/types"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/party"
)

// handleConnect brings a player online. A connect for a uid that is already
// online is treated as a reconnect: the old session is cleaned up first.
func (gm *GameManager) handleConnect(ctx context.Context, event *types.ConnectPlayerEvent, nowMs int64) {
	if gm.roster.IsOnline(event.UID) {
		log.Debug("Player %s connected while online, cleaning up previous session", event.UID)
		gm.handleDisconnect(ctx, event.UID, nowMs)
	}

	name := event.Name
	if name == "" {
		name = event.UID
	}
	gm.roster.Add(event.UID, name, nowMs)

	if event.FirstJoin {
		for _, item := range gm.config.StarterItems() {
			gm.inventory.Give(event.UID, item)
			log.Debug("Gave starter item %s to %s", item, event.UID)
		}
	}

	gm.beacons.MarkFullSync(event.UID)
	if res, ok := gm.parties.Connect(event.UID, name); ok {
		gm.applyPartyResult(res)
		gm.scheduler.after(timerPartyResync, nowMs+gm.config.Party.ReconnectBroadcastDelay().Milliseconds(), event.UID)
	}

	log.Info("Player %s (%s) connected, %d online", event.UID, name, gm.roster.Len())
}

// handleDisconnect takes a player offline. Calling it for a player that is
// not online does nothing.
func (gm *GameManager) handleDisconnect(ctx context.Context, uid string, nowMs int64) {
	player, ok := gm.roster.Get(uid)
	if !ok {
		log.Debug("Ignoring disconnect for offline player %s", uid)
		return
	}
	gm.roster.Remove(uid)

	for _, res := range gm.exchanges.CancelInvolving(uid) {
		gm.notifyCancelled(res.Exchange, uid, player.Name)
	}
	gm.requestCounts.Clear(uid)
	gm.pingLimiter.Forget(uid)
	gm.chatLimiter.Forget(uid)
	gm.beacons.Forget(uid)
	delete(gm.manualCodes, uid)
	if err := gm.world.Delete(ctx, uid); err != nil {
		log.Error("Failed to delete world state for %s: %v", uid, err)
	}

	if res, ok := gm.parties.Disconnect(uid); ok {
		gm.applyPartyResult(res)
	}

	log.Info("Player %s disconnected, %d online", uid, gm.roster.Len())
}

// notifyCancelled tells the counterparty of goneUID that the exchange was
// dropped.
func (gm *GameManager) notifyCancelled(e exchange.Exchange, goneUID, goneName string) {
	other := e.InitiatorUID
	if other == goneUID {
		other = e.TargetUID
	}
	switch e.Kind {
	case exchange.KindTeleport:
		gm.teleportResult(other, false, "Request cancelled - %s went offline.", goneName)
	case exchange.KindPartyInvite:
		gm.partyResult(other, false, "Party invite cancelled - %s went offline.", goneName)
	}
}

// applyPartyResult sends the snapshot to the online members, tells removed
// players why and invalidates beacon baselines.
func (gm *GameManager) applyPartyResult(res party.Result) {
	if res.State != nil {
		msg := partyStateMessage(res.State)
		for _, uid := range res.Recipients {
			gm.send(uid, messages.MessageTypeServerPartyState, msg)
		}
	}
	for _, removal := range res.Removed {
		gm.send(removal.UID, messages.MessageTypeServerPartyDisbanded, &messages.ServerPartyDisbanded{
			Reason: removal.Reason,
		})
	}
	gm.beacons.MarkFullSync(res.FullSync...)
}

// resyncParty re-sends the party state once the reconnecting client has had
// time to settle.
func (gm *GameManager) resyncParty(uid string) {
	if !gm.roster.IsOnline(uid) {
		return
	}
	partyID, ok := gm.parties.PartyOf(uid)
	if !ok {
		return
	}
	snapshot, ok := gm.parties.Snapshot(partyID)
	if !ok {
		return
	}
	msg := partyStateMessage(snapshot)
	for _, member := range gm.parties.OnlineMembers(partyID) {
		gm.send(member, messages.MessageTypeServerPartyState, msg)
	}
	log.Trace("Resynced party %d after %s reconnected", partyID, uid)
}

func partyStateMessage(s *party.Snapshot) *messages.ServerPartyState {
	return &messages.ServerPartyState{
		PartyID:            s.PartyID,
		LeaderUID:          s.LeaderUID,
		LeaderName:         s.LeaderName,
		OriginalLeaderUID:  s.OriginalLeaderUID,
		OriginalLeaderName: s.OriginalLeaderName,
		MemberUIDs:         s.MemberUIDs,
		MemberNames:        s.MemberNames,
		MemberOnline:       s.MemberOnline,
	}
}
