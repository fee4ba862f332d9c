package game

import (
	"errors"

	"github.com/cbodonnell/buddybeacon/pkg/exchange"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/party"
)

// partyErrorMessage turns a directory rejection into the text shown to the
// actor.
func partyErrorMessage(err error) string {
	switch {
	case errors.Is(err, party.ErrNotLeader):
		return "Only the party leader can do that."
	case errors.Is(err, party.ErrNotInParty):
		return "You are not in a party."
	case errors.Is(err, party.ErrAlreadyInParty):
		return "That player is already in a party."
	case errors.Is(err, party.ErrNotMember):
		return "That player is not in your party."
	case errors.Is(err, party.ErrSelfTarget):
		return "You cannot target yourself."
	case errors.Is(err, party.ErrPartyFull):
		return "Your party is full."
	case errors.Is(err, party.ErrInviteStale):
		return "Party invite is no longer valid."
	default:
		return "Party action failed."
	}
}

func (gm *GameManager) handlePartyInvite(uid string, req *messages.ClientPartyInvite, nowMs int64) {
	if gm.silences.IsSilenced(req.TargetUID, uid, nowMs) {
		log.Debug("Party invite from %s to %s dropped: silenced", uid, req.TargetUID)
		gm.partyResult(uid, false, notAcceptingRequests)
		return
	}
	if req.TargetUID != uid && !gm.roster.IsOnline(req.TargetUID) {
		gm.partyResult(uid, false, "Target player is not online.")
		return
	}
	partyID, err := gm.parties.CanInvite(uid, req.TargetUID)
	if err != nil {
		log.Debug("Party invite from %s to %s rejected: %v", uid, req.TargetUID, err)
		gm.partyResult(uid, false, partyErrorMessage(err))
		return
	}

	count := gm.requestCounts.Increment(req.TargetUID, uid)
	e := gm.exchanges.Open(exchange.KindPartyInvite, uid, req.TargetUID, partyID, messages.TeleportKindNone, nowMs)
	gm.send(req.TargetUID, messages.MessageTypeServerPartyInvitePrompt, &messages.ServerPartyInvitePrompt{
		InviterName:   gm.roster.Name(uid),
		InviterUID:    uid,
		InviteID:      e.ID,
		RequestedAtMs: nowMs,
		RequestCount:  count,
	})
	gm.partyResult(uid, true, "Party invite sent to %s.", gm.roster.Name(req.TargetUID))
	log.Debug("Opened party invite %d from %s to %s (count %d)", e.ID, uid, req.TargetUID, count)
}

func (gm *GameManager) handlePartyInviteResponse(uid string, resp *messages.ClientPartyInviteResponse, nowMs int64) {
	res, ok := gm.resolve(exchange.KindPartyInvite, resp.InviteID, uid, resp.Accepted)
	if !ok {
		gm.partyResult(uid, false, "Party invite expired.")
		return
	}
	e := res.Exchange
	inviter := e.InitiatorUID
	if !gm.roster.IsOnline(inviter) {
		gm.partyResult(uid, false, "Inviter is no longer online.")
		return
	}
	inviterName, targetName := gm.roster.Name(inviter), gm.roster.Name(uid)
	if res.Outcome == exchange.OutcomeDeclined {
		gm.partyResult(inviter, false, "%s declined your party invite.", targetName)
		gm.partyResult(uid, true, "Party invite declined.")
		return
	}

	result, err := gm.parties.AcceptInvite(inviter, inviterName, uid, targetName, e.PartyID, nowMs)
	if err != nil {
		log.Debug("Party invite %d could not be accepted: %v", e.ID, err)
		gm.partyResult(uid, false, "Could not join the party: %s", partyErrorMessage(err))
		gm.partyResult(inviter, false, "%s could not join your party.", targetName)
		return
	}
	gm.applyPartyResult(result)
	gm.partyResult(inviter, true, "%s joined your party.", targetName)
	gm.partyResult(uid, true, "You joined %s's party.", inviterName)
	if result.Created {
		log.Info("Party %d created by %s", result.PartyID, inviter)
	}
	log.Info("Player %s joined party %d", uid, result.PartyID)
}

func (gm *GameManager) handlePartyLeave(uid string) {
	res, err := gm.parties.Leave(uid)
	if err != nil {
		gm.partyResult(uid, false, partyErrorMessage(err))
		return
	}
	// invites sent on behalf of the old party can no longer be honored
	for _, cancelled := range gm.exchanges.CancelInitiated(uid, exchange.KindPartyInvite) {
		gm.partyResult(cancelled.Exchange.TargetUID, false, "Party invite expired.")
	}
	gm.applyPartyResult(res)
	gm.partyResult(uid, true, "You left the party.")
	gm.logPartyChange(res, uid, "left")
}

func (gm *GameManager) handlePartyKick(uid string, req *messages.ClientPartyKick) {
	targetName := gm.displayName(req.TargetUID)
	res, err := gm.parties.Kick(uid, req.TargetUID)
	if err != nil {
		gm.partyResult(uid, false, partyErrorMessage(err))
		return
	}
	gm.applyPartyResult(res)
	gm.partyResult(uid, true, "Kicked %s from the party.", targetName)
	gm.logPartyChange(res, req.TargetUID, "was kicked from")
}

func (gm *GameManager) handlePartyMakeLead(uid string, req *messages.ClientPartyMakeLead) {
	res, err := gm.parties.MakeLead(uid, req.TargetUID)
	if err != nil {
		gm.partyResult(uid, false, partyErrorMessage(err))
		return
	}
	gm.applyPartyResult(res)
	gm.partyResult(uid, true, "%s is now the party leader.", gm.displayName(req.TargetUID))
	log.Info("Party %d leadership moved from %s to %s", res.PartyID, uid, req.TargetUID)
}

func (gm *GameManager) logPartyChange(res party.Result, uid, verb string) {
	if res.Disbanded {
		log.Info("Player %s %s party %d, party disbanded", uid, verb, res.PartyID)
		return
	}
	log.Info("Player %s %s party %d", uid, verb, res.PartyID)
}
