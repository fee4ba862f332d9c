package game

import (
	"strings"

	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
)

const maxChatRunes = 256

// handleBuddyChat relays a chat line to the sender's party or code group.
// Recipients that silenced the sender do not get it.
func (gm *GameManager) handleBuddyChat(uid string, chat *messages.ClientBuddyChat, nowMs int64) {
	if !gm.config.Chat.Enabled {
		return
	}
	text := strings.TrimSpace(chat.Message)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > maxChatRunes {
		text = string(runes[:maxChatRunes])
	}

	var audience []string
	if chat.IsPartyChat {
		partyID, ok := gm.parties.PartyOf(uid)
		if !ok {
			gm.partyResult(uid, false, "You are not in a party.")
			return
		}
		audience = gm.parties.OnlineMembers(partyID)
	} else {
		audience = gm.codeGroup(uid)
	}

	if !gm.chatLimiter.TryConsume(uid, nowMs) {
		log.Debug("Chat from %s rate limited", uid)
		return
	}

	msg := &messages.ServerBuddyChat{
		SenderName:  gm.roster.Name(uid),
		SenderUID:   uid,
		Message:     text,
		IsPartyChat: chat.IsPartyChat,
		Timestamp:   nowMs,
	}
	delivered := 0
	for _, recipient := range audience {
		if recipient == uid || !gm.addressed(recipient, chat.TargetNames) {
			continue
		}
		if gm.silences.IsSilenced(recipient, uid, nowMs) {
			continue
		}
		gm.send(recipient, messages.MessageTypeServerBuddyChat, msg)
		delivered++
	}
	log.Trace("Chat from %s delivered to %d players", uid, delivered)
}

// addressed reports whether uid is in targetNames. An empty list addresses
// everyone.
func (gm *GameManager) addressed(uid string, targetNames []string) bool {
	if len(targetNames) == 0 {
		return true
	}
	name := gm.roster.Name(uid)
	for _, target := range targetNames {
		if strings.EqualFold(strings.TrimSpace(target), name) {
			return true
		}
	}
	return false
}
