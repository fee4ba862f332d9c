package game

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cbodonnell/buddybeacon/pkg/beacon"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/state"
)

const maxShareCodeLength = 32

func (gm *GameManager) handlePlayerUpdate(ctx context.Context, uid string, u *messages.ClientPlayerUpdate, nowMs int64) {
	err := gm.world.Set(ctx, uid, state.PlayerState{
		Pos: beacon.Vec3{X: u.X, Y: u.Y, Z: u.Z},
		Vitals: beacon.Vitals{
			Health:        u.Health,
			MaxHealth:     u.MaxHealth,
			Saturation:    u.Saturation,
			MaxSaturation: u.MaxSaturation,
		},
		UpdatedAtMs: nowMs,
	})
	if err != nil {
		log.Error("Failed to store world state for %s: %v", uid, err)
	}
}

// normalizeShareCode trims the code and reports false when it is too long.
func normalizeShareCode(code string) (string, bool) {
	code = strings.TrimSpace(code)
	return code, utf8.RuneCountInString(code) <= maxShareCodeLength
}

func (gm *GameManager) handleBeaconCodeSet(uid string, req *messages.ClientBeaconCodeSet) {
	code, ok := normalizeShareCode(req.Code)
	if !ok {
		log.Debug("Share code from %s is too long", uid)
		return
	}
	if code == "" {
		delete(gm.manualCodes, uid)
	} else {
		gm.manualCodes[uid] = code
	}
	gm.beacons.MarkFullSync(uid)
	log.Debug("Player %s set a manual share code", uid)
}

func (gm *GameManager) handleBeaconBandSetCode(uid string, req *messages.ClientBeaconBandSetCode) {
	code, ok := normalizeShareCode(req.Code)
	if !ok {
		log.Debug("Band code from %s is too long", uid)
		return
	}
	if !gm.inventory.SetShareCode(uid, code) {
		log.Debug("Player %s has no beacon band to write a code on", uid)
		return
	}
	gm.beacons.MarkFullSync(uid)
}

// effectiveCode returns the manual code if one is set, otherwise the code on
// the held beacon band.
func (gm *GameManager) effectiveCode(uid string) string {
	if code, ok := gm.manualCodes[uid]; ok {
		return code
	}
	return gm.inventory.ShareCode(uid)
}

// subjects lists every online player with a code and a known position, in
// join order.
func (gm *GameManager) subjects(ctx context.Context) []beacon.Subject {
	var subjects []beacon.Subject
	for _, p := range gm.roster.List() {
		code := gm.effectiveCode(p.UID)
		if code == "" {
			continue
		}
		st, err := gm.world.Get(ctx, p.UID)
		if err != nil {
			continue
		}
		subjects = append(subjects, beacon.Subject{
			UID:    p.UID,
			Name:   p.Name,
			Code:   code,
			Pos:    st.Pos,
			Vitals: st.Vitals,
		})
	}
	return subjects
}

func (gm *GameManager) broadcastBeacons(ctx context.Context, nowMs int64) {
	packets := gm.beacons.Tick(nowMs, gm.subjects(ctx))
	for _, p := range packets {
		gm.send(p.RecipientUID, messages.MessageTypeServerBeaconPosition, p.Message())
	}
	log.Trace("Beacon tick at %d sent %d packets", nowMs, len(packets))
}

// codeGroup returns the online players sharing uid's effective code,
// including uid itself. It is empty when uid has no code.
func (gm *GameManager) codeGroup(uid string) []string {
	code := gm.effectiveCode(uid)
	if code == "" {
		return nil
	}
	var members []string
	for _, p := range gm.roster.List() {
		if gm.effectiveCode(p.UID) == code {
			members = append(members, p.UID)
		}
	}
	return members
}

// handleMapPing relays a ping to the sender's code group. Disabled,
// ungrouped and rate limited pings are dropped without telling the sender.
func (gm *GameManager) handleMapPing(uid string, ping *messages.ClientMapPing, nowMs int64) {
	if !gm.config.MapPings.Enabled {
		return
	}
	members := gm.codeGroup(uid)
	if len(members) == 0 {
		return
	}
	if !gm.pingLimiter.TryConsume(uid, nowMs) {
		log.Debug("Map ping from %s rate limited", uid)
		return
	}
	msg := &messages.ServerMapPing{
		SenderName: gm.roster.Name(uid),
		SenderUID:  uid,
		X:          ping.X,
		Z:          ping.Z,
		Timestamp:  nowMs,
	}
	for _, member := range members {
		gm.send(member, messages.MessageTypeServerMapPing, msg)
	}
}

func (gm *GameManager) handlePlayerListRequest(uid string) {
	resp := &messages.ServerPlayerListResponse{
		Names: []string{},
		UIDs:  []string{},
	}
	for _, p := range gm.roster.List() {
		if p.UID == uid {
			continue
		}
		resp.Names = append(resp.Names, p.Name)
		resp.UIDs = append(resp.UIDs, p.UID)
	}
	gm.send(uid, messages.MessageTypeServerPlayerListResponse, resp)
}
