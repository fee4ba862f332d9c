package game

import (
	"context"
	"fmt"

	"github.com/cbodonnell/buddybeacon/pkg/beacon"
	"github.com/cbodonnell/buddybeacon/pkg/game/types"
	"github.com/cbodonnell/buddybeacon/pkg/log"
)

// handleAdminQuery answers a query from the admin API. Share codes are never
// exposed.
func (gm *GameManager) handleAdminQuery(ctx context.Context, q *types.AdminQuery) {
	var resp types.AdminResponse
	switch q.Kind {
	case types.AdminQueryPlayers:
		resp.Players = gm.playerInfos(ctx)
	case types.AdminQueryParties:
		for _, s := range gm.parties.Parties() {
			resp.Parties = append(resp.Parties, types.PartyInfo{
				PartyID:           s.PartyID,
				LeaderUID:         s.LeaderUID,
				OriginalLeaderUID: s.OriginalLeaderUID,
				MemberUIDs:        s.MemberUIDs,
				MemberNames:       s.MemberNames,
				MemberOnline:      s.MemberOnline,
			})
		}
	case types.AdminQueryGroups:
		var subjects []beacon.Subject
		for _, p := range gm.roster.List() {
			subjects = append(subjects, beacon.Subject{UID: p.UID, Code: gm.effectiveCode(p.UID)})
		}
		for _, g := range gm.beacons.Groups(subjects) {
			info := types.GroupInfo{Size: len(g.Members)}
			for _, m := range g.Members {
				info.MemberUIDs = append(info.MemberUIDs, m.UID)
			}
			resp.Groups = append(resp.Groups, info)
		}
	case types.AdminGiveItem:
		if _, ok := itemNames[q.Item]; !ok || q.UID == "" {
			resp.Err = fmt.Errorf("failed to give %q to %q: %w", q.Item, q.UID, types.ErrUnknownItem)
			break
		}
		gm.inventory.Give(q.UID, q.Item)
		resp.Items = gm.inventory.Items(q.UID)
		log.Info("Gave %s to %s", q.Item, q.UID)
	default:
		resp.Err = fmt.Errorf("unknown admin query kind: %d", q.Kind)
	}

	select {
	case q.Resp <- resp:
	default:
		log.Warn("Dropped admin response, channel full")
	}
}

func (gm *GameManager) playerInfos(ctx context.Context) []types.PlayerInfo {
	players := make([]types.PlayerInfo, 0, gm.roster.Len())
	for _, p := range gm.roster.List() {
		info := types.PlayerInfo{
			UID:           p.UID,
			Name:          p.Name,
			HasShareCode:  gm.effectiveCode(p.UID) != "",
			ConnectedAtMs: p.ConnectedAtMs,
		}
		if partyID, ok := gm.parties.PartyOf(p.UID); ok {
			info.PartyID = partyID
		}
		if st, err := gm.world.Get(ctx, p.UID); err == nil {
			info.X, info.Y, info.Z = st.Pos.X, st.Pos.Y, st.Pos.Z
		}
		players = append(players, info)
	}
	return players
}
