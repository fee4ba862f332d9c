package party

// Party is a consent-formed group. MemberUIDs is in join order and retains
// offline members until they leave, are kicked or the party disbands.
type Party struct {
	ID                uint64
	OriginalLeaderUID string
	LeaderUID         string
	MemberUIDs        []string
	MemberNames       map[string]string
	CreatedAtMs       int64
}

func newParty(id uint64, leaderUID, leaderName string, nowMs int64) *Party {
	return &Party{
		ID:                id,
		OriginalLeaderUID: leaderUID,
		LeaderUID:         leaderUID,
		MemberUIDs:        []string{leaderUID},
		MemberNames:       map[string]string{leaderUID: leaderName},
		CreatedAtMs:       nowMs,
	}
}

func (p *Party) HasMember(uid string) bool {
	return p.indexOf(uid) >= 0
}

func (p *Party) IsLeader(uid string) bool {
	return p.LeaderUID == uid
}

func (p *Party) Size() int {
	return len(p.MemberUIDs)
}

func (p *Party) indexOf(uid string) int {
	for i, m := range p.MemberUIDs {
		if m == uid {
			return i
		}
	}
	return -1
}

func (p *Party) addMember(uid, name string) {
	p.MemberUIDs = append(p.MemberUIDs, uid)
	p.MemberNames[uid] = name
}

func (p *Party) removeMember(uid string) {
	i := p.indexOf(uid)
	if i < 0 {
		return
	}
	p.MemberUIDs = append(p.MemberUIDs[:i], p.MemberUIDs[i+1:]...)
	delete(p.MemberNames, uid)
}

// firstOnline returns the first member in join order, other than skip, that
// presence reports online.
func (p *Party) firstOnline(presence Presence, skip string) (string, bool) {
	for _, m := range p.MemberUIDs {
		if m != skip && presence.IsOnline(m) {
			return m, true
		}
	}
	return "", false
}

// Snapshot is the full, authoritative view of a party sent to its members.
type Snapshot struct {
	PartyID            uint64
	LeaderUID          string
	LeaderName         string
	OriginalLeaderUID  string
	OriginalLeaderName string
	MemberUIDs         []string
	MemberNames        []string
	MemberOnline       []bool
}

func (p *Party) snapshot(presence Presence) *Snapshot {
	s := &Snapshot{
		PartyID:            p.ID,
		LeaderUID:          p.LeaderUID,
		LeaderName:         p.MemberNames[p.LeaderUID],
		OriginalLeaderUID:  p.OriginalLeaderUID,
		OriginalLeaderName: p.MemberNames[p.OriginalLeaderUID],
		MemberUIDs:         make([]string, len(p.MemberUIDs)),
		MemberNames:        make([]string, len(p.MemberUIDs)),
		MemberOnline:       make([]bool, len(p.MemberUIDs)),
	}
	for i, m := range p.MemberUIDs {
		s.MemberUIDs[i] = m
		s.MemberNames[i] = p.MemberNames[m]
		s.MemberOnline[i] = presence.IsOnline(m)
	}
	return s
}

func (p *Party) onlineMembers(presence Presence) []string {
	var online []string
	for _, m := range p.MemberUIDs {
		if presence.IsOnline(m) {
			online = append(online, m)
		}
	}
	return online
}
