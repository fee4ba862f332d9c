// Package party is the authoritative party directory. It only mutates state
// and reports who must be told what; sending is left to the caller.
package party

import (
	"errors"
	"sort"
)

var (
	ErrNotLeader      = errors.New("only the party leader can do that")
	ErrNotInParty     = errors.New("not in a party")
	ErrAlreadyInParty = errors.New("player is already in a party")
	ErrNotMember      = errors.New("player is not in your party")
	ErrSelfTarget     = errors.New("cannot target yourself")
	ErrPartyFull      = errors.New("party is full")
	ErrInviteStale    = errors.New("invite is no longer valid")
)

// Removal reasons.
const (
	ReasonLeft      = "left"
	ReasonKicked    = "kicked"
	ReasonDisbanded = "disbanded"

	// ReasonLeaderLeft is given to the last member when the acting leader's
	// departure dissolves the party.
	ReasonLeaderLeft = "leader_left"
)

// Presence reports whether a player is currently connected.
type Presence interface {
	IsOnline(uid string) bool
}

// Removal tells a player they are no longer in a party.
type Removal struct {
	UID    string
	Reason string
}

// Result describes the effects of a transition. State is nil when the party
// no longer exists. Recipients are the online members that must receive
// State. FullSync lists every player whose beacon baselines are invalid.
type Result struct {
	PartyID    uint64
	State      *Snapshot
	Recipients []string
	Removed    []Removal
	FullSync   []string
	Created    bool
	Disbanded  bool
}

// Directory owns every party and the player to party index. It is not safe
// for concurrent use.
type Directory struct {
	presence Presence
	maxSize  int
	nextID   uint64
	parties  map[uint64]*Party
	index    map[string]uint64
}

// NewDirectory creates a directory. maxSize 0 means unlimited.
func NewDirectory(presence Presence, maxSize int) *Directory {
	return &Directory{
		presence: presence,
		maxSize:  maxSize,
		nextID:   1,
		parties:  make(map[uint64]*Party),
		index:    make(map[string]uint64),
	}
}

// PartyOf returns the id of the party uid belongs to.
func (d *Directory) PartyOf(uid string) (uint64, bool) {
	id, ok := d.index[uid]
	return id, ok
}

func (d *Directory) partyOf(uid string) *Party {
	id, ok := d.index[uid]
	if !ok {
		return nil
	}
	return d.parties[id]
}

// MemberName returns the name recorded for a party member, online or not.
func (d *Directory) MemberName(uid string) (string, bool) {
	p := d.partyOf(uid)
	if p == nil {
		return "", false
	}
	name, ok := p.MemberNames[uid]
	return name, ok
}

// Snapshot returns the current state of a party.
func (d *Directory) Snapshot(partyID uint64) (*Snapshot, bool) {
	p, ok := d.parties[partyID]
	if !ok {
		return nil, false
	}
	return p.snapshot(d.presence), true
}

// Members returns the members of a party in join order.
func (d *Directory) Members(partyID uint64) []string {
	p, ok := d.parties[partyID]
	if !ok {
		return nil
	}
	return append([]string(nil), p.MemberUIDs...)
}

// OnlineMembers returns the connected members of a party in join order.
func (d *Directory) OnlineMembers(partyID uint64) []string {
	p, ok := d.parties[partyID]
	if !ok {
		return nil
	}
	return p.onlineMembers(d.presence)
}

// Parties returns a snapshot of every party ordered by id.
func (d *Directory) Parties() []*Snapshot {
	ids := make([]uint64, 0, len(d.parties))
	for id := range d.parties {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	snapshots := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		snapshots = append(snapshots, d.parties[id].snapshot(d.presence))
	}
	return snapshots
}

func (d *Directory) Len() int {
	return len(d.parties)
}

// CanInvite validates an invite at request time and returns the inviter's
// current party id, 0 if the inviter has none.
func (d *Directory) CanInvite(inviterUID, targetUID string) (uint64, error) {
	if inviterUID == targetUID {
		return 0, ErrSelfTarget
	}
	var partyID uint64
	if p := d.partyOf(inviterUID); p != nil {
		if !p.IsLeader(inviterUID) {
			return 0, ErrNotLeader
		}
		if d.full(p) {
			return 0, ErrPartyFull
		}
		partyID = p.ID
	}
	if _, ok := d.index[targetUID]; ok {
		return 0, ErrAlreadyInParty
	}
	return partyID, nil
}

func (d *Directory) full(p *Party) bool {
	return d.maxSize > 0 && p.Size() >= d.maxSize
}

// AcceptInvite adds target to the inviter's party, creating it if the inviter
// has none. Everything checked by CanInvite is checked again because state
// may have changed while the invite was pending. invitePartyID is the party
// id the invite was issued for.
func (d *Directory) AcceptInvite(inviterUID, inviterName, targetUID, targetName string, invitePartyID uint64, nowMs int64) (Result, error) {
	if inviterUID == targetUID {
		return Result{}, ErrSelfTarget
	}
	if _, ok := d.index[targetUID]; ok {
		return Result{}, ErrAlreadyInParty
	}

	p := d.partyOf(inviterUID)
	switch {
	case p == nil && invitePartyID != 0:
		// the inviter's party dissolved in the meantime
		return Result{}, ErrInviteStale
	case p != nil && invitePartyID != 0 && p.ID != invitePartyID:
		return Result{}, ErrInviteStale
	case p != nil && !p.IsLeader(inviterUID):
		return Result{}, ErrNotLeader
	case p != nil && d.full(p):
		return Result{}, ErrPartyFull
	}

	created := false
	if p == nil {
		p = newParty(d.nextID, inviterUID, inviterName, nowMs)
		d.nextID++
		d.parties[p.ID] = p
		d.index[inviterUID] = p.ID
		created = true
	}
	p.addMember(targetUID, targetName)
	d.index[targetUID] = p.ID

	return Result{
		PartyID:    p.ID,
		State:      p.snapshot(d.presence),
		Recipients: p.onlineMembers(d.presence),
		FullSync:   append([]string(nil), p.MemberUIDs...),
		Created:    created,
	}, nil
}

// Leave removes uid from its party.
func (d *Directory) Leave(uid string) (Result, error) {
	p := d.partyOf(uid)
	if p == nil {
		return Result{}, ErrNotInParty
	}
	return d.remove(p, uid, ReasonLeft), nil
}

// Kick removes targetUID from the acting leader's party.
func (d *Directory) Kick(leaderUID, targetUID string) (Result, error) {
	p, err := d.leaderTarget(leaderUID, targetUID)
	if err != nil {
		return Result{}, err
	}
	return d.remove(p, targetUID, ReasonKicked), nil
}

// MakeLead permanently transfers leadership to targetUID. A later reconnect
// of the previous leader does not restore it.
func (d *Directory) MakeLead(leaderUID, targetUID string) (Result, error) {
	p, err := d.leaderTarget(leaderUID, targetUID)
	if err != nil {
		return Result{}, err
	}
	p.LeaderUID = targetUID
	p.OriginalLeaderUID = targetUID
	return Result{
		PartyID:    p.ID,
		State:      p.snapshot(d.presence),
		Recipients: p.onlineMembers(d.presence),
	}, nil
}

func (d *Directory) leaderTarget(leaderUID, targetUID string) (*Party, error) {
	p := d.partyOf(leaderUID)
	if p == nil {
		return nil, ErrNotInParty
	}
	if !p.IsLeader(leaderUID) {
		return nil, ErrNotLeader
	}
	if targetUID == leaderUID {
		return nil, ErrSelfTarget
	}
	if !p.HasMember(targetUID) {
		return nil, ErrNotMember
	}
	return p, nil
}

// remove takes uid out of p, handing over leadership if needed and
// disbanding the party when at most one member remains.
func (d *Directory) remove(p *Party, uid, reason string) Result {
	formerMembers := append([]string(nil), p.MemberUIDs...)
	p.removeMember(uid)
	delete(d.index, uid)

	res := Result{
		PartyID:  p.ID,
		Removed:  []Removal{{UID: uid, Reason: reason}},
		FullSync: formerMembers,
	}

	if p.Size() <= 1 {
		remainingReason := ReasonDisbanded
		if p.LeaderUID == uid {
			remainingReason = ReasonLeaderLeft
		}
		for _, m := range p.MemberUIDs {
			delete(d.index, m)
			res.Removed = append(res.Removed, Removal{UID: m, Reason: remainingReason})
		}
		delete(d.parties, p.ID)
		res.Disbanded = true
		return res
	}

	// Departure is permanent, so the longest standing member takes over
	// whether or not they are online.
	if p.LeaderUID == uid {
		p.LeaderUID = p.MemberUIDs[0]
	}
	if p.OriginalLeaderUID == uid {
		p.OriginalLeaderUID = p.LeaderUID
	}

	res.State = p.snapshot(d.presence)
	res.Recipients = p.onlineMembers(d.presence)
	return res
}

// Disconnect keeps uid as a member, moves acting leadership to the first
// other online member if uid held it, and reports the new state. uid must
// already be reported offline by presence.
func (d *Directory) Disconnect(uid string) (Result, bool) {
	p := d.partyOf(uid)
	if p == nil {
		return Result{}, false
	}
	if p.LeaderUID == uid {
		if next, ok := p.firstOnline(d.presence, uid); ok {
			p.LeaderUID = next
		}
	}
	return Result{
		PartyID:    p.ID,
		State:      p.snapshot(d.presence),
		Recipients: p.onlineMembers(d.presence),
	}, true
}

// Connect restores acting leadership to the original leader when it comes
// back, refreshes the member name and flags the whole party for a full
// beacon resync.
func (d *Directory) Connect(uid, name string) (Result, bool) {
	p := d.partyOf(uid)
	if p == nil {
		return Result{}, false
	}
	if name != "" {
		p.MemberNames[uid] = name
	}
	if p.OriginalLeaderUID == uid && p.LeaderUID != uid {
		p.LeaderUID = uid
	}
	return Result{
		PartyID:    p.ID,
		State:      p.snapshot(d.presence),
		Recipients: p.onlineMembers(d.presence),
		FullSync:   append([]string(nil), p.MemberUIDs...),
	}, true
}
