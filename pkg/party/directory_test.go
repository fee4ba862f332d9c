package party

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type presence map[string]bool

func (p presence) IsOnline(uid string) bool {
	return p[uid]
}

func newTestDirectory(maxSize int, online ...string) (*Directory, presence) {
	p := presence{}
	for _, uid := range online {
		p[uid] = true
	}
	return NewDirectory(p, maxSize), p
}

// checkIndex verifies that the index and the member lists agree.
func checkIndex(t *testing.T, d *Directory) {
	t.Helper()
	seen := map[string]uint64{}
	for id, p := range d.parties {
		require.GreaterOrEqual(t, p.Size(), 2, "party %d is not a steady state", id)
		require.True(t, p.HasMember(p.LeaderUID), "leader of party %d is not a member", id)
		for _, m := range p.MemberUIDs {
			_, dup := seen[m]
			require.False(t, dup, "%s is in two parties", m)
			seen[m] = id
			require.Equal(t, id, d.index[m], "index entry for %s", m)
		}
	}
	require.Equal(t, len(seen), len(d.index))
}

func join(t *testing.T, d *Directory, leader string, members ...string) uint64 {
	t.Helper()
	var id uint64
	for _, m := range members {
		partyID, err := d.CanInvite(leader, m)
		require.NoError(t, err)
		res, err := d.AcceptInvite(leader, "name-"+leader, m, "name-"+m, partyID, 0)
		require.NoError(t, err)
		id = res.PartyID
	}
	checkIndex(t, d)
	return id
}

func TestDirectory_AcceptInviteCreatesParty(t *testing.T) {
	d, _ := newTestDirectory(0, "a", "b")

	partyID, err := d.CanInvite("a", "b")
	require.NoError(t, err)
	assert.Zero(t, partyID)

	res, err := d.AcceptInvite("a", "Ann", "b", "Bob", 0, 42)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.ElementsMatch(t, []string{"a", "b"}, res.Recipients)
	assert.ElementsMatch(t, []string{"a", "b"}, res.FullSync)
	require.NotNil(t, res.State)
	assert.Equal(t, "a", res.State.LeaderUID)
	assert.Equal(t, "Ann", res.State.LeaderName)
	assert.Equal(t, "a", res.State.OriginalLeaderUID)
	assert.Equal(t, []string{"a", "b"}, res.State.MemberUIDs)
	assert.Equal(t, []string{"Ann", "Bob"}, res.State.MemberNames)
	assert.Equal(t, []bool{true, true}, res.State.MemberOnline)
	checkIndex(t, d)

	name, ok := d.MemberName("b")
	assert.True(t, ok)
	assert.Equal(t, "Bob", name)
	_, ok = d.MemberName("c")
	assert.False(t, ok)

	partyID, err = d.CanInvite("a", "c")
	require.NoError(t, err)
	assert.Equal(t, res.PartyID, partyID)
}

func TestDirectory_InviteValidation(t *testing.T) {
	d, _ := newTestDirectory(3, "a", "b", "c", "d", "e", "f")
	join(t, d, "a", "b")
	join(t, d, "e", "f")

	tests := []struct {
		name    string
		inviter string
		target  string
		wantErr error
	}{
		{name: "self", inviter: "c", target: "c", wantErr: ErrSelfTarget},
		{name: "not leader", inviter: "b", target: "c", wantErr: ErrNotLeader},
		{name: "target partied", inviter: "a", target: "e", wantErr: ErrAlreadyInParty},
		{name: "solo inviter", inviter: "c", target: "d"},
		{name: "leader", inviter: "a", target: "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.CanInvite(tt.inviter, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	join(t, d, "a", "c")
	_, err := d.CanInvite("a", "d")
	assert.ErrorIs(t, err, ErrPartyFull)
}

func TestDirectory_AcceptRechecks(t *testing.T) {
	d, _ := newTestDirectory(0, "a", "b", "c", "d")

	// c joined another party while a's invite was pending
	partyID, err := d.CanInvite("a", "c")
	require.NoError(t, err)
	join(t, d, "b", "c")
	_, err = d.AcceptInvite("a", "A", "c", "C", partyID, 0)
	assert.ErrorIs(t, err, ErrAlreadyInParty)

	// a lost leadership while the invite was pending
	join(t, d, "b", "a")
	id, _ := d.PartyOf("b")
	_, err = d.AcceptInvite("a", "A", "d", "D", id, 0)
	assert.ErrorIs(t, err, ErrNotLeader)

	// the party the invite was issued for is gone
	_, err = d.AcceptInvite("d", "D", "x", "X", 999, 0)
	assert.ErrorIs(t, err, ErrInviteStale)
	checkIndex(t, d)
}

func TestDirectory_DisbandOnAttrition(t *testing.T) {
	t.Run("party of two", func(t *testing.T) {
		d, _ := newTestDirectory(0, "a", "b")
		join(t, d, "a", "b")

		res, err := d.Leave("b")
		require.NoError(t, err)
		assert.True(t, res.Disbanded)
		assert.Nil(t, res.State)
		assert.Equal(t, []Removal{{UID: "b", Reason: ReasonLeft}, {UID: "a", Reason: ReasonDisbanded}}, res.Removed)

		_, ok := d.PartyOf("a")
		assert.False(t, ok)
		_, ok = d.PartyOf("b")
		assert.False(t, ok)
		assert.Zero(t, d.Len())
		checkIndex(t, d)
	})

	t.Run("leader leaves party of two", func(t *testing.T) {
		d, _ := newTestDirectory(0, "a", "b")
		join(t, d, "a", "b")

		res, err := d.Leave("a")
		require.NoError(t, err)
		assert.True(t, res.Disbanded)
		assert.Equal(t, []Removal{{UID: "a", Reason: ReasonLeft}, {UID: "b", Reason: ReasonLeaderLeft}}, res.Removed)
		assert.Zero(t, d.Len())
		checkIndex(t, d)
	})

	t.Run("party of three", func(t *testing.T) {
		d, _ := newTestDirectory(0, "a", "b", "c")
		join(t, d, "a", "b", "c")

		res, err := d.Leave("b")
		require.NoError(t, err)
		assert.False(t, res.Disbanded)
		require.NotNil(t, res.State)
		assert.Equal(t, []string{"a", "c"}, res.State.MemberUIDs)
		assert.Equal(t, []string{"a", "c"}, res.Recipients)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, res.FullSync)
		checkIndex(t, d)

		_, err = d.Leave("b")
		assert.ErrorIs(t, err, ErrNotInParty, "second leave is a safe no-op")
	})
}

func TestDirectory_KickAndMakeLead(t *testing.T) {
	d, _ := newTestDirectory(0, "a", "b", "c", "x")
	join(t, d, "a", "b", "c")

	_, err := d.Kick("b", "c")
	assert.ErrorIs(t, err, ErrNotLeader)
	_, err = d.Kick("a", "a")
	assert.ErrorIs(t, err, ErrSelfTarget)
	_, err = d.Kick("a", "x")
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = d.Kick("x", "a")
	assert.ErrorIs(t, err, ErrNotInParty)

	res, err := d.MakeLead("a", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", res.State.LeaderUID)
	assert.Equal(t, "b", res.State.OriginalLeaderUID)

	res, err = d.Kick("b", "a")
	require.NoError(t, err)
	assert.Equal(t, []Removal{{UID: "a", Reason: ReasonKicked}}, res.Removed)
	assert.Equal(t, []string{"b", "c"}, res.State.MemberUIDs)

	_, err = d.Kick("b", "a")
	assert.ErrorIs(t, err, ErrNotMember, "duplicate kick is a safe no-op")
	checkIndex(t, d)
}

func TestDirectory_LeadershipSuccession(t *testing.T) {
	t.Run("acting leader snaps back", func(t *testing.T) {
		d, online := newTestDirectory(0, "a", "b", "c")
		join(t, d, "a", "b", "c")

		online["a"] = false
		res, ok := d.Disconnect("a")
		require.True(t, ok)
		assert.Equal(t, "b", res.State.LeaderUID)
		assert.Equal(t, "a", res.State.OriginalLeaderUID)
		assert.Equal(t, []bool{false, true, true}, res.State.MemberOnline)
		assert.Equal(t, []string{"a", "b", "c"}, res.State.MemberUIDs, "offline member is retained")
		assert.Equal(t, []string{"b", "c"}, res.Recipients)

		online["a"] = true
		res, ok = d.Connect("a", "Ann")
		require.True(t, ok)
		assert.Equal(t, "a", res.State.LeaderUID)
		assert.Equal(t, "Ann", res.State.LeaderName)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, res.FullSync)
	})

	t.Run("skips offline members", func(t *testing.T) {
		d, online := newTestDirectory(0, "a", "b", "c")
		join(t, d, "a", "b", "c")

		online["b"] = false
		_, ok := d.Disconnect("b")
		require.True(t, ok)
		online["a"] = false
		res, _ := d.Disconnect("a")
		assert.Equal(t, "c", res.State.LeaderUID)
	})

	t.Run("permanent transfer is not undone", func(t *testing.T) {
		d, online := newTestDirectory(0, "a", "b", "c")
		join(t, d, "a", "b", "c")

		_, err := d.MakeLead("a", "b")
		require.NoError(t, err)
		online["a"] = false
		_, _ = d.Disconnect("a")
		online["a"] = true
		res, _ := d.Connect("a", "")
		assert.Equal(t, "b", res.State.LeaderUID)
	})

	t.Run("leaving leader hands over", func(t *testing.T) {
		d, online := newTestDirectory(0, "a", "b", "c")
		join(t, d, "a", "b", "c")
		online["b"] = false

		res, err := d.Leave("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, res.State.MemberUIDs)
		assert.Equal(t, "b", res.State.LeaderUID, "first remaining member even when offline")
		assert.Equal(t, "b", res.State.OriginalLeaderUID)
		assert.Equal(t, []string{"c"}, res.Recipients)

		online["b"] = true
		res, ok := d.Connect("b", "")
		require.True(t, ok)
		assert.Equal(t, "b", res.State.LeaderUID)
		assert.Equal(t, "b", res.State.OriginalLeaderUID)
	})

	t.Run("kicked member does not take over", func(t *testing.T) {
		d, _ := newTestDirectory(0, "a", "b", "c")
		join(t, d, "a", "b", "c")
		_, err := d.MakeLead("a", "c")
		require.NoError(t, err)

		res, err := d.Kick("c", "a")
		require.NoError(t, err)
		assert.Equal(t, "c", res.State.LeaderUID)
		assert.Equal(t, "c", res.State.OriginalLeaderUID)
	})

	t.Run("nobody online", func(t *testing.T) {
		d, online := newTestDirectory(0, "a", "b", "c")
		join(t, d, "a", "b", "c")
		online["b"] = false
		online["c"] = false

		res, err := d.Leave("a")
		require.NoError(t, err)
		assert.Equal(t, "b", res.State.LeaderUID)
		assert.Empty(t, res.Recipients)
	})
}

func TestDirectory_ConnectDisconnectSolo(t *testing.T) {
	d, _ := newTestDirectory(0, "a")
	_, ok := d.Disconnect("a")
	assert.False(t, ok)
	_, ok = d.Connect("a", "Ann")
	assert.False(t, ok)
}

func TestDirectory_Parties(t *testing.T) {
	d, _ := newTestDirectory(0)
	for i := 0; i < 3; i++ {
		join(t, d, fmt.Sprintf("l%d", i), fmt.Sprintf("m%d", i))
	}
	parties := d.Parties()
	require.Len(t, parties, 3)
	for i, s := range parties {
		assert.Equal(t, uint64(i+1), s.PartyID)
		assert.Equal(t, []bool{false, false}, s.MemberOnline)
	}
	assert.Equal(t, []string{"l1", "m1"}, d.Members(2))
	assert.Empty(t, d.OnlineMembers(2))
}
