package exchange

import (
	"testing"

	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeoutMs = 30000

func TestRegistry_Lifecycle(t *testing.T) {
	for _, kind := range []Kind{KindTeleport, KindPartyInvite} {
		t.Run(kind.String(), func(t *testing.T) {
			r := NewRegistry(testTimeoutMs)
			e := r.Open(kind, "x", "y", 0, messages.TeleportKindTo, 1000)
			assert.Equal(t, uint64(1), e.ID)
			assert.Equal(t, 1, r.Len())

			res, err := r.Resolve(e.ID, "y", true)
			require.NoError(t, err)
			assert.Equal(t, OutcomeAccepted, res.Outcome)
			assert.Equal(t, "x", res.Exchange.InitiatorUID)
			assert.Equal(t, 0, r.Len())

			_, err = r.Resolve(e.ID, "y", true)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRegistry_ResolveByNonTarget(t *testing.T) {
	r := NewRegistry(testTimeoutMs)
	e := r.Open(KindTeleport, "x", "y", 0, messages.TeleportKindSummon, 0)

	_, err := r.Resolve(e.ID, "x", true)
	assert.ErrorIs(t, err, ErrNotAddressee)
	_, err = r.Resolve(e.ID, "z", false)
	assert.ErrorIs(t, err, ErrNotAddressee)

	got, ok := r.Get(e.ID)
	require.True(t, ok)
	assert.Equal(t, messages.TeleportKindSummon, got.TeleportKind)

	res, err := r.Resolve(e.ID, "y", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, res.Outcome)
}

func TestRegistry_IdsStrictlyIncrease(t *testing.T) {
	r := NewRegistry(testTimeoutMs)
	var last uint64
	for i := 0; i < 5; i++ {
		e := r.Open(KindPartyInvite, "a", "b", 7, messages.TeleportKindNone, 0)
		assert.Greater(t, e.ID, last)
		last = e.ID
		_, err := r.Resolve(e.ID, "b", false)
		require.NoError(t, err)
	}
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry(testTimeoutMs)
	first := r.Open(KindTeleport, "x", "y", 0, messages.TeleportKindTo, 0)
	second := r.Open(KindPartyInvite, "a", "b", 0, messages.TeleportKindNone, 5000)

	assert.Empty(t, r.Sweep(testTimeoutMs), "age equal to the timeout is not expired")

	expired := r.Sweep(testTimeoutMs + 1)
	require.Len(t, expired, 1)
	assert.Equal(t, first.ID, expired[0].Exchange.ID)
	assert.Equal(t, OutcomeTimedOut, expired[0].Outcome)

	_, err := r.Resolve(first.ID, "y", true)
	assert.ErrorIs(t, err, ErrNotFound)

	expired = r.Sweep(5000 + testTimeoutMs + 1)
	require.Len(t, expired, 1)
	assert.Equal(t, second.ID, expired[0].Exchange.ID)
}

// A sweep every 1000ms must expire a 30s exchange within one sweep interval
// of the deadline, whatever the phase between creation and the sweeps.
func TestRegistry_SweepGranularity(t *testing.T) {
	const sweepMs = 1000
	for _, createdAt := range []int64{0, 1, 250, 999} {
		r := NewRegistry(testTimeoutMs)
		e := r.Open(KindTeleport, "x", "y", 0, messages.TeleportKindTo, createdAt)

		var expiredAt int64 = -1
		for now := int64(sweepMs); now < 40000; now += sweepMs {
			if res := r.Sweep(now); len(res) > 0 {
				require.Equal(t, e.ID, res[0].Exchange.ID)
				expiredAt = now
				break
			}
		}
		age := expiredAt - createdAt
		assert.Greater(t, age, int64(testTimeoutMs), "created at %d", createdAt)
		assert.LessOrEqual(t, age, int64(testTimeoutMs+sweepMs), "created at %d", createdAt)
	}
}

func TestRegistry_CancelInvolving(t *testing.T) {
	r := NewRegistry(testTimeoutMs)
	a := r.Open(KindTeleport, "x", "y", 0, messages.TeleportKindTo, 0)
	b := r.Open(KindPartyInvite, "z", "x", 0, messages.TeleportKindNone, 0)
	c := r.Open(KindPartyInvite, "y", "z", 0, messages.TeleportKindNone, 0)

	cancelled := r.CancelInvolving("x")
	require.Len(t, cancelled, 2)
	assert.Equal(t, a.ID, cancelled[0].Exchange.ID)
	assert.Equal(t, b.ID, cancelled[1].Exchange.ID)
	assert.Equal(t, OutcomeCancelled, cancelled[0].Outcome)

	assert.Empty(t, r.CancelInvolving("x"))
	_, ok := r.Get(c.ID)
	assert.True(t, ok)

	res, ok := r.Cancel(c.ID)
	assert.True(t, ok)
	assert.Equal(t, OutcomeCancelled, res.Outcome)
	_, ok = r.Cancel(c.ID)
	assert.False(t, ok)
}

func TestRegistry_CancelInitiated(t *testing.T) {
	r := NewRegistry(testTimeoutMs)
	invite := r.Open(KindPartyInvite, "x", "y", 1, messages.TeleportKindNone, 0)
	r.Open(KindTeleport, "x", "y", 0, messages.TeleportKindTo, 0)
	r.Open(KindPartyInvite, "y", "x", 0, messages.TeleportKindNone, 0)

	cancelled := r.CancelInitiated("x", KindPartyInvite)
	require.Len(t, cancelled, 1)
	assert.Equal(t, invite.ID, cancelled[0].Exchange.ID)
	assert.Equal(t, 2, r.Len())
}
