// Package exchange holds outstanding request/response handshakes that expire
// if the addressed player does not answer in time.
package exchange

import (
	"errors"
	"sort"

	"github.com/cbodonnell/buddybeacon/pkg/messages"
)

var (
	// ErrNotFound is returned for an unknown id, including one that was
	// already resolved, cancelled or swept.
	ErrNotFound = errors.New("exchange not found or expired")
	// ErrNotAddressee is returned when someone other than the target answers.
	ErrNotAddressee = errors.New("responder is not the target of the exchange")
)

type Kind int

const (
	KindTeleport Kind = iota
	KindPartyInvite
)

func (k Kind) String() string {
	switch k {
	case KindTeleport:
		return "teleport"
	case KindPartyInvite:
		return "party-invite"
	default:
		return "unknown"
	}
}

type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeDeclined
	OutcomeTimedOut
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDeclined:
		return "declined"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Exchange is one pending handshake. PartyID is only meaningful for
// KindPartyInvite (0 when the inviter had no party yet) and TeleportKind
// only for KindTeleport (TeleportKindNone otherwise).
type Exchange struct {
	ID           uint64
	Kind         Kind
	InitiatorUID string
	TargetUID    string
	PartyID      uint64
	TeleportKind messages.TeleportKind
	CreatedAtMs  int64
}

// Resolution is the single outcome produced for an exchange.
type Resolution struct {
	Exchange Exchange
	Outcome  Outcome
}

// Registry is not safe for concurrent use. It is owned by the game loop.
type Registry struct {
	timeoutMs int64
	nextID    uint64
	pending   map[uint64]*Exchange
}

func NewRegistry(timeoutMs int64) *Registry {
	return &Registry{
		timeoutMs: timeoutMs,
		nextID:    1,
		pending:   make(map[uint64]*Exchange),
	}
}

func (r *Registry) TimeoutMs() int64 {
	return r.timeoutMs
}

// Open registers a new exchange and returns it. Ids are never reused.
func (r *Registry) Open(kind Kind, initiatorUID, targetUID string, partyID uint64, teleportKind messages.TeleportKind, nowMs int64) Exchange {
	e := &Exchange{
		ID:           r.nextID,
		Kind:         kind,
		InitiatorUID: initiatorUID,
		TargetUID:    targetUID,
		PartyID:      partyID,
		TeleportKind: teleportKind,
		CreatedAtMs:  nowMs,
	}
	r.nextID++
	r.pending[e.ID] = e
	return *e
}

// Resolve answers the exchange on behalf of responderUID. The entry is
// removed before the resolution is returned, so any later call with the
// same id yields ErrNotFound.
func (r *Registry) Resolve(id uint64, responderUID string, accepted bool) (Resolution, error) {
	e, ok := r.pending[id]
	if !ok {
		return Resolution{}, ErrNotFound
	}
	if e.TargetUID != responderUID {
		return Resolution{}, ErrNotAddressee
	}
	delete(r.pending, id)

	outcome := OutcomeDeclined
	if accepted {
		outcome = OutcomeAccepted
	}
	return Resolution{Exchange: *e, Outcome: outcome}, nil
}

func (r *Registry) Get(id uint64) (Exchange, bool) {
	e, ok := r.pending[id]
	if !ok {
		return Exchange{}, false
	}
	return *e, true
}

func (r *Registry) Len() int {
	return len(r.pending)
}

// Cancel removes the exchange without an answer.
func (r *Registry) Cancel(id uint64) (Resolution, bool) {
	e, ok := r.pending[id]
	if !ok {
		return Resolution{}, false
	}
	delete(r.pending, id)
	return Resolution{Exchange: *e, Outcome: OutcomeCancelled}, true
}

// CancelInvolving removes every exchange where uid is the initiator or the
// target, in id order.
func (r *Registry) CancelInvolving(uid string) []Resolution {
	return r.removeWhere(OutcomeCancelled, func(e *Exchange) bool {
		return e.InitiatorUID == uid || e.TargetUID == uid
	})
}

// CancelInitiated removes every exchange of the given kind opened by uid,
// in id order.
func (r *Registry) CancelInitiated(uid string, kind Kind) []Resolution {
	return r.removeWhere(OutcomeCancelled, func(e *Exchange) bool {
		return e.Kind == kind && e.InitiatorUID == uid
	})
}

// Sweep removes every exchange older than the timeout, in id order.
// An exchange created at t expires on the first sweep with now > t+timeout.
func (r *Registry) Sweep(nowMs int64) []Resolution {
	return r.removeWhere(OutcomeTimedOut, func(e *Exchange) bool {
		return nowMs-e.CreatedAtMs > r.timeoutMs
	})
}

func (r *Registry) removeWhere(outcome Outcome, match func(e *Exchange) bool) []Resolution {
	var ids []uint64
	for id, e := range r.pending {
		if match(e) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	resolutions := make([]Resolution, 0, len(ids))
	for _, id := range ids {
		resolutions = append(resolutions, Resolution{Exchange: *r.pending[id], Outcome: outcome})
		delete(r.pending, id)
	}
	return resolutions
}
