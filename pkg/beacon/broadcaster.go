// Package beacon computes the periodic position and vitals updates sent to
// players sharing a code. It keeps one baseline per directed
// (recipient, subject) pair and only includes what changed since the last
// value actually sent for that pair.
package beacon

import (
	"fmt"
	"math"

	"github.com/cbodonnell/buddybeacon/pkg/messages"
)

type VitalsPolicy int

const (
	VitalsOnChange VitalsPolicy = iota
	VitalsAlways
	VitalsNever
)

func ParseVitalsPolicy(s string) (VitalsPolicy, error) {
	switch s {
	case "on_change":
		return VitalsOnChange, nil
	case "always":
		return VitalsAlways, nil
	case "never":
		return VitalsNever, nil
	default:
		return VitalsOnChange, fmt.Errorf("unknown vitals policy: %s", s)
	}
}

func (p VitalsPolicy) String() string {
	switch p {
	case VitalsAlways:
		return "always"
	case VitalsNever:
		return "never"
	default:
		return "on_change"
	}
}

type Options struct {
	// IntervalMs is the broadcast period T.
	IntervalMs   int64
	MaxGroupSize int
	// PositionThreshold 0 sends the position on every inclusion check.
	PositionThreshold   float64
	Vitals              VitalsPolicy
	HealthThreshold     float32
	SaturationThreshold float32
	LODEnabled          bool
	LODNear             float64
	LODMid              float64
}

// Entry is one subject included in a packet. Vitals is only meaningful when
// VitalsIncluded is set.
type Entry struct {
	UID            string
	Name           string
	Pos            Vec3
	Vitals         Vitals
	VitalsIncluded bool
	TimestampMs    int64
}

// Packet is the update for one recipient. Packets are never empty.
type Packet struct {
	RecipientUID string
	Code         string
	Entries      []Entry
}

// Message converts the packet to its parallel array wire form.
func (p Packet) Message() *messages.ServerBeaconPosition {
	n := len(p.Entries)
	m := &messages.ServerBeaconPosition{
		Names:         make([]string, n),
		UIDs:          make([]string, n),
		X:             make([]float64, n),
		Y:             make([]float64, n),
		Z:             make([]float64, n),
		Timestamps:    make([]int64, n),
		Health:        make([]float32, n),
		MaxHealth:     make([]float32, n),
		Saturation:    make([]float32, n),
		MaxSaturation: make([]float32, n),
	}
	for i, e := range p.Entries {
		m.Names[i] = e.Name
		m.UIDs[i] = e.UID
		m.X[i] = e.Pos.X
		m.Y[i] = e.Pos.Y
		m.Z[i] = e.Pos.Z
		m.Timestamps[i] = e.TimestampMs
		if e.VitalsIncluded {
			m.Health[i] = e.Vitals.Health
			m.MaxHealth[i] = e.Vitals.MaxHealth
			m.Saturation[i] = e.Vitals.Saturation
			m.MaxSaturation[i] = e.Vitals.MaxSaturation
		} else {
			m.Health[i] = messages.VitalsUnchanged
			m.MaxHealth[i] = messages.VitalsUnchanged
			m.Saturation[i] = messages.VitalsUnchanged
			m.MaxSaturation[i] = messages.VitalsUnchanged
		}
	}
	return m
}

type pairKey struct {
	recipient string
	subject   string
}

// baseline is the last state sent for a pair. The vitals part only moves
// when vitals are actually sent so sub-threshold drift accumulates.
type baseline struct {
	pos          Vec3
	vitals       Vitals
	hasVitals    bool
	lastSentAtMs int64
}

// Broadcaster is not safe for concurrent use.
type Broadcaster struct {
	opts      Options
	baselines map[pairKey]*baseline
	fullSync  map[string]struct{}
}

func NewBroadcaster(opts Options) *Broadcaster {
	return &Broadcaster{
		opts:      opts,
		baselines: make(map[pairKey]*baseline),
		fullSync:  make(map[string]struct{}),
	}
}

func (b *Broadcaster) Options() Options {
	return b.opts
}

// MarkFullSync forces the next packet for each recipient to include every
// subject with all fields.
func (b *Broadcaster) MarkFullSync(uids ...string) {
	for _, uid := range uids {
		b.fullSync[uid] = struct{}{}
	}
}

func (b *Broadcaster) NeedsFullSync(uid string) bool {
	_, ok := b.fullSync[uid]
	return ok
}

// Forget drops every baseline involving uid and its full sync flag.
func (b *Broadcaster) Forget(uid string) {
	for key := range b.baselines {
		if key.recipient == uid || key.subject == uid {
			delete(b.baselines, key)
		}
	}
	delete(b.fullSync, uid)
}

// Baselines returns the number of pair baselines held.
func (b *Broadcaster) Baselines() int {
	return len(b.baselines)
}

// Groups buckets subjects with the configured group size cap.
func (b *Broadcaster) Groups(subjects []Subject) []Group {
	return GroupByCode(subjects, b.opts.MaxGroupSize)
}

// Tick computes this period's packets. subjects must be in roster order.
func (b *Broadcaster) Tick(nowMs int64, subjects []Subject) []Packet {
	var packets []Packet
	for _, group := range b.Groups(subjects) {
		for _, recipient := range group.Members {
			_, full := b.fullSync[recipient.UID]
			var entries []Entry
			for _, subject := range group.Members {
				if subject.UID == recipient.UID {
					continue
				}
				if e, ok := b.evaluate(nowMs, recipient, subject, full); ok {
					entries = append(entries, e)
				}
			}
			delete(b.fullSync, recipient.UID)
			if len(entries) == 0 {
				continue
			}
			packets = append(packets, Packet{
				RecipientUID: recipient.UID,
				Code:         group.Code,
				Entries:      entries,
			})
		}
	}
	return packets
}

// evaluate decides whether subject is included in recipient's packet and
// updates the pair baseline when it is.
func (b *Broadcaster) evaluate(nowMs int64, recipient, subject Subject, full bool) (Entry, bool) {
	key := pairKey{recipient: recipient.UID, subject: subject.UID}
	base, hasBase := b.baselines[key]

	if !full && hasBase && b.opts.LODEnabled {
		tier := b.lodTier(recipient.Pos.DistanceTo(subject.Pos))
		if nowMs-base.lastSentAtMs < tier*b.opts.IntervalMs {
			return Entry{}, false
		}
	}

	sendPos := full || !hasBase || b.opts.PositionThreshold == 0 ||
		subject.Pos.DistanceTo(base.pos) > b.opts.PositionThreshold
	sendVitals := b.includeVitals(base, hasBase, subject.Vitals, full)
	if !sendPos && !sendVitals {
		return Entry{}, false
	}

	if !hasBase {
		base = &baseline{}
		b.baselines[key] = base
	}
	base.pos = subject.Pos
	base.lastSentAtMs = nowMs
	if sendVitals {
		base.vitals = subject.Vitals
		base.hasVitals = true
	}

	return Entry{
		UID:            subject.UID,
		Name:           subject.Name,
		Pos:            subject.Pos,
		Vitals:         subject.Vitals,
		VitalsIncluded: sendVitals,
		TimestampMs:    nowMs,
	}, true
}

func (b *Broadcaster) lodTier(distance float64) int64 {
	switch {
	case distance > b.opts.LODMid:
		return 4
	case distance > b.opts.LODNear:
		return 2
	default:
		return 1
	}
}

func (b *Broadcaster) includeVitals(base *baseline, hasBase bool, v Vitals, full bool) bool {
	switch b.opts.Vitals {
	case VitalsAlways:
		return true
	case VitalsNever:
		return false
	}
	if full || !hasBase || !base.hasVitals {
		return true
	}
	last := base.vitals
	if v.MaxHealth != last.MaxHealth || v.MaxSaturation != last.MaxSaturation {
		return true
	}
	return exceeds(v.Health, last.Health, b.opts.HealthThreshold) ||
		exceeds(v.Saturation, last.Saturation, b.opts.SaturationThreshold)
}

func exceeds(current, last, threshold float32) bool {
	diff := float32(math.Abs(float64(current - last)))
	return diff > threshold
}
