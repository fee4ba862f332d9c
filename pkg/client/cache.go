package client

import (
	"sort"
	"sync"
	"time"

	"github.com/cbodonnell/buddybeacon/pkg/messages"
)

// PingDuration is how long a received map ping stays active.
const PingDuration = 10 * time.Second

// StalenessLevel classifies how long ago a buddy's entry was last refreshed.
type StalenessLevel int

const (
	Fresh StalenessLevel = iota
	Aging
	Stale
	VeryStale
	Expired
)

func (l StalenessLevel) String() string {
	switch l {
	case Fresh:
		return "fresh"
	case Aging:
		return "aging"
	case Stale:
		return "stale"
	case VeryStale:
		return "very-stale"
	default:
		return "expired"
	}
}

// Staleness maps an entry age to its level.
func Staleness(age time.Duration) StalenessLevel {
	switch {
	case age < 3*time.Second:
		return Fresh
	case age < 10*time.Second:
		return Aging
	case age < 30*time.Second:
		return Stale
	case age < 60*time.Second:
		return VeryStale
	default:
		return Expired
	}
}

// Buddy is the last known state of another player. ReceivedAt is local time,
// ServerTimestamp is the server's capture time.
type Buddy struct {
	UID             string
	Name            string
	X, Y, Z         float64
	ServerTimestamp int64
	ReceivedAt      time.Time

	HasVitals     bool
	Health        float32
	MaxHealth     float32
	Saturation    float32
	MaxSaturation float32
}

func (b Buddy) Staleness(now time.Time) StalenessLevel {
	return Staleness(now.Sub(b.ReceivedAt))
}

// Ping is an active map ping. Each sender has at most one.
type Ping struct {
	SenderUID  string
	SenderName string
	X, Z       float64
	Timestamp  int64
	ReceivedAt time.Time
}

func (p Ping) Expired(now time.Time) bool {
	return now.Sub(p.ReceivedAt) >= PingDuration
}

// BuddyCache merges beacon updates into per-buddy entries. It is safe for
// concurrent use.
type BuddyCache struct {
	lock    sync.RWMutex
	buddies map[string]*Buddy
	pings   map[string]Ping
	now     func() time.Time
}

func NewBuddyCache() *BuddyCache {
	return &BuddyCache{
		buddies: make(map[string]*Buddy),
		pings:   make(map[string]Ping),
		now:     time.Now,
	}
}

// ApplyBeacon merges every entry of msg. Vitals equal to
// messages.VitalsUnchanged keep the cached value.
func (c *BuddyCache) ApplyBeacon(msg *messages.ServerBeaconPosition) {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()
	for i := 0; i < msg.Len(); i++ {
		uid := msg.UIDs[i]
		b, ok := c.buddies[uid]
		if !ok {
			b = &Buddy{UID: uid}
			c.buddies[uid] = b
		}
		b.Name = at(msg.Names, i, b.Name)
		b.X = at(msg.X, i, b.X)
		b.Y = at(msg.Y, i, b.Y)
		b.Z = at(msg.Z, i, b.Z)
		b.ServerTimestamp = at(msg.Timestamps, i, b.ServerTimestamp)
		b.ReceivedAt = now

		if v := at(msg.Health, i, messages.VitalsUnchanged); v != messages.VitalsUnchanged {
			b.Health = v
			b.HasVitals = true
		}
		if v := at(msg.MaxHealth, i, messages.VitalsUnchanged); v != messages.VitalsUnchanged {
			b.MaxHealth = v
		}
		if v := at(msg.Saturation, i, messages.VitalsUnchanged); v != messages.VitalsUnchanged {
			b.Saturation = v
		}
		if v := at(msg.MaxSaturation, i, messages.VitalsUnchanged); v != messages.VitalsUnchanged {
			b.MaxSaturation = v
		}
	}
}

// at returns s[i], or fallback when the array is short.
func at[T any](s []T, i int, fallback T) T {
	if i < len(s) {
		return s[i]
	}
	return fallback
}

// ApplyMapPing replaces the sender's previous ping.
func (c *BuddyCache) ApplyMapPing(msg *messages.ServerMapPing) {
	c.lock.Lock()
	defer c.lock.Unlock()

	key := msg.SenderUID
	if key == "" {
		key = msg.SenderName
	}
	c.pings[key] = Ping{
		SenderUID:  msg.SenderUID,
		SenderName: msg.SenderName,
		X:          msg.X,
		Z:          msg.Z,
		Timestamp:  msg.Timestamp,
		ReceivedAt: c.now(),
	}
}

// Purge drops expired buddies and pings and returns how many were removed.
func (c *BuddyCache) Purge() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()
	removed := 0
	for uid, b := range c.buddies {
		if b.Staleness(now) == Expired {
			delete(c.buddies, uid)
			removed++
		}
	}
	for key, p := range c.pings {
		if p.Expired(now) {
			delete(c.pings, key)
			removed++
		}
	}
	return removed
}

// Buddies returns the live entries sorted by name. Expired entries are purged
// first.
func (c *BuddyCache) Buddies() []Buddy {
	c.Purge()

	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make([]Buddy, 0, len(c.buddies))
	for _, b := range c.buddies {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// Pings returns the active pings sorted by sender name.
func (c *BuddyCache) Pings() []Ping {
	c.Purge()

	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make([]Ping, 0, len(c.pings))
	for _, p := range c.pings {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SenderName < out[j].SenderName })
	return out
}

// Clear forgets everything, as after a disconnect.
func (c *BuddyCache) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.buddies = make(map[string]*Buddy)
	c.pings = make(map[string]Ping)
}
