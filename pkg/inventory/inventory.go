// Package inventory tracks the token items the coordination service cares
// about. The host owns real inventories; this is the narrow view the game
// loop needs.
package inventory

import "sync"

// Inventory is the capability interface consulted by request handlers.
// Implementations must be thread-safe.
type Inventory interface {
	// HasToken reports whether uid holds at least one enabled item.
	HasToken(uid, item string) bool
	// ConsumeToken removes one item and reports whether it was held.
	ConsumeToken(uid, item string) bool
	// Give adds one item.
	Give(uid, item string)
	// ShareCode returns the code written on the player's beacon band, or
	// "" when no enabled band is held.
	ShareCode(uid string) string
	// SetShareCode writes code onto the held beacon band. It reports false
	// when no enabled band is held.
	SetShareCode(uid, code string) bool
	// Items returns a copy of the player's item counts.
	Items(uid string) map[string]int
}

type InMemoryInventory struct {
	lock      sync.RWMutex
	bandItem  string
	enabled   func(item string) bool
	items     map[string]map[string]int
	bandCodes map[string]string
}

// NewInMemoryInventory creates an inventory. bandItem is the item that
// carries a share code. enabled reports whether an item kind is turned on;
// disabled items count as not held.
func NewInMemoryInventory(bandItem string, enabled func(item string) bool) *InMemoryInventory {
	if enabled == nil {
		enabled = func(string) bool { return true }
	}
	return &InMemoryInventory{
		bandItem:  bandItem,
		enabled:   enabled,
		items:     make(map[string]map[string]int),
		bandCodes: make(map[string]string),
	}
}

func (inv *InMemoryInventory) HasToken(uid, item string) bool {
	inv.lock.RLock()
	defer inv.lock.RUnlock()
	return inv.hasToken(uid, item)
}

func (inv *InMemoryInventory) hasToken(uid, item string) bool {
	return inv.enabled(item) && inv.items[uid][item] > 0
}

func (inv *InMemoryInventory) ConsumeToken(uid, item string) bool {
	inv.lock.Lock()
	defer inv.lock.Unlock()
	if !inv.hasToken(uid, item) {
		return false
	}
	inv.items[uid][item]--
	if inv.items[uid][item] == 0 {
		delete(inv.items[uid], item)
		if item == inv.bandItem {
			delete(inv.bandCodes, uid)
		}
	}
	return true
}

func (inv *InMemoryInventory) Give(uid, item string) {
	inv.lock.Lock()
	defer inv.lock.Unlock()
	held, ok := inv.items[uid]
	if !ok {
		held = make(map[string]int)
		inv.items[uid] = held
	}
	held[item]++
}

func (inv *InMemoryInventory) ShareCode(uid string) string {
	inv.lock.RLock()
	defer inv.lock.RUnlock()
	if !inv.hasToken(uid, inv.bandItem) {
		return ""
	}
	return inv.bandCodes[uid]
}

func (inv *InMemoryInventory) SetShareCode(uid, code string) bool {
	inv.lock.Lock()
	defer inv.lock.Unlock()
	if !inv.hasToken(uid, inv.bandItem) {
		return false
	}
	if code == "" {
		delete(inv.bandCodes, uid)
	} else {
		inv.bandCodes[uid] = code
	}
	return true
}

func (inv *InMemoryInventory) Items(uid string) map[string]int {
	inv.lock.RLock()
	defer inv.lock.RUnlock()
	out := make(map[string]int, len(inv.items[uid]))
	for item, n := range inv.items[uid] {
		out[item] = n
	}
	return out
}
