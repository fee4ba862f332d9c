// Package abuse implements the request mitigation maps consulted by the
// game loop: per-owner silence entries, repeat request counts and a sliding
// window limiter.
package abuse

import "time"

// SilenceList maps owner -> silenced counterparty -> expiry. Silence is one
// directional: an owner silencing a counterparty never affects requests the
// owner sends.
type SilenceList struct {
	entries map[string]map[string]int64
}

func NewSilenceList() *SilenceList {
	return &SilenceList{
		entries: make(map[string]map[string]int64),
	}
}

// Silence sets or overwrites the expiry for (owner, target).
func (s *SilenceList) Silence(ownerUID, targetUID string, nowMs int64, d time.Duration) int64 {
	expiresAt := nowMs + d.Milliseconds()
	silenced, ok := s.entries[ownerUID]
	if !ok {
		silenced = make(map[string]int64)
		s.entries[ownerUID] = silenced
	}
	silenced[targetUID] = expiresAt
	return expiresAt
}

// IsSilenced reports whether owner currently silences counterparty. Expired
// entries are evicted on the way.
func (s *SilenceList) IsSilenced(ownerUID, counterpartyUID string, nowMs int64) bool {
	silenced, ok := s.entries[ownerUID]
	if !ok {
		return false
	}
	expiresAt, ok := silenced[counterpartyUID]
	if !ok {
		return false
	}
	if nowMs > expiresAt {
		delete(silenced, counterpartyUID)
		if len(silenced) == 0 {
			delete(s.entries, ownerUID)
		}
		return false
	}
	return true
}

// Prune evicts every expired entry and returns how many were removed.
func (s *SilenceList) Prune(nowMs int64) int {
	removed := 0
	for owner, silenced := range s.entries {
		for target, expiresAt := range silenced {
			if nowMs > expiresAt {
				delete(silenced, target)
				removed++
			}
		}
		if len(silenced) == 0 {
			delete(s.entries, owner)
		}
	}
	return removed
}

// Len returns the number of live and not yet evicted entries.
func (s *SilenceList) Len() int {
	n := 0
	for _, silenced := range s.entries {
		n += len(silenced)
	}
	return n
}
