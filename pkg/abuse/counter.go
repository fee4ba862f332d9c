package abuse

// RequestCounter counts requests per (target, counterparty). Counts only
// reset when either side disconnects.
type RequestCounter struct {
	counts map[string]map[string]int
}

func NewRequestCounter() *RequestCounter {
	return &RequestCounter{
		counts: make(map[string]map[string]int),
	}
}

// Increment records one more request from counterparty to target and
// returns the new count.
func (c *RequestCounter) Increment(targetUID, counterpartyUID string) int {
	byCounterparty, ok := c.counts[targetUID]
	if !ok {
		byCounterparty = make(map[string]int)
		c.counts[targetUID] = byCounterparty
	}
	byCounterparty[counterpartyUID]++
	return byCounterparty[counterpartyUID]
}

func (c *RequestCounter) Count(targetUID, counterpartyUID string) int {
	return c.counts[targetUID][counterpartyUID]
}

// Clear drops every count where uid is the target or the counterparty.
func (c *RequestCounter) Clear(uid string) {
	delete(c.counts, uid)
	for target, byCounterparty := range c.counts {
		delete(byCounterparty, uid)
		if len(byCounterparty) == 0 {
			delete(c.counts, target)
		}
	}
}
