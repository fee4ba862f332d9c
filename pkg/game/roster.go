package game

// Player is a connected player.
type Player struct {
	UID           string
	Name          string
	ConnectedAtMs int64
}

// Roster is the set of connected players in join order.
type Roster struct {
	order   []string
	players map[string]*Player
}

func NewRoster() *Roster {
	return &Roster{
		players: make(map[string]*Player),
	}
}

// Add inserts or replaces the player. A replaced player moves to the end of
// the join order.
func (r *Roster) Add(uid, name string, nowMs int64) *Player {
	r.Remove(uid)
	p := &Player{UID: uid, Name: name, ConnectedAtMs: nowMs}
	r.players[uid] = p
	r.order = append(r.order, uid)
	return p
}

func (r *Roster) Remove(uid string) bool {
	if _, ok := r.players[uid]; !ok {
		return false
	}
	delete(r.players, uid)
	for i, u := range r.order {
		if u == uid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Roster) Get(uid string) (*Player, bool) {
	p, ok := r.players[uid]
	return p, ok
}

func (r *Roster) IsOnline(uid string) bool {
	_, ok := r.players[uid]
	return ok
}

// Name returns the display name of an online player, or uid if offline.
func (r *Roster) Name(uid string) string {
	if p, ok := r.players[uid]; ok {
		return p.Name
	}
	return uid
}

// List returns the connected players in join order.
func (r *Roster) List() []*Player {
	list := make([]*Player, 0, len(r.order))
	for _, uid := range r.order {
		list = append(list, r.players[uid])
	}
	return list
}

func (r *Roster) Len() int {
	return len(r.order)
}
