package state

// Roster is the ordered participant list as seen by one node.
type Roster struct {
	selfID       string
	participants []Participant
}

// NewRoster starts a roster containing only the local participant.
func NewRoster(self Participant) *Roster {
	return &Roster{selfID: self.ID, participants: []Participant{self}}
}

// AddOrUpdate upserts by id, keeping the original position of existing entries.
func (r *Roster) AddOrUpdate(p Participant) {
	if i := r.index(p.ID); i >= 0 {
		r.participants[i] = p
		return
	}
	r.participants = append(r.participants, p)
}

func (r *Roster) Remove(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.participants = append(r.participants[:i], r.participants[i+1:]...)
	return true
}

func (r *Roster) SetRole(id string, role Role) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.participants[i].Role = role
	return true
}

// Reconcile replaces the roster with a snapshot from the host. If the
// snapshot raced with our own join and lacks us, we put ourselves back.
func (r *Roster) Reconcile(snapshot []Participant) {
	self, _ := r.Get(r.selfID)
	next := make([]Participant, 0, len(snapshot)+1)
	seen := make(map[string]bool, len(snapshot))
	for _, p := range snapshot {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		next = append(next, p)
	}
	if !seen[r.selfID] {
		next = append(next, self)
	}
	r.participants = next
}

func (r *Roster) Get(id string) (Participant, bool) {
	if i := r.index(id); i >= 0 {
		return r.participants[i], true
	}
	return Participant{}, false
}

func (r *Roster) Self() Participant {
	p, _ := r.Get(r.selfID)
	return p
}

func (r *Roster) SelfID() string {
	return r.selfID
}

func (r *Roster) Len() int {
	return len(r.participants)
}

func (r *Roster) Snapshot() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

func (r *Roster) index(id string) int {
	for i, p := range r.participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}
