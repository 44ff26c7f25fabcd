package game

import "fmt"

// Table owns the seats and at most one hand in progress.
type Table struct {
	ID         string
	SmallBlind int
	BigBlind   int
	Seats      []*Player // nil for an empty seat
	DealerSeat int       // -1 before the first hand
	Hand       *Hand
	HandCount  int
}

// NewTable creates an empty table.
func NewTable(id string, seats, smallBlind, bigBlind int) *Table {
	return &Table{
		ID:         id,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		Seats:      make([]*Player, seats),
		DealerSeat: -1,
	}
}

// Sit places p at seat, or at the first free seat when seat is negative.
func (t *Table) Sit(p *Player, seat int) error {
	if t.Player(p.ID) != nil {
		return fmt.Errorf("%w: %s", ErrAlreadySeated, p.ID)
	}
	if seat < 0 {
		seat = t.freeSeat()
		if seat < 0 {
			return ErrTableFull
		}
	}
	if seat >= len(t.Seats) {
		return fmt.Errorf("%w: %d not in 0..%d", ErrInvalidSeat, seat, len(t.Seats)-1)
	}
	if t.Seats[seat] != nil {
		return fmt.Errorf("%w: %d", ErrSeatTaken, seat)
	}
	p.Seat = seat
	t.Seats[seat] = p
	return nil
}

func (t *Table) freeSeat() int {
	for i, p := range t.Seats {
		if p == nil {
			return i
		}
	}
	return -1
}

// Remove frees the player's seat. Players dealt into the running hand
// cannot be removed until it ends.
func (t *Table) Remove(playerID string) (*Player, error) {
	p := t.Player(playerID)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if p.InHand() {
		return nil, ErrHandInProgress
	}
	t.Seats[p.Seat] = nil
	return p, nil
}

// Player finds a seated player by id.
func (t *Table) Player(id string) *Player {
	for _, p := range t.Seats {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// Players returns the seated players in seat order.
func (t *Table) Players() []*Player {
	players := make([]*Player, 0, len(t.Seats))
	for _, p := range t.Seats {
		if p != nil {
			players = append(players, p)
		}
	}
	return players
}

// Occupied counts seated players.
func (t *Table) Occupied() int {
	n := 0
	for _, p := range t.Seats {
		if p != nil {
			n++
		}
	}
	return n
}

// ActivePlayer is the player whose turn it is, or nil.
func (t *Table) ActivePlayer() *Player {
	if t.Hand == nil || t.Hand.ActiveSeat < 0 {
		return nil
	}
	return t.Seats[t.Hand.ActiveSeat]
}

// nextSeat finds the first seat after from, wrapping once around the table,
// whose player matches ok. It returns -1 when no seat matches.
func (t *Table) nextSeat(from int, ok func(*Player) bool) int {
	n := len(t.Seats)
	for i := 1; i <= n; i++ {
		seat := ((from+i)%n + n) % n
		if p := t.Seats[seat]; p != nil && ok(p) {
			return seat
		}
	}
	return -1
}
