package ledger

import "github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"

// State is the occupancy of a table: Idle, Active or Paused.
type State interface {
	Name() string
	isState()
}

// Idle means the table has no open session.
type Idle struct{}

// Active means the open session is accruing time.
type Active struct{ Session model.Session }

// Paused means the open session is on a break.
type Paused struct{ Session model.Session }

func (Idle) Name() string { return "idle" }
func (Active) Name() string { return "active" }
func (Paused) Name() string { return "paused" }

func (Idle) isState() {}
func (Active) isState() {}
func (Paused) isState() {}

// StateOf derives the state from a table's open session, nil meaning none.
func StateOf(open *model.Session) State {
	switch {
	case open == nil || !open.Open():
		return Idle{}
	case open.ActiveSince == nil:
		return Paused{Session: *open}
	default:
		return Active{Session: *open}
	}
}
