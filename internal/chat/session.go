package chat

import "github.com/genfinafrica/genfin-chat/internal/api"

// State is the dialogue state of the session controller.
type State int

const (
	// StateAwaitingCommand is the initial state: the next line is matched
	// against the command vocabulary.
	StateAwaitingCommand State = iota
	// StateAwaitingFarmerID expects a numeric identifier for a status fetch.
	StateAwaitingFarmerID
	// StateAwaitingRenewID expects a numeric identifier for a renewal.
	StateAwaitingRenewID
	// StateAwaitingAction is reached after a successful status fetch;
	// commands are dispatched exactly as in StateAwaitingCommand.
	StateAwaitingAction
	// StateRegistering means the registration wizard is active; the current
	// step lives in Session.RegStep.
	StateRegistering
)

// RegStep is the active step of the registration wizard. Steps are
// sequential: no going back, no skipping.
type RegStep int

const (
	RegName RegStep = iota
	RegPhone
	RegAge
	RegGender
	RegIDDocument
	RegCrop
	RegLandSize
)

// TransientMode is a single-turn expectation that the next input line is a
// payload rather than a command.
type TransientMode int

const (
	TransientNone TransientMode = iota
	TransientUpload
	TransientSensor
)

// Session is the complete dialogue state. It is a value: the controller
// replaces it wholesale each turn, so no handler ever mutates shared state.
type Session struct {
	FarmerID  int // 0 until an identifier is known
	State     State
	RegStep   RegStep // meaningful only while State == StateRegistering
	Transient TransientMode
	Draft     api.Registration
	Snapshot  *api.StatusSnapshot
}

// HasFarmer reports whether an identifier is known.
func (s Session) HasFarmer() bool { return s.FarmerID > 0 }

// PendingExpectations counts how many input expectations are active at once.
// The controller keeps this at most one; tests assert it after every turn.
func (s Session) PendingExpectations() int {
	n := 0
	if s.Transient != TransientNone {
		n++
	}
	if s.State == StateRegistering {
		n++
	}
	if s.State == StateAwaitingFarmerID || s.State == StateAwaitingRenewID {
		n++
	}
	return n
}
