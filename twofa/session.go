package twofa

import (
	"context"

	"github.com/google/uuid"
	"github.com/iov-one/dualsign/errors"
	"github.com/looplab/fsm"
)

// Session states.
const (
	StateSubmitted     = "submitted"
	StateCodeRequested = "code_requested"
	StateAwaitingCode  = "awaiting_code"
	StateVerifying     = "verifying"
	StateConfirmed     = "confirmed"
	StateFailed        = "failed"
)

// Session events.
const (
	EventRequestCode = "request_code"
	EventCodeSent    = "code_sent"
	EventCodeEntered = "code_entered"
	EventCodeInvalid = "code_invalid"
	EventCodeValid   = "code_valid"
	EventFail        = "fail"
)

var transitions = fsm.Events{
	{Name: EventRequestCode, Src: []string{StateSubmitted}, Dst: StateCodeRequested},
	{Name: EventCodeSent, Src: []string{StateCodeRequested}, Dst: StateAwaitingCode},
	{Name: EventCodeEntered, Src: []string{StateAwaitingCode}, Dst: StateVerifying},
	{Name: EventCodeInvalid, Src: []string{StateVerifying}, Dst: StateAwaitingCode},
	{Name: EventCodeValid, Src: []string{StateVerifying}, Dst: StateConfirmed},
	{Name: EventFail, Src: []string{StateSubmitted, StateCodeRequested, StateAwaitingCode, StateVerifying}, Dst: StateFailed},
}

// StateChangeFunc is called after a session moved from one state to another.
type StateChangeFunc func(s *Session, from, to string)

// Session is a single confirmation of a multisig request.
type Session struct {
	ID        string
	AccountID string
	RequestID uint64
	// Attempts is the number of codes verified so far.
	Attempts int

	machine *fsm.FSM
}

func newSession(accountID string, requestID uint64, onChange StateChangeFunc) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		AccountID: accountID,
		RequestID: requestID,
	}
	callbacks := fsm.Callbacks{}
	if onChange != nil {
		callbacks["enter_state"] = func(_ context.Context, e *fsm.Event) {
			onChange(s, e.Src, e.Dst)
		}
	}
	s.machine = fsm.NewFSM(StateSubmitted, transitions, callbacks)
	return s
}

// State returns the current state.
func (s *Session) State() string {
	return s.machine.Current()
}

// Done returns true if the session reached a final state.
func (s *Session) Done() bool {
	st := s.State()
	return st == StateConfirmed || st == StateFailed
}

func (s *Session) fire(ctx context.Context, event string) error {
	if err := s.machine.Event(ctx, event); err != nil {
		return errors.Wrapf(errors.ErrInvalidState, "session %s: %s in state %s: %s", s.ID, event, s.State(), err)
	}
	return nil
}

// fail moves the session to the failed state. It is a no-op for a finished
// session.
func (s *Session) fail(ctx context.Context) {
	if s.Done() {
		return
	}
	_ = s.fire(ctx, EventFail)
}

// StateGraph returns the session state machine in graphviz format.
func StateGraph() string {
	return fsm.Visualize(fsm.NewFSM(StateSubmitted, transitions, fsm.Callbacks{}))
}
