package upstream

import (
	"net/http"
	"time"
)

// Policy bounds a single forwarded call.
type Policy struct {
	MaxAttempts       int
	PerAttemptTimeout time.Duration
	BackoffBase       time.Duration
}

// Phase is the position of a call in the retry state machine.
type Phase int

const (
	PhaseAttempting Phase = iota
	PhaseBackingOff
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAttempting:
		return "ATTEMPTING"
	case PhaseBackingOff:
		return "BACKING-OFF"
	case PhaseDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// State is the retry state of one forwarded call.
type State struct {
	Phase   Phase
	Attempt int
	// Backoff is the wait before the next attempt. Only set in PhaseBackingOff.
	Backoff time.Duration
}

// Outcome is what a finished attempt produced: a status code or an error.
type Outcome struct {
	Status int
	Err    error
}

// Retryable reports whether the outcome is a transient failure.
// 4xx responses are never retryable.
func (o Outcome) Retryable() bool {
	if o.Err != nil {
		return true
	}
	return o.Status >= http.StatusInternalServerError && o.Status <= 599
}

// Label names the outcome for logs and metrics.
func (o Outcome) Label() string {
	switch {
	case o.Err != nil:
		return string(classify(o.Err))
	case o.Status >= http.StatusInternalServerError:
		return "http_5xx"
	case o.Status >= http.StatusBadRequest:
		return "http_4xx"
	default:
		return "ok"
	}
}

// Attempts returns the attempt budget, never less than one.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Start returns the initial state of a call.
func (p Policy) Start() State {
	return State{Phase: PhaseAttempting, Attempt: 1}
}

// Next advances the state machine. The outcome is only consulted when
// leaving PhaseAttempting; Done is terminal.
func (p Policy) Next(s State, o Outcome) State {
	switch s.Phase {
	case PhaseAttempting:
		if o.Retryable() && s.Attempt < p.Attempts() {
			return State{
				Phase:   PhaseBackingOff,
				Attempt: s.Attempt,
				Backoff: time.Duration(s.Attempt) * p.BackoffBase,
			}
		}
		return State{Phase: PhaseDone, Attempt: s.Attempt}
	case PhaseBackingOff:
		return State{Phase: PhaseAttempting, Attempt: s.Attempt + 1}
	default:
		return s
	}
}
