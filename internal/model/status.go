package model

import "fmt"

// Command is written by the controller; the worker only ever reads it.
type Command string

const (
	CommandIdle    Command = "idle"
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandAnalyze Command = "analyze"
	CommandPause   Command = "pause"
	CommandResume  Command = "resume"
)

// RunStatus is written by the worker; the controller only ever reads it.
type RunStatus string

const (
	StatusIdle            RunStatus = "idle"
	StatusWaitingForLogin RunStatus = "waiting_for_login"
	StatusAnalyzing       RunStatus = "analyzing"
	StatusReadyToProcess  RunStatus = "ready_to_process"
	StatusRunning         RunStatus = "running"
	StatusPaused          RunStatus = "paused"
	StatusCompleted       RunStatus = "completed"
	StatusStopped         RunStatus = "stopped"
	StatusError           RunStatus = "error"
)

var terminalStatuses = map[RunStatus]bool{
	StatusCompleted: true,
	StatusStopped:   true,
	StatusError:     true,
}

// activeStatuses are the statuses during which a new run must be rejected.
var activeStatuses = map[RunStatus]bool{
	StatusWaitingForLogin: true,
	StatusAnalyzing:       true,
	StatusReadyToProcess:  true,
	StatusRunning:         true,
	StatusPaused:          true,
}

// Run status transitions are monotonic within a run: a terminal status can
// only be left through an explicit reset back to idle. stop and error are
// reachable from every non-terminal status and are therefore not listed
// per-state here.
var validRunTransitions = map[RunStatus]map[RunStatus]bool{
	StatusIdle: {
		StatusWaitingForLogin: true,
	},
	StatusWaitingForLogin: {
		StatusAnalyzing: true,
	},
	StatusAnalyzing: {
		StatusReadyToProcess: true,
	},
	StatusReadyToProcess: {
		StatusRunning: true,
	},
	StatusRunning: {
		StatusPaused:    true,
		StatusCompleted: true,
	},
	StatusPaused: {
		StatusRunning: true,
	},
}

func IsTerminal(s RunStatus) bool {
	return terminalStatuses[s]
}

// IsActive reports whether a run is currently in flight.
func IsActive(s RunStatus) bool {
	return activeStatuses[s]
}

// ValidateRunTransition checks a worker status change. Stopped and Error are
// always reachable from a non-terminal status; everything else follows the
// forward-only phase order.
func ValidateRunTransition(from, to RunStatus) error {
	if IsTerminal(from) {
		return fmt.Errorf("cannot transition from terminal status %q", from)
	}
	if to == StatusStopped || to == StatusError {
		return nil
	}
	allowed, ok := validRunTransitions[from]
	if !ok {
		return fmt.Errorf("unknown status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid run transition: %q → %q", from, to)
	}
	return nil
}
