package model

import "testing"

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status   RunStatus
		terminal bool
	}{
		{StatusIdle, false},
		{StatusWaitingForLogin, false},
		{StatusAnalyzing, false},
		{StatusReadyToProcess, false},
		{StatusRunning, false},
		{StatusPaused, false},
		{StatusCompleted, true},
		{StatusStopped, true},
		{StatusError, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := IsTerminal(tt.status); got != tt.terminal {
				t.Errorf("IsTerminal(%q) = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestIsActive(t *testing.T) {
	active := []RunStatus{StatusWaitingForLogin, StatusAnalyzing, StatusReadyToProcess, StatusRunning, StatusPaused}
	for _, s := range active {
		if !IsActive(s) {
			t.Errorf("IsActive(%q) = false, want true", s)
		}
	}
	inactive := []RunStatus{StatusIdle, StatusCompleted, StatusStopped, StatusError}
	for _, s := range inactive {
		if IsActive(s) {
			t.Errorf("IsActive(%q) = true, want false", s)
		}
	}
}

func TestValidateRunTransition(t *testing.T) {
	valid := []struct {
		from, to RunStatus
	}{
		{StatusIdle, StatusWaitingForLogin},
		{StatusWaitingForLogin, StatusAnalyzing},
		{StatusAnalyzing, StatusReadyToProcess},
		{StatusReadyToProcess, StatusRunning},
		{StatusRunning, StatusPaused},
		{StatusPaused, StatusRunning},
		{StatusRunning, StatusCompleted},
		// stop and error are reachable from any non-terminal status
		{StatusIdle, StatusStopped},
		{StatusWaitingForLogin, StatusStopped},
		{StatusRunning, StatusStopped},
		{StatusAnalyzing, StatusError},
		{StatusPaused, StatusError},
	}
	for _, tt := range valid {
		t.Run(string(tt.from)+"→"+string(tt.to), func(t *testing.T) {
			if err := ValidateRunTransition(tt.from, tt.to); err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
		})
	}

	invalid := []struct {
		from, to RunStatus
	}{
		{StatusCompleted, StatusRunning},
		{StatusStopped, StatusWaitingForLogin},
		{StatusError, StatusIdle},
		{StatusCompleted, StatusStopped},
		{StatusIdle, StatusRunning},
		{StatusWaitingForLogin, StatusReadyToProcess},
		{StatusReadyToProcess, StatusCompleted},
		{StatusPaused, StatusCompleted},
	}
	for _, tt := range invalid {
		t.Run(string(tt.from)+"→"+string(tt.to), func(t *testing.T) {
			if err := ValidateRunTransition(tt.from, tt.to); err == nil {
				t.Errorf("expected error for %q → %q", tt.from, tt.to)
			}
		})
	}
}
