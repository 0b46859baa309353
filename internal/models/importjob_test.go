package models

import "testing"

func TestImportStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ImportStatus
		want     bool
	}{
		{ImportPending, ImportInProgress, true},
		{ImportPending, ImportFailed, true},
		{ImportPending, ImportCompleted, false},
		{ImportInProgress, ImportCompleted, true},
		{ImportInProgress, ImportCompletedWithErrors, true},
		{ImportInProgress, ImportFailed, true},
		{ImportInProgress, ImportPending, false},
		{ImportCompleted, ImportFailed, false},
		{ImportCompletedWithErrors, ImportInProgress, false},
		{ImportFailed, ImportPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestImportStatusTerminal(t *testing.T) {
	terminal := map[ImportStatus]bool{
		ImportPending:             false,
		ImportInProgress:          false,
		ImportCompleted:           true,
		ImportCompletedWithErrors: true,
		ImportFailed:              true,
	}

	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
