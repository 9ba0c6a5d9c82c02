package triggers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
)

func TestDuplicateTrigger(t *testing.T) {
	// Asynq returns the conflict sentinel wrapped, never bare.
	wrapped := fmt.Errorf("cannot enqueue: %w", asynq.ErrTaskIDConflict)
	if !duplicateTrigger(wrapped) {
		t.Error("wrapped task-id conflict not recognized as a collapsed trigger")
	}
	if !duplicateTrigger(asynq.ErrTaskIDConflict) {
		t.Error("bare sentinel not recognized")
	}
	if duplicateTrigger(errors.New("redis: connection refused")) {
		t.Error("unrelated error treated as a collapsed trigger")
	}
	if duplicateTrigger(nil) {
		t.Error("nil error treated as a collapsed trigger")
	}
}
