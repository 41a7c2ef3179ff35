package model

import (
	"errors"
	"testing"
	"time"
)

func signal(v int) *int { return &v }

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{"minimal", Task{ID: "t1", Content: "write report"}, false},
		{"full signals", Task{ID: "t1", Content: "x", Impact: signal(0), Urgency: signal(10)}, false},
		{"missing id", Task{Content: "x"}, true},
		{"blank content", Task{ID: "t1", Content: "  "}, true},
		{"negative duration", Task{ID: "t1", Content: "x", DurationMinutes: -5}, true},
		{"impact too high", Task{ID: "t1", Content: "x", Impact: signal(11)}, true},
		{"urgency negative", Task{ID: "t1", Content: "x", Urgency: signal(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTaskHasSignal(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"none", Task{ID: "t1", Content: "x"}, false},
		{"impact", Task{ID: "t1", Content: "x", Impact: signal(0)}, true},
		{"urgency", Task{ID: "t1", Content: "x", Urgency: signal(3)}, true},
		{"due date", Task{ID: "t1", Content: "x", DueDate: &due}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.HasSignal(); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}
