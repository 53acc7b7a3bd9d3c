package model

import (
	"time"

	"github.com/google/uuid"
)

// MonitorEventType enumerates events published on an exam's live monitor
// channel.
type MonitorEventType string

const (
	MonitorEventSubmission   MonitorEventType = "SUBMISSION"
	MonitorEventVerification MonitorEventType = "VERIFICATION"
	MonitorEventViolation    MonitorEventType = "VIOLATION"
)

// MonitorEvent is what the owning teacher sees on the live monitor stream.
type MonitorEvent struct {
	Type      MonitorEventType `json:"type"`
	ExamID    uuid.UUID        `json:"examId"`
	StudentID string           `json:"student"`
	Score     *int             `json:"score,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	At        time.Time        `json:"at"`
}
