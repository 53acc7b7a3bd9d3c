package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationType enumerates the integrity signals an exam-taking client
// can report.
type ViolationType string

const (
	ViolationContextMenu ViolationType = "CONTEXT_MENU"
	ViolationShortcut    ViolationType = "SHORTCUT"
	ViolationClipboard   ViolationType = "CLIPBOARD"
	ViolationTabSwitch   ViolationType = "TAB_SWITCH"
	ViolationInactivity  ViolationType = "INACTIVITY"
)

// ViolationEvent is one recorded integrity violation during an attempt.
type ViolationEvent struct {
	ExamID     uuid.UUID     `json:"examId"`
	StudentID  string        `json:"student"`
	Type       ViolationType `json:"type"`
	Detail     string        `json:"detail,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// ReportViolationRequest is the payload for reporting a violation.
type ReportViolationRequest struct {
	Type   ViolationType `json:"type" binding:"required,oneof=CONTEXT_MENU SHORTCUT CLIPBOARD TAB_SWITCH INACTIVITY"`
	Detail string        `json:"detail" binding:"max=500"`
}
