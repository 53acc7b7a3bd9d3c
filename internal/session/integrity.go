package session

import (
	"context"
	"fmt"

	"github.com/examly/examly-backend/internal/model"
)

// ContextMenu handles an attempted right-click context menu.
func (s *Session) ContextMenu(ctx context.Context) {
	s.recordViolation(ctx, model.ViolationContextMenu, "Context menu attempted")
}

// KeyCombo handles a disallowed keyboard shortcut (copy, paste, print, save).
func (s *Session) KeyCombo(ctx context.Context, combo string) {
	s.recordViolation(ctx, model.ViolationShortcut, fmt.Sprintf("Disallowed shortcut: %s", combo))
}

// Clipboard handles a clipboard copy or paste attempt.
func (s *Session) Clipboard(ctx context.Context, action string) {
	s.recordViolation(ctx, model.ViolationClipboard, fmt.Sprintf("Clipboard %s attempted", action))
}

// VisibilityLost handles a tab or window switch. Switches are counted on
// their own and start producing violations once the count passes the
// tab-switch threshold.
func (s *Session) VisibilityLost(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateInProgress && s.state != StateReady {
		s.mu.Unlock()
		return
	}
	s.tabSwitches++
	count := s.tabSwitches
	s.warnings = append(s.warnings, fmt.Sprintf("Tab switch detected (%d)", count))
	s.mu.Unlock()

	if count > maxTabSwitches {
		s.recordViolation(ctx, model.ViolationTabSwitch, "Excessive tab switching")
	}
}

// recordViolation counts one integrity violation, reports it and forces
// submission at the threshold.
func (s *Session) recordViolation(ctx context.Context, vtype model.ViolationType, detail string) {
	s.mu.Lock()
	if s.state != StateInProgress && s.state != StateReady {
		s.mu.Unlock()
		return
	}
	s.violations++
	count := s.violations
	s.warnings = append(s.warnings, fmt.Sprintf("Warning %d/%d: %s", count, maxViolations, detail))

	reporter := s.reporter
	examID := s.examID
	s.mu.Unlock()

	s.log.Warn().
		Str("exam_id", examID.String()).
		Str("type", string(vtype)).
		Int("count", count).
		Msg("integrity violation")

	if reporter != nil {
		req := &model.ReportViolationRequest{Type: vtype, Detail: detail}
		if err := reporter.Report(ctx, examID, req); err != nil {
			s.log.Warn().Err(err).Msg("violation report failed")
		}
	}

	if count >= maxViolations {
		s.submit(ctx, true, "Too many integrity violations")
	}
}

// Violations returns the violation count.
func (s *Session) Violations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations
}

// TabSwitches returns the tab-switch count.
func (s *Session) TabSwitches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabSwitches
}

// Warnings returns a copy of the warnings surfaced so far.
func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}
