package handler

import (
	"net/http"

	"github.com/examly/examly-backend/internal/middleware"
	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/examly/examly-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ViolationHandler struct {
	violations *service.ViolationService
	log        zerolog.Logger
}

func NewViolationHandler(violations *service.ViolationService, log zerolog.Logger) *ViolationHandler {
	return &ViolationHandler{
		violations: violations,
		log:        log.With().Str("component", "violation_handler").Logger(),
	}
}

// Report handles POST /exams/:exam_id/violations (student only). The event
// is queued, not written inline, so this path stays fast even under a burst
// of integrity signals.
func (h *ViolationHandler) Report(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, "Exam not found")
		return
	}

	var req model.ReportViolationRequest
	if msg, ok := validator.Bind(c, &req); !ok {
		response.Fail(c, http.StatusBadRequest, msg)
		return
	}

	if err := h.violations.Report(c.Request.Context(), identity.UserID, examID, &req); err != nil {
		failFromError(c, err, h.log)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"message": "Violation recorded"})
}

// List handles GET /exams/:exam_id/violations (teacher owner only).
func (h *ViolationHandler) List(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, "Exam not found")
		return
	}

	events, err := h.violations.ListForExam(c.Request.Context(), identity.UserID, examID)
	if err != nil {
		failFromError(c, err, h.log)
		return
	}

	response.SuccessWithCount(c, http.StatusOK, events, len(events))
}
