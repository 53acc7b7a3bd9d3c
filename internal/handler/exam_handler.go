package handler

import (
	"errors"
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

type ExamHandler struct {
	exams *service.ExamService
	log   zerolog.Logger
}

func NewExamHandler(exams *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams: exams,
		log:   log.With().Str("component", "exam_handler").Logger(),
	}
}

// Create handles POST /exams (teacher only).
func (h *ExamHandler) Create(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.CreateExamRequest
	if msg, ok := validator.Bind(c, &req); !ok {
		response.Fail(c, http.StatusBadRequest, msg)
		return
	}

	view, err := h.exams.Create(c.Request.Context(), identity.UserID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// List handles GET /exams. The shape depends on the caller's role: teachers
// see their own exams with submissions, students see every exam redacted.
func (h *ExamHandler) List(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx := c.Request.Context()
	if identity.Role == model.RoleTeacher {
		views, err := h.exams.ListForTeacher(ctx, identity.UserID)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.SuccessWithCount(c, http.StatusOK, views, len(views))
		return
	}

	views, err := h.exams.ListForStudent(ctx, identity.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithCount(c, http.StatusOK, views, len(views))
}

// Get handles GET /exams/:exam_id.
func (h *ExamHandler) Get(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	examID, ok := h.examID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if identity.Role == model.RoleTeacher {
		view, err := h.exams.GetForTeacher(ctx, identity.UserID, examID)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, http.StatusOK, view)
		return
	}

	view, err := h.exams.GetForStudent(ctx, identity.UserID, examID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Update handles PUT /exams/:exam_id (teacher owner only).
func (h *ExamHandler) Update(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	examID, ok := h.examID(c)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if msg, ok := validator.Bind(c, &req); !ok {
		response.Fail(c, http.StatusBadRequest, msg)
		return
	}

	view, err := h.exams.Update(c.Request.Context(), identity.UserID, examID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// Delete handles DELETE /exams/:exam_id (teacher owner only).
func (h *ExamHandler) Delete(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	examID, ok := h.examID(c)
	if !ok {
		return
	}

	if err := h.exams.Delete(c.Request.Context(), identity.UserID, examID); err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Exam deleted successfully"})
}

// Submit handles POST /exams/:exam_id/submit (student only).
func (h *ExamHandler) Submit(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	examID, ok := h.examID(c)
	if !ok {
		return
	}

	var req model.SubmitExamRequest
	if msg, ok := validator.Bind(c, &req); !ok {
		response.Fail(c, http.StatusBadRequest, msg)
		return
	}

	result, err := h.exams.Submit(c.Request.Context(), identity.UserID, examID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Verify handles PUT /exams/:exam_id/verify/:submission_id (teacher owner only).
func (h *ExamHandler) Verify(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	examID, ok := h.examID(c)
	if !ok {
		return
	}

	submissionID, err := uuid.Parse(c.Param("submission_id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, "Submission not found")
		return
	}

	sub, err := h.exams.VerifySubmission(c.Request.Context(), identity.UserID, examID, submissionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, sub)
}

func (h *ExamHandler) examID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, "Exam not found")
		return uuid.Nil, false
	}
	return id, true
}

// fail maps domain errors onto the uniform envelope. Unclassified errors are
// logged and reported as a bare server error.
func (h *ExamHandler) fail(c *gin.Context, err error) {
	failFromError(c, err, h.log)
}

func failFromError(c *gin.Context, err error, log zerolog.Logger) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Fail(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusBadRequest, "You have already submitted this exam")
	case errors.Is(err, service.ErrHasSubmissions):
		response.Fail(c, http.StatusBadRequest, "Cannot update exam with existing submissions")
	case errors.Is(err, service.ErrNotExamOwner):
		response.Fail(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, "Exam not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.Fail(c, http.StatusNotFound, "Submission not found")
	default:
		log.Error().Err(err).
			Str("request_id", response.GetRequestID(c)).
			Str("path", c.FullPath()).
			Msg("unhandled error")
		response.Fail(c, http.StatusInternalServerError, "Server Error")
	}
}
