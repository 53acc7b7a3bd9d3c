package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/examly/examly-backend/internal/middleware"
	"github.com/examly/examly-backend/internal/repository"
	"github.com/examly/examly-backend/internal/response"
	"github.com/examly/examly-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// MonitorHandler streams an exam's live activity (submissions, verifications,
// violations) to the owning teacher over a WebSocket.
type MonitorHandler struct {
	exams    *service.ExamService
	monitor  *repository.MonitorRepository
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewMonitorHandler(exams *service.ExamService, monitor *repository.MonitorRepository, allowedOrigins []string, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		exams:   exams,
		monitor: monitor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.With().Str("component", "monitor_handler").Logger(),
	}
}

// originChecker permits all origins when the allowlist is empty.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if a == origin {
				return true
			}
		}
		return false
	}
}

// Stream handles GET /ws/v1/exams/:exam_id/monitor. Ownership is checked
// before the upgrade so rejections still get a JSON envelope.
func (h *MonitorHandler) Stream(c *gin.Context) {
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

	if _, err := h.exams.GetForTeacher(c.Request.Context(), identity.UserID, examID); err != nil {
		failFromError(c, err, h.log)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := h.monitor.Subscribe(ctx, examID.String())
	defer sub.Close()

	// The client never sends application data; the read loop only surfaces
	// disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	h.log.Info().
		Str("exam_id", examID.String()).
		Str("teacher_id", identity.UserID).
		Msg("monitor stream opened")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
