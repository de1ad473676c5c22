package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oraraka-deko/archie/archie"
	"github.com/oraraka-deko/archie/internal/logger"
)

// SessionHeader carries the caller's session id; a new one is issued when absent.
const SessionHeader = "X-Session-ID"

// Answerer is satisfied by *archie.Archie.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	answerer Answerer
	recorder archie.Recorder
	log      *logger.Logger
}

// ModeFor picks the gin mode matching a logger mode: debug for development,
// release otherwise.
func ModeFor(logMode string) string {
	switch strings.ToLower(strings.TrimSpace(logMode)) {
	case "dev", "development":
		return gin.DebugMode
	default:
		return gin.ReleaseMode
	}
}

// NewRouter wires the ask API in the given gin mode. recorder may be nil.
func NewRouter(mode string, answerer Answerer, recorder archie.Recorder, log *logger.Logger) *gin.Engine {
	gin.SetMode(mode)
	h := &handler{answerer: answerer, recorder: recorder, log: logger.OrNop(log)}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/ask", h.ask)
	return r
}

func (h *handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	sessionID := c.GetHeader(SessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	c.Header(SessionHeader, sessionID)

	start := time.Now()
	answer, err := h.answerer.Answer(c.Request.Context(), req.Question)
	elapsed := time.Since(start)
	if err != nil {
		h.log.Error("ask failed", "session_id", sessionID, "error", err)
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	if h.recorder != nil {
		in := archie.Interaction{
			Timestamp:      start,
			SessionID:      sessionID,
			IPAddress:      c.ClientIP(),
			DeviceInfo:     c.Request.UserAgent(),
			Question:       req.Question,
			Answer:         answer,
			GenerationTime: elapsed,
		}
		if err := h.recorder.Record(in); err != nil {
			h.log.Warn("failed to record interaction", "session_id", sessionID, "error", err)
		}
	}
	c.JSON(http.StatusOK, askResponse{Response: answer})
}

// statusFor maps the taxonomy onto HTTP: upstream failures are 502, the rest 500.
func statusFor(err error) int {
	switch archie.KindOf(err) {
	case archie.KindRequest, archie.KindAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
