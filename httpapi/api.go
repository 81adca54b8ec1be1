package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opd-ai/wabridge/delivery"
	"github.com/opd-ai/wabridge/session"
)

// Options configures the REST facade.
type Options struct {
	// APIKey guards all non-health endpoints when set.
	APIKey string

	// GlobalRPS and GlobalBurst bound requests per client IP across
	// all endpoints. Zero disables the limiter.
	GlobalRPS   float64
	GlobalBurst int

	// MessageRPS and MessageBurst bound the message-sending endpoints
	// separately from the global bucket.
	MessageRPS   float64
	MessageBurst int
}

// Server exposes session management and message delivery over HTTP.
type Server struct {
	sessions *session.Manager
	sender   *delivery.Sender
	engine   *gin.Engine
	started  time.Time
}

// New builds the HTTP facade around a session manager and sender.
func New(sessions *session.Manager, sender *delivery.Sender, opts *Options) *Server {
	if opts == nil {
		opts = &Options{}
	}
	s := &Server{
		sessions: sessions,
		sender:   sender,
		started:  time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", s.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/")
	api.Use(apiKeyAuth(opts.APIKey))
	api.Use(rateLimit(newKeyLimiter(opts.GlobalRPS, opts.GlobalBurst)))

	api.GET("/sessions", s.listSessions)
	api.POST("/session/:id", s.createSession)
	api.GET("/session/:id", s.getSession)
	api.GET("/session/:id/qr", s.sessionQR)
	api.DELETE("/session/:id", s.deleteSession)
	api.GET("/groups/:sessionId", s.listGroups)
	api.GET("/contacts/:sessionId", s.listContacts)

	msg := api.Group("/")
	msg.Use(rateLimit(newKeyLimiter(opts.MessageRPS, opts.MessageBurst)))
	msg.POST("/send", s.send)
	msg.POST("/send-bulk", s.sendBulk)
	msg.POST("/check-number", s.checkNumber)
	msg.POST("/send-contact", s.sendContact)
	msg.POST("/set-typing", s.setTyping)

	s.engine = engine
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "wabridge",
		"uptime":  time.Since(s.started).Truncate(time.Second).String(),
	})
}

// writeError translates domain errors into HTTP status codes.
func writeError(c *gin.Context, err error) {
	var notConnected *delivery.NotConnectedError
	var sendErr *delivery.SendError
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.As(err, &notConnected):
		c.JSON(http.StatusConflict, gin.H{"error": notConnected.Error()})
	case errors.Is(err, delivery.ErrInvalidMedia),
		errors.Is(err, delivery.ErrEmptyPayload),
		errors.Is(err, delivery.ErrInvalidTypingState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &sendErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": sendErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
