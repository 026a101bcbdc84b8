package server

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/gpiolink/internal/link"
	"github.com/danmuck/gpiolink/internal/protocol/frame"
	"github.com/danmuck/gpiolink/internal/protocol/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

type startRequest struct {
	Role string `json:"role"`
}

type messageRequest struct {
	Payload  string `json:"payload"`
	Priority string `json:"priority"`
}

type messageView struct {
	Length  uint8  `json:"length"`
	Payload string `json:"payload"`
	Reply   bool   `json:"reply"`
}

func viewOf(m frame.Message) messageView {
	return messageView{
		Length:  m.Length,
		Payload: hex.EncodeToString(m.Bytes()),
		Reply:   m.IsReply(),
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"node":    s.ID,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/status", func(c *gin.Context) {
		pending := s.link.Pending()
		queued := make([]messageView, 0, len(pending))
		for _, m := range pending {
			queued = append(queued, viewOf(m))
		}
		subscribed := false
		if s.events != nil {
			subscribed = s.events.Subscribed()
		}
		c.JSON(http.StatusOK, gin.H{
			"link":       s.link.Status(),
			"outbox":     queued,
			"subscribed": subscribed,
		})
	})

	s.router.POST("/session/start", s.handleStart)
	s.router.POST("/session/stop", s.handleStop)
	s.router.POST("/messages", s.handleEnqueue)
	s.router.GET("/inbox", s.handleInbox)

	if s.events != nil {
		s.router.GET("/events", func(c *gin.Context) {
			s.events.ServeWS(c.Writer, c.Request)
		})
	}
}

func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	role, err := link.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.link.Start(role); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, link.ErrSessionActive) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.log.Info().Str("role", role.String()).Msg("session started")
	c.JSON(http.StatusOK, gin.H{"status": "started", "role": role.String()})
}

func (s *Server) handleStop(c *gin.Context) {
	if err := s.link.Stop(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, link.ErrNoActiveSession) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) handleEnqueue(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	data, err := hex.DecodeString(strings.TrimSpace(req.Payload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be hex"})
		return
	}
	msg, err := frame.NewMessage(data)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	prio, explicit, err := session.ParsePriority(req.Priority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !explicit {
		prio = session.PriorityFor(msg)
	}

	if err := s.link.Enqueue(msg, prio); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrQueueFull):
			status = http.StatusServiceUnavailable
		case errors.Is(err, frame.ErrMessageTooLarge):
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"queued":       msg.Length,
		"priority":     prio.String(),
		"outbox_depth": s.link.Status().OutboxDepth,
	})
}

func (s *Server) handleInbox(c *gin.Context) {
	msg, ok := s.link.TryTakeInbox()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, viewOf(msg))
}
