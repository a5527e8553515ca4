// Package server exposes the dashboard client over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cosmoos/cosmo-go/pkg/core"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/reflection"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// Server serves the dashboard API.
type Server struct {
	client *core.Client
	logger *logrus.Entry
}

// New creates a Server over a dashboard client.
func New(client *core.Client) *Server {
	return &Server{
		client: client,
		logger: client.Logger().WithField("component", "server"),
	}
}

// SetupRouter builds the gin engine with every route registered.
func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Healthz)

	api := r.Group("/api")
	api.GET("/dimensions/:dimension", s.GetDimension)
	api.POST("/insights/compute", s.ComputeInsights)

	refl := api.Group("/reflection")
	refl.POST("/mood", s.LogMood)
	refl.POST("/journal", s.AddJournalEntry)
	refl.DELETE("/journal/:id", s.DeleteJournalEntry)
	refl.GET("/conversations", s.ListConversations)
	refl.PUT("/conversations/:id", s.SaveConversation)
	refl.GET("/conversations/:id", s.GetConversation)
	refl.DELETE("/conversations/:id", s.DeleteConversation)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}

// Healthz reports liveness.
func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetDimension refreshes and returns one dimension snapshot.
func (s *Server) GetDimension(c *gin.Context) {
	dim, err := core.ParseDimension(c.Param("dimension"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := s.client.Refresh(c.Request.Context(), dim)
	if err != nil {
		s.logger.WithError(err).WithField("dimension", dim).Warn("refresh failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot unavailable"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// ComputeInsights recomputes correlation insights on demand.
func (s *Server) ComputeInsights(c *gin.Context) {
	correlations, err := s.client.ComputeInsights(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("insight computation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute insights"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"correlations": correlations})
}

// MoodRequest is the body of POST /api/reflection/mood.
type MoodRequest struct {
	Valence int    `json:"valence" binding:"required,min=1,max=5"`
	Label   string `json:"label"`
	Energy  int    `json:"energy"`
	Note    string `json:"note"`
}

// LogMood stores a mood check-in.
func (s *Server) LogMood(c *gin.Context) {
	var req MoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	mood, err := s.client.Reflection().LogMood(c.Request.Context(), models.MoodCheckIn{
		Valence: req.Valence,
		Label:   req.Label,
		Energy:  req.Energy,
		Note:    req.Note,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mood)
}

// JournalRequest is the body of POST /api/reflection/journal.
type JournalRequest struct {
	Text   string   `json:"text" binding:"required"`
	Prompt string   `json:"prompt"`
	Tags   []string `json:"tags"`
}

// AddJournalEntry stores a journal entry.
func (s *Server) AddJournalEntry(c *gin.Context) {
	var req JournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	entry, err := s.client.Reflection().AddJournalEntry(c.Request.Context(), models.JournalEntry{
		Text:   req.Text,
		Prompt: req.Prompt,
		Tags:   req.Tags,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// DeleteJournalEntry removes a journal entry.
func (s *Server) DeleteJournalEntry(c *gin.Context) {
	if err := s.client.Reflection().DeleteJournalEntry(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListConversations returns every saved conversation.
func (s *Server) ListConversations(c *gin.Context) {
	conversations, err := s.client.Reflection().ListConversations(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// ConversationRequest is the body of PUT /api/reflection/conversations/:id.
type ConversationRequest struct {
	Title    string           `json:"title"`
	Messages []models.Message `json:"messages"`
}

// SaveConversation inserts or replaces a conversation.
func (s *Server) SaveConversation(c *gin.Context) {
	var req ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	conv, err := s.client.Reflection().SaveConversation(c.Request.Context(), &models.Conversation{
		ID:       c.Param("id"),
		Title:    req.Title,
		Messages: req.Messages,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// GetConversation returns one conversation.
func (s *Server) GetConversation(c *gin.Context) {
	conv, err := s.client.Reflection().GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// DeleteConversation removes a conversation.
func (s *Server) DeleteConversation(c *gin.Context) {
	if err := s.client.Reflection().DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps repository errors onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, reflection.ErrInvalidValence), errors.Is(err, reflection.ErrEmptyJournal):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
