package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dsa-assist-service/assist"
	"dsa-assist-service/catalog"
	"dsa-assist-service/models"
	"dsa-assist-service/store"
	"dsa-assist-service/version"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// HealthProber reports whether the inference endpoint is reachable.
type HealthProber interface {
	Healthy(ctx context.Context) bool
}

// Handlers represents the HTTP handlers
type Handlers struct {
	svc     *assist.Service
	store   store.ResponseStore
	catalog catalog.Provider
	llm     HealthProber
}

// NewHandlers creates new HTTP handlers
func NewHandlers(svc *assist.Service, st store.ResponseStore, cat catalog.Provider, llm HealthProber) *Handlers {
	return &Handlers{svc: svc, store: st, catalog: cat, llm: llm}
}

// HealthCheck lets the frontend detect whether the backend is reachable
// before attempting generation. The inference field reports reachability of
// the model endpoint; the service itself is healthy either way, since
// generation degrades to the fallback response.
func (h *Handlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	inference := "down"
	if h.llm.Healthy(ctx) {
		inference = "up"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"inference": inference,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Version reports build information.
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get("dsa-assist-service"))
}

// StreamAssist relays the assistance pipeline to the client as server-sent
// events: one metadata event, ordered data events, then complete or error.
func (h *Handlers) StreamAssist(c *gin.Context) {
	req, err := parseAssistRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// The producer stops on its own when the client disconnects, because the
	// request context is cancelled.
	for ev := range h.svc.Stream(c.Request.Context(), req) {
		c.SSEvent(ev.Name, ev.Payload)
		c.Writer.Flush()
	}
}

// Assist is the non-streaming variant: same pipeline, one buffered JSON reply.
func (h *Handlers) Assist(c *gin.Context) {
	req, err := parseAssistRequest(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Assist(c.Request.Context(), req)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClearCache resets the single-slot response store.
func (h *Handlers) ClearCache(c *gin.Context) {
	err := h.store.Clear()
	switch {
	case errors.Is(err, store.ErrCacheMiss):
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached response to clear"})
	case err != nil:
		log.Errorf("failed to clear response cache: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear response cache"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// ListProblems returns the full problem catalog for the problem list UI.
func (h *Handlers) ListProblems(c *gin.Context) {
	problems, err := h.catalog.Problems(c.Request.Context())
	if err != nil {
		log.Errorf("failed to load problem catalog: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load problem catalog"})
		return
	}
	c.JSON(http.StatusOK, problems)
}

// GetProblem returns one problem by ordinal index.
func (h *Handlers) GetProblem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid problem index"})
		return
	}

	problem, err := h.catalog.ProblemByIndex(c.Request.Context(), index)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "problem not found"})
	case err != nil:
		log.Errorf("failed to load problem %d: %v", index, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load problem catalog"})
	default:
		c.JSON(http.StatusOK, problem)
	}
}

func parseAssistRequest(c *gin.Context) (models.AssistRequest, error) {
	index, err := strconv.Atoi(c.DefaultQuery("index", "0"))
	if err != nil {
		return models.AssistRequest{}, fmt.Errorf("invalid problem index %q", c.Query("index"))
	}

	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	return models.AssistRequest{
		Index:    index,
		Language: c.Query("language"),
		Refresh:  refresh,
	}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, assist.ErrLanguageRequired),
		errors.Is(err, assist.ErrUnsupportedLanguage),
		errors.Is(err, assist.ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
