package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"cineindex/internal/crawler"
	"cineindex/internal/history"
	"cineindex/internal/search"
	"cineindex/internal/startup"
	"cineindex/internal/store"
)

type Handlers struct {
	store   *store.Store
	crawler *crawler.Crawler
	engine  *search.Engine
	history *history.Log
	config  *startup.Config

	// baseCtx outlives individual requests; background crawls kicked off
	// by the API run under it so shutdown can stop them.
	baseCtx context.Context

	ready     atomic.Bool
	startTime time.Time
}

func New(baseCtx context.Context, s *store.Store, c *crawler.Crawler, e *search.Engine, h *history.Log, config *startup.Config) *Handlers {
	return &Handlers{
		store:     s,
		crawler:   c,
		engine:    e,
		history:   h,
		config:    config,
		baseCtx:   baseCtx,
		startTime: time.Now(),
	}
}

// SetReady marks the service ready to serve searches. Called once the
// initial snapshot load completes.
func (h *Handlers) SetReady() {
	h.ready.Store(true)
}

// IsReady reports whether the initial snapshot load has completed.
func (h *Handlers) IsReady() bool {
	return h.ready.Load()
}
