package handler

import (
	"log/slog"

	"github.com/jitenkr2030/VisualVerse-sub004/internal/engine"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Engine *engine.Engine
}

// RenderHandler handles render-job HTTP requests
type RenderHandler struct {
	logger *slog.Logger
	engine *engine.Engine
}

// NewRenderHandler creates a new RenderHandler instance
func NewRenderHandler(deps *Dependencies) *RenderHandler {
	return &RenderHandler{
		logger: deps.Logger,
		engine: deps.Engine,
	}
}
