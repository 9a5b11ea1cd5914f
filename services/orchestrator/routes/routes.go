// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes registers the orchestrator's HTTP surface.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MindGateAI/MindGateCore/pkg/extensions"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/handlers"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/middleware"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/pipeline"
	"github.com/MindGateAI/MindGateCore/services/orchestrator/shield"
)

// Deps carries everything the routes need.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Shield   *shield.Service
	Options  extensions.ServiceOptions
}

// Register wires all endpoints onto the engine. Health and metrics stay
// outside authentication; everything under /v1 requires it.
func Register(r *gin.Engine, deps Deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(middleware.Auth(deps.Options.AuthProvider))
	{
		v1.POST("/chat", handlers.HandleChat(deps.Pipeline, deps.Shield, deps.Options.AuditLogger))
		v1.POST("/chat/stream", handlers.HandleChatStream(deps.Pipeline, deps.Shield))
		v1.POST("/shield/confirm", handlers.HandleShieldConfirm(deps.Pipeline, deps.Shield))
		v1.POST("/shield/resolve", handlers.HandleShieldResolve(deps.Shield))
	}
}
