// Copyright (C) 2026 MindGate AI (engineering@mindgate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides gin middleware for the orchestrator.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MindGateAI/MindGateCore/pkg/extensions"
)

// authInfoKey is the gin context key the authenticated identity is
// stored under.
const authInfoKey = "mindgate.auth_info"

// Auth validates the bearer token on every request and stores the
// caller's identity in the request context. With the NopAuthProvider
// every request authenticates as the fixed local user; hosted
// deployments plug in a real provider.
func Auth(provider extensions.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))

		info, err := provider.Validate(c.Request.Context(), token)
		if err != nil {
			slog.Warn("authentication failed", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(authInfoKey, info)
		c.Next()
	}
}

// AuthInfoFrom returns the identity stored by Auth. The second return is
// false on routes that skipped the middleware.
func AuthInfoFrom(c *gin.Context) (*extensions.AuthInfo, bool) {
	value, ok := c.Get(authInfoKey)
	if !ok {
		return nil, false
	}
	info, ok := value.(*extensions.AuthInfo)
	return info, ok
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
