// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the query gateway.
//
// # User Context Flow
//
// The user-context middleware reads the caller's role and permission set
// from the X-User-Role and X-User-Permissions headers and stores a
// nlquery.UserContext in the Gin context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	UserContextMiddleware
//	   │
//	   ├─► X-User-Role        (default "user")
//	   ├─► X-User-Permissions (comma-separated, default "basic")
//	   │
//	   └─► Store UserContext in context
//	           │
//	           ▼
//	       Handler (retrieves via GetUserContext)
//
// Missing or empty headers degrade to the most restricted scope, never
// to an error: an anonymous caller is a basic user.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/homewiz/querygate/services/nlquery"
)

// Header names consumed by UserContextMiddleware.
const (
	HeaderUserRole        = "X-User-Role"
	HeaderUserPermissions = "X-User-Permissions"
)

// userContextKey is the gin context key for the stored UserContext.
// Typed key string prevents collisions with other context values.
const userContextKey = "querygate_user_context"

// UserContextMiddleware resolves the caller's identity from request
// headers and stores it for handlers.
func UserContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(userContextKey, parseUserContext(c))
		c.Next()
	}
}

// GetUserContext retrieves the caller's context. Returns the default
// (role "user", permissions ["basic"]) when the middleware did not run.
func GetUserContext(c *gin.Context) nlquery.UserContext {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(nlquery.UserContext); ok {
			return user
		}
	}
	return nlquery.DefaultUserContext()
}

func parseUserContext(c *gin.Context) nlquery.UserContext {
	user := nlquery.DefaultUserContext()

	if role := strings.TrimSpace(c.GetHeader(HeaderUserRole)); role != "" {
		user.Role = role
	}
	if raw := c.GetHeader(HeaderUserPermissions); raw != "" {
		var perms []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				perms = append(perms, p)
			}
		}
		if len(perms) > 0 {
			user.Permissions = perms
		}
	}
	return user
}
