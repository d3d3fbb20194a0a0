// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/homewiz/querygate/services/nlquery"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runWithHeaders(headers map[string]string) nlquery.UserContext {
	var captured nlquery.UserContext

	router := gin.New()
	router.Use(UserContextMiddleware())
	router.GET("/probe", func(c *gin.Context) {
		captured = GetUserContext(c)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/probe", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(httptest.NewRecorder(), req)
	return captured
}

func TestUserContextMiddleware_Defaults(t *testing.T) {
	user := runWithHeaders(nil)
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, []string{"basic"}, user.Permissions)
}

func TestUserContextMiddleware_Headers(t *testing.T) {
	user := runWithHeaders(map[string]string{
		HeaderUserRole:        "manager",
		HeaderUserPermissions: "manager, basic",
	})
	assert.Equal(t, "manager", user.Role)
	assert.Equal(t, []string{"manager", "basic"}, user.Permissions)
}

func TestUserContextMiddleware_EmptyPermissionListFallsBack(t *testing.T) {
	user := runWithHeaders(map[string]string{
		HeaderUserPermissions: " , ,",
	})
	assert.Equal(t, []string{"basic"}, user.Permissions)
}

func TestGetUserContext_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	user := GetUserContext(c)
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, []string{"basic"}, user.Permissions)
}
