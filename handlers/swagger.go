package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>chit API docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the main endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "chit", "version": "v0.1.0" },
  "paths": {
    "/api/auth/signup": {
      "post": {
        "summary": "Create a local account or attach a password to the session identity",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "201": { "description": "identity created" }, "200": { "description": "password attached" }, "403": { "description": "validation failed" }, "409": { "description": "email taken" } }
      }
    },
    "/api/auth/login": {
      "post": {
        "summary": "Local email/password login",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" }, "401": { "description": "login failed" } }
      }
    },
    "/api/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/api/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/auth/{provider}": {
      "get": { "summary": "Start a provider consent flow", "responses": { "302": { "description": "redirect to provider" } } }
    },
    "/api/auth/{provider}/callback": {
      "get": { "summary": "Provider callback: sign in, sign up or link", "responses": { "200": { "description": "tokens returned" }, "201": { "description": "identity created" }, "403": { "description": "invalid state" } } }
    },
    "/api/me": {
      "get": { "summary": "Current identity", "responses": { "200": { "description": "identity" } } }
    },
    "/api/users": {
      "get": { "summary": "List users", "responses": { "200": { "description": "users" } } }
    },
    "/api/users/search/{query}": {
      "get": { "summary": "Search users by name or email", "responses": { "200": { "description": "users" } } }
    },
    "/api/notes": {
      "post": { "summary": "Create a note", "responses": { "201": { "description": "note" } } },
      "get": { "summary": "List own notes", "responses": { "200": { "description": "notes" } } }
    },
    "/api/notes/{id}": {
      "get": { "summary": "Get a note", "responses": { "200": { "description": "note" }, "404": { "description": "missing or not owned" } } },
      "put": { "summary": "Update a note", "responses": { "200": { "description": "note" } } },
      "delete": { "summary": "Delete a note", "responses": { "200": { "description": "deleted" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
