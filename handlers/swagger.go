package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the session service.
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
    <title>facturador-auth - Swagger</title>
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

// Session endpoints. Credentials travel in the access-token / refresh-token cookies.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "facturador-auth", "version": "v0.2.0" },
  "components": {
    "schemas": {
      "Error": { "type": "object", "properties": { "error": { "type": "object", "properties": { "code": {"type":"string"}, "message": {"type":"string"} } } } },
      "User": { "type": "object", "properties": { "id": {"type":"string"}, "email": {"type":"string"}, "name": {"type":"string"}, "tenantId": {"type":"string"} } }
    }
  },
  "paths": {
    "/api/auth/login": {
      "post": {
        "summary": "Login with email and password; sets access-token and refresh-token cookies",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "{user, accessToken}" }, "400": { "description": "missing fields" }, "401": { "description": "bad password" }, "404": { "description": "unknown user" } }
      }
    },
    "/api/auth/register": {
      "post": {
        "summary": "Create an account and log it in",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"},"name":{"type":"string"},"tenantId":{"type":"string"}}}}}},
        "responses": { "201": { "description": "{user, token}" }, "400": { "description": "invalid email or short password" }, "409": { "description": "duplicate email" } }
      }
    },
    "/api/auth/refresh": {
      "post": { "summary": "Rotate the refresh-token cookie", "responses": { "200": { "description": "{user, accessToken}" }, "401": { "description": "missing, invalid, expired or replayed refresh token" } } }
    },
    "/api/auth/logout": {
      "post": { "summary": "Revoke the refresh token and clear session cookies", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/auth/session": {
      "get": { "summary": "Identity from the access-token cookie", "responses": { "200": { "description": "{id, email, name}" }, "401": { "description": "missing or invalid access token" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Stored profile of the caller", "responses": { "200": { "description": "user" }, "401": { "description": "unauthenticated" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
