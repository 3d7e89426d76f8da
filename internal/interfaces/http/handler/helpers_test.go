package handler

import (
	"github.com/fiscaltms/backend/internal/interfaces/http/middleware"
	"github.com/fiscaltms/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// authClaims injects JWT context keys the way the auth middleware does,
// so handlers under test see an authenticated request.
func authClaims(orgID, branchID, userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTOrgIDKey, orgID.String())
		c.Set(middleware.JWTBranchIDKey, branchID.String())
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Next()
	}
}

// newTestEngine builds a gin engine with the registrar mounted under /api/v1
func newTestEngine(registrar router.RouteRegistrar, orgID, branchID, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(authClaims(orgID, branchID, userID))
	router.NewRouter(engine).Register(registrar).Setup()
	return engine
}
