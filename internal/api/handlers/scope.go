package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/ironbeam/crewdeck/internal/api/middleware"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/rs/zerolog"
)

// orgActor resolves the authenticated user to an actor within the organization
// named by the :orgID path parameter. It writes the error response itself;
// callers return immediately when ok is false.
func orgActor(c *gin.Context, rbac *auth.RBAC, logger zerolog.Logger) (auth.Actor, bool) {
	user := middleware.RequireUser(c)
	if user == nil {
		return auth.Actor{}, false
	}

	orgID, ok := parseUUIDParam(c, "orgID")
	if !ok {
		return auth.Actor{}, false
	}

	actor, err := rbac.ResolveActor(c.Request.Context(), user, orgID)
	if err != nil {
		respondError(c, logger, err)
		return auth.Actor{}, false
	}
	return actor, true
}
