package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/middleware"
	"github.com/lalith-99/sitetrack/internal/session"
	"github.com/lalith-99/sitetrack/internal/store"
	"go.uber.org/zap"
)

// ownerScope resolves the calling owner's store. A session that was
// logged out, explicitly or by a failed verification, is refused even if
// its token has not expired yet.
//
// Why check the session here and not in the auth middleware?
//   - The middleware only proves the JWT is signed and unexpired. It
//     cannot know the actor was deleted an hour after the token was issued.
//   - Every handler that touches data goes through store(), so one check
//     here covers all of them. Session routes skip it on purpose so a
//     logged-out client can still ask what state it is in.
//
// Why is the owner id taken from the token and never from the request?
//   - The registry hands out one store per owner. A client-supplied id
//     would let anyone read another owner's sites.
type ownerScope struct {
	registry *store.Registry
	sessions *session.Manager
	logger   *zap.Logger
}

func (s ownerScope) store(c *gin.Context) (*store.Store, bool) {
	if s.sessions.State(middleware.GetActorID(c)) == session.StateLoggedOut {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session ended, log in again"})
		return nil, false
	}
	st, err := s.registry.Get(c.Request.Context(), middleware.GetOwnerID(c))
	if err != nil {
		writeError(c, s.logger, "load data", err)
		return nil, false
	}
	return st, true
}

// paramID parses the :name path parameter as a uuid, answering 400 if it
// isn't one.
func paramID(c *gin.Context, name, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + entity + " id"})
		return uuid.Nil, false
	}
	return id, true
}
