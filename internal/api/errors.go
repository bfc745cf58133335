package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/sitetrack/internal/assign"
	"github.com/lalith-99/sitetrack/internal/crmerr"
	"go.uber.org/zap"
)

// statusOf maps a domain error kind to its HTTP status.
func statusOf(kind crmerr.Kind) int {
	switch kind {
	case crmerr.KindValidation:
		return http.StatusBadRequest
	case crmerr.KindNotFound:
		return http.StatusNotFound
	case crmerr.KindDuplicateName, crmerr.KindDuplicatePhone, crmerr.KindDuplicateTitle, crmerr.KindConflict:
		return http.StatusConflict
	case crmerr.KindAuthorization:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err to the client. Storage failures are logged and
// hidden behind a generic message.
func writeError(c *gin.Context, logger *zap.Logger, action string, err error) {
	kind := crmerr.KindOf(err)
	status := statusOf(kind)
	if status == http.StatusInternalServerError {
		logger.Error("failed to "+action, zap.Error(err))
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "failed to " + action})
		return
	}

	msg := err.Error()
	var domain *crmerr.Error
	if errors.As(err, &domain) {
		msg = domain.Message
	}
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

// writeOutcome sends an engine result. An outcome blocked on a conflict
// or reassignment question is a 409 carrying the decision; anything that
// committed is a 200, possibly with a follow-up restore decision.
//
// Why 409 with a body instead of a 200 with a "pending" flag?
//   - Nothing was written. A client that only checks the status code must
//     not treat the move as done.
//   - The body still has everything needed to ask the user: the decision
//     token, the allowed choices and the site that is in the way.
//   - The client answers with POST /v1/decisions/:token {"choice": ...}.
//
// Why is a restore decision a 200?
//   - It is only asked after the handover or delete has committed. The
//     move itself succeeded; the question is an optional follow-up.
func writeOutcome(c *gin.Context, out *assign.Outcome) {
	if out.Blocked() {
		c.JSON(http.StatusConflict, gin.H{
			"error":    "decision required",
			"kind":     crmerr.KindConflict,
			"decision": out.Pending,
		})
		return
	}
	c.JSON(http.StatusOK, out)
}
