// Package access decides whether a presented token may act as a role on a case.
package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linesmerrill/docket-api/models"
)

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	// Reason is nil when Allowed, otherwise it wraps one of the models error classes
	Reason error
	// EndSession asks the caller to invalidate the requester's session, not only
	// to refuse this request
	EndSession bool
}

// Allow is the positive decision
var Allow = Decision{Allowed: true}

func deny(reason error) Decision {
	return Decision{Reason: reason}
}

// Authorize checks presented against the token c holds for role. The case must
// exist; callers report models.ErrCaseNotFound before getting here.
func Authorize(c *models.Case, role, presented string) Decision {
	party, ok := c.Party(role)
	if !ok {
		return deny(fmt.Errorf("%w: %q", models.ErrInvalidRole, role))
	}
	if presented == "" || party.Token != presented {
		return deny(models.ErrUnauthorized)
	}
	// A revoked plaintiff locks both litigants out; the judge keeps access.
	if c.Plaintiff.Token == models.RevokedToken && role != models.RoleJudge {
		return Decision{Reason: models.ErrUnauthorized, EndSession: true}
	}
	return Allow
}

// AuthorizeAggregate is the read-only view across every side of a case. It needs
// no token.
func AuthorizeAggregate(*models.Case) Decision {
	return Allow
}

// SessionInvalidator ends a session by id
type SessionInvalidator interface {
	Invalidate(ctx context.Context, sessionID string) error
}

// Guard runs Authorize and carries out the session side effect of a denial
type Guard struct {
	Sessions SessionInvalidator
}

// Check authorizes token for role on c. When the decision says so, the session
// identified by sessionID is invalidated before the denial is returned.
func (g Guard) Check(ctx context.Context, c *models.Case, role, token, sessionID string) Decision {
	d := Authorize(c, role, token)
	if d.EndSession && g.Sessions != nil && sessionID != "" {
		if err := g.Sessions.Invalidate(ctx, sessionID); err != nil {
			zap.S().Errorw("failed to invalidate session",
				"docket", c.Docket,
				"role", role,
				"error", err)
		}
	}
	return d
}

// Err returns the denial reason, or nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}
