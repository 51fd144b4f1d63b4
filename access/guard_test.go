package access_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linesmerrill/docket-api/access"
	"github.com/linesmerrill/docket-api/models"
)

type recordingInvalidator struct {
	ids []string
	err error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return r.err
}

func newCase() *models.Case {
	return &models.Case{
		Docket:    "12-345",
		Judge:     models.Party{Person: "Judy", Token: "jtoken"},
		Plaintiff: models.Party{Person: "Pat", Token: "ptoken"},
		Defendant: models.Party{Person: "Dan", Token: "dtoken"},
	}
}

func TestAuthorizeMatchingTokens(t *testing.T) {
	c := newCase()

	assert.True(t, access.Authorize(c, models.RoleJudge, "jtoken").Allowed)
	assert.True(t, access.Authorize(c, models.RolePlaintiff, "ptoken").Allowed)
	assert.True(t, access.Authorize(c, models.RoleDefendant, "dtoken").Allowed)
}

func TestAuthorizeMismatch(t *testing.T) {
	c := newCase()

	tests := []struct {
		role  string
		token string
	}{
		{models.RoleJudge, "ptoken"},
		{models.RolePlaintiff, "dtoken"},
		{models.RoleDefendant, ""},
		{models.RoleDefendant, "jtoken"},
	}
	for _, tt := range tests {
		d := access.Authorize(c, tt.role, tt.token)
		assert.False(t, d.Allowed, "%s/%s", tt.role, tt.token)
		assert.ErrorIs(t, d.Err(), models.ErrUnauthorized)
		assert.False(t, d.EndSession)
	}
}

func TestAuthorizeInvalidRoleBeforeTokenComparison(t *testing.T) {
	c := newCase()

	for _, role := range []string{"amici", "clerk", ""} {
		d := access.Authorize(c, role, "jtoken")
		assert.False(t, d.Allowed)
		assert.ErrorIs(t, d.Err(), models.ErrInvalidRole)
		assert.ErrorIs(t, d.Err(), models.ErrValidation)
	}
}

func TestAuthorizeRevokedPlaintiff(t *testing.T) {
	c := newCase()
	c.Plaintiff.Token = models.RevokedToken
	c.Defendant.Token = models.RevokedToken

	for _, role := range []string{models.RolePlaintiff, models.RoleDefendant} {
		for _, tok := range []string{"ptoken", "dtoken", models.RevokedToken, "anything"} {
			assert.False(t, access.Authorize(c, role, tok).Allowed, "%s/%s", role, tok)
		}
	}

	// only a presented token that matches reaches the revocation rule
	d := access.Authorize(c, models.RoleDefendant, models.RevokedToken)
	assert.True(t, d.EndSession)
	assert.ErrorIs(t, d.Err(), models.ErrUnauthorized)

	assert.True(t, access.Authorize(c, models.RoleJudge, "jtoken").Allowed)
}

func TestAuthorizeRevokedPlaintiffLocksDefendantWithValidToken(t *testing.T) {
	c := newCase()
	c.Plaintiff.Token = models.RevokedToken

	d := access.Authorize(c, models.RoleDefendant, "dtoken")
	assert.False(t, d.Allowed)
	assert.True(t, d.EndSession)
}

func TestAuthorizeAggregate(t *testing.T) {
	c := newCase()
	c.Plaintiff.Token = models.RevokedToken

	assert.True(t, access.AuthorizeAggregate(c).Allowed)
	assert.NoError(t, access.AuthorizeAggregate(c).Err())
}

func TestGuardCheckInvalidatesSession(t *testing.T) {
	c := newCase()
	c.Plaintiff.Token = models.RevokedToken
	inv := &recordingInvalidator{}
	g := access.Guard{Sessions: inv}

	d := g.Check(context.Background(), c, models.RoleDefendant, "dtoken", "sess-1")

	assert.False(t, d.Allowed)
	assert.Equal(t, []string{"sess-1"}, inv.ids)
}

func TestGuardCheckPlainDenyKeepsSession(t *testing.T) {
	inv := &recordingInvalidator{}
	g := access.Guard{Sessions: inv}

	d := g.Check(context.Background(), newCase(), models.RolePlaintiff, "wrong", "sess-1")

	assert.False(t, d.Allowed)
	assert.Empty(t, inv.ids)
}

func TestGuardCheckInvalidateFailureStillDenies(t *testing.T) {
	c := newCase()
	c.Plaintiff.Token = models.RevokedToken
	g := access.Guard{Sessions: &recordingInvalidator{err: errors.New("redis down")}}

	d := g.Check(context.Background(), c, models.RoleDefendant, "dtoken", "sess-1")

	assert.False(t, d.Allowed)
	assert.True(t, d.EndSession)
}
