// Package tokens issues the per-party access tokens handed out when a case is
// created. A token is both the credential and the capability for its role.
package tokens

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linesmerrill/docket-api/models"
)

var prefixes = map[string]string{
	models.RoleJudge:     "j",
	models.RolePlaintiff: "p",
	models.RoleDefendant: "d",
}

// Issuer generates tokens. The time component never goes backwards, even if the
// wall clock does, so two tokens from one Issuer never share it.
type Issuer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIssuer returns an Issuer backed by the wall clock
func NewIssuer() *Issuer {
	return &Issuer{now: time.Now}
}

// Issue returns a fresh token for role. The first character tags the party kind,
// followed by a monotonic base36 time stamp and 122 random bits.
func (i *Issuer) Issue(role string) string {
	prefix, ok := prefixes[role]
	if !ok {
		prefix = "x"
	}
	return prefix + strconv.FormatInt(i.tick(), 36) + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IssueAll returns one token per token holding role
func (i *Issuer) IssueAll() (judge, plaintiff, defendant string) {
	return i.Issue(models.RoleJudge), i.Issue(models.RolePlaintiff), i.Issue(models.RoleDefendant)
}

func (i *Issuer) tick() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	now := i.now().UnixMicro()
	if now <= i.last {
		now = i.last + 1
	}
	i.last = now
	return now
}

// Kind returns the role a token was issued for, judged from its prefix
func Kind(token string) (string, bool) {
	if token == "" || token == models.RevokedToken {
		return "", false
	}
	for role, p := range prefixes {
		if strings.HasPrefix(token, p) {
			return role, true
		}
	}
	return "", false
}
