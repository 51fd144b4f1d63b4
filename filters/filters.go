// Package filters turns the view-all filter tag into a case query predicate.
package filters

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/docket-api/models"
)

var predicates = map[string]bson.M{
	"appellate": {"appeal": true},
	"original":  {"appeal": false},
	"federal":   {"level": "federal"},
	"state":     {"level": "state"},
	"closed":    {"close": true},
	"open":      {"close": false},
	"sealed":    {"seal": true},
	"public":    {"seal": false},
	"criminal":  {"type": "criminal"},
	"civil":     {"type": "civil"},
}

// Translate returns the predicate for tag. An empty tag matches every case; an
// unknown tag is rejected with models.ErrInvalidFilter.
func Translate(tag string) (bson.M, error) {
	if tag == "" {
		return bson.M{}, nil
	}
	p, ok := predicates[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q, want one of %s", models.ErrInvalidFilter, tag, strings.Join(Tags(), ", "))
	}
	out := make(bson.M, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, nil
}

// Tags lists the accepted filter tags
func Tags() []string {
	return []string{"appellate", "original", "federal", "state", "closed", "open", "sealed", "public", "criminal", "civil"}
}
