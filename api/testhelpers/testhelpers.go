// Package testhelpers holds in-memory stand-ins for the case store and the blob
// store, for tests that need real behaviour rather than canned mock replies.
package testhelpers

import (
	"context"
	"io"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/docket-api/databases"
	"github.com/linesmerrill/docket-api/models"
	"github.com/linesmerrill/docket-api/storage"
)

// Cases is a CaseDatabase kept in memory. Filters support top level and dotted
// field equality plus $or.
type Cases struct {
	mu    sync.Mutex
	cases []models.Case

	// SaveErr, when set, fails every Save
	SaveErr error
	// DeleteErr, when set, fails every DeleteOne
	DeleteErr error
	Saves     int
}

var _ databases.CaseDatabase = (*Cases)(nil)

// NewCases returns a store holding copies of cases
func NewCases(cases ...models.Case) *Cases {
	s := &Cases{}
	for _, c := range cases {
		s.cases = append(s.cases, clone(c))
	}
	return s
}

// Get returns a copy of the stored case for docket
func (s *Cases) Get(docket string) (models.Case, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cases {
		if c.Docket == docket {
			return clone(c), true
		}
	}
	return models.Case{}, false
}

func (s *Cases) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cases {
		if matches(c, filter) {
			out := clone(c)
			return &out, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *Cases) Find(_ context.Context, filter interface{}, _ ...*options.FindOptions) ([]models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Case
	for _, c := range s.cases {
		if matches(c, filter) {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func (s *Cases) InsertOne(_ context.Context, c models.Case) (databases.InsertOneResultHelper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cases {
		if existing.Docket == c.Docket {
			return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key"}}}
		}
	}
	s.cases = append(s.cases, clone(c))
	return insertResult(c.Docket), nil
}

func (s *Cases) Save(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	for i := range s.cases {
		if s.cases[i].Docket == c.Docket {
			s.cases[i] = clone(*c)
			s.Saves++
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (s *Cases) DeleteOne(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	for i, c := range s.cases {
		if matches(c, filter) {
			s.cases = append(s.cases[:i], s.cases[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Cases) DeleteMany(_ context.Context, filter interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.Case
	var n int64
	for _, c := range s.cases {
		if matches(c, filter) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	s.cases = kept
	return n, nil
}

func (s *Cases) EnsureIndexes(context.Context) error {
	return nil
}

type insertResult string

func (r insertResult) Decode() interface{} {
	return string(r)
}

func clone(c models.Case) models.Case {
	out := c
	out.Links = append([]models.Link(nil), c.Links...)
	out.Messages = append([]models.Message(nil), c.Messages...)
	if c.Amici != nil {
		a := *c.Amici
		out.Amici = &a
	}
	return out
}

func matches(c models.Case, filter interface{}) bool {
	if filter == nil {
		return true
	}
	raw, err := bson.Marshal(c)
	if err != nil {
		return false
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return false
	}
	f, ok := filter.(bson.M)
	if !ok {
		return false
	}
	return matchDoc(doc, f)
}

func matchDoc(doc bson.M, f bson.M) bool {
	for k, want := range f {
		if k == "$or" {
			alts, _ := want.([]bson.M)
			hit := false
			for _, alt := range alts {
				if matchDoc(doc, alt) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(lookup(doc, k), want) {
			return false
		}
	}
	return true
}

func lookup(doc bson.M, key string) interface{} {
	var cur interface{} = doc
	for _, part := range strings.Split(key, ".") {
		switch m := cur.(type) {
		case bson.M:
			cur = m[part]
		case bson.D:
			cur = m.Map()[part]
		default:
			return nil
		}
	}
	return cur
}

// Blobs wraps a BlobStore and fails chosen operations
type Blobs struct {
	storage.BlobStore

	mu sync.Mutex
	// WriteErr fails every WriteFile
	WriteErr error
	// RenameErr fails Rename when it returns non-nil for the paths
	RenameErr func(oldPath, newPath string) error
	// Ops records mutating calls in order, as "op path[ -> path]"
	Ops []string
}

// NewBlobs wraps inner
func NewBlobs(inner storage.BlobStore) *Blobs {
	return &Blobs{BlobStore: inner}
}

func (b *Blobs) record(op string) {
	b.mu.Lock()
	b.Ops = append(b.Ops, op)
	b.mu.Unlock()
}

func (b *Blobs) Rename(ctx context.Context, oldPath, newPath string) error {
	b.record("rename " + oldPath + " -> " + newPath)
	if b.RenameErr != nil {
		if err := b.RenameErr(oldPath, newPath); err != nil {
			return err
		}
	}
	return b.BlobStore.Rename(ctx, oldPath, newPath)
}

func (b *Blobs) WriteFile(ctx context.Context, path string, r io.Reader) error {
	b.record("write " + path)
	if b.WriteErr != nil {
		return b.WriteErr
	}
	return b.BlobStore.WriteFile(ctx, path, r)
}

func (b *Blobs) MkdirAll(ctx context.Context, path string) error {
	b.record("mkdir " + path)
	return b.BlobStore.MkdirAll(ctx, path)
}

func (b *Blobs) RemoveAll(ctx context.Context, path string) error {
	b.record("removeall " + path)
	return b.BlobStore.RemoveAll(ctx, path)
}

// Mutations returns a copy of Ops
func (b *Blobs) Mutations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Ops...)
}
