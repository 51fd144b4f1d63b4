// Package archive installs, supersedes and removes case documents. Every
// replaced or removed document is moved to a salted archive slot rather than
// deleted, and deleted cases keep their whole directory under the shared
// archive root.
//
// Upload and Remove order their steps differently. Upload archives the old
// file, installs the new one and only then saves the case; Remove saves the
// case first and moves the file afterwards. The order decides what a crash
// leaves behind, so keep it.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/docket-api/access"
	"github.com/linesmerrill/docket-api/databases"
	"github.com/linesmerrill/docket-api/models"
	"github.com/linesmerrill/docket-api/storage"
)

var pdfSignature = []byte("%PDF")

// Manager coordinates the case store and the blob store
type Manager struct {
	DB       databases.CaseDatabase
	Blobs    storage.BlobStore
	Sessions access.SessionInvalidator

	now   func() time.Time
	salt  func() string
	locks *Locks
}

// Option configures a Manager
type Option func(*Manager)

// WithDocketLocks serializes mutations of the same docket within this process
func WithDocketLocks(l *Locks) Option {
	return func(m *Manager) { m.locks = l }
}

// WithClock replaces time.Now for link dates
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSalt replaces the archive salt source
func WithSalt(salt func() string) Option {
	return func(m *Manager) { m.salt = salt }
}

// NewManager returns a Manager
func NewManager(db databases.CaseDatabase, blobs storage.BlobStore, sessions access.SessionInvalidator, opts ...Option) *Manager {
	m := &Manager{
		DB:       db,
		Blobs:    blobs,
		Sessions: sessions,
		now:      time.Now,
		salt:     storage.NewSalt,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Lock takes the docket lock if serialization is enabled. The returned func
// releases it.
func (m *Manager) Lock(docket string) func() {
	if m.locks == nil {
		return func() {}
	}
	return m.locks.Lock(docket)
}

// IsPDF reports whether data starts with the PDF signature
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfSignature)
}

// Provision creates the directories a new case needs
func (m *Manager) Provision(ctx context.Context, docket string) error {
	if !storage.ValidDocket(docket) {
		return fmt.Errorf("%w: %q", models.ErrInvalidDocket, docket)
	}
	if err := m.Blobs.MkdirAll(ctx, storage.CaseArchiveDir(docket)); err != nil {
		return fmt.Errorf("%w: provision %s: %v", models.ErrStorage, docket, err)
	}
	if err := m.Blobs.MkdirAll(ctx, storage.ArchiveRoot); err != nil {
		return fmt.Errorf("%w: provision archive root: %v", models.ErrStorage, err)
	}
	return nil
}

func validDocument(docket, side, name string) error {
	if !storage.ValidDocket(docket) {
		return fmt.Errorf("%w: %q", models.ErrInvalidDocket, docket)
	}
	if !models.IsSide(side) {
		return fmt.Errorf("%w: %q", models.ErrInvalidRole, side)
	}
	if !storage.ValidName(name) {
		return fmt.Errorf("%w: %q", models.ErrInvalidFileName, name)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, docket string) (*models.Case, error) {
	c, err := m.DB.FindOne(ctx, bson.M{"docket": docket})
	if err != nil {
		if databases.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrCaseNotFound, docket)
		}
		return nil, fmt.Errorf("%w: find %s: %v", models.ErrPersistence, docket, err)
	}
	return c, nil
}

// Upload installs data as side's document name on docket and returns the saved
// case. An existing document of the same name is archived first and restored
// if the install or the save fails. When the save fails the new bytes may stay
// at the document path without a link pointing at them.
func (m *Manager) Upload(ctx context.Context, docket, side, name string, data []byte) (*models.Case, error) {
	if err := validDocument(docket, side, name); err != nil {
		return nil, err
	}
	if !IsPDF(data) {
		return nil, models.ErrInvalidFileType
	}

	ctx = context.WithoutCancel(ctx)
	defer m.Lock(docket)()

	c, err := m.load(ctx, docket)
	if err != nil {
		return nil, err
	}

	logical := storage.DocumentPath(docket, side, name)
	idx := c.FindLink(side, name)

	var archived string
	if idx >= 0 {
		archived = storage.DocumentArchivePath(docket, name, m.salt())
		if err := m.Blobs.Rename(ctx, logical, archived); err != nil {
			if !errors.Is(err, storage.ErrNotExist) {
				return nil, fmt.Errorf("%w: archive %s: %v", models.ErrUploadFailed, logical, err)
			}
			zap.S().Warnw("linked document missing from blob store",
				"docket", docket,
				"path", logical)
			archived = ""
		}
	}

	if err := m.Blobs.WriteFile(ctx, logical, bytes.NewReader(data)); err != nil {
		m.restore(ctx, archived, logical)
		return nil, fmt.Errorf("%w: install %s: %v", models.ErrUploadFailed, logical, err)
	}

	updated := *c
	updated.Links = append([]models.Link(nil), c.Links...)
	date := primitive.NewDateTimeFromTime(m.now())
	if idx >= 0 {
		updated.Links[idx].Version++
		updated.Links[idx].Date = date
	} else {
		updated.Links = append(updated.Links, models.Link{
			Side:    side,
			Name:    name,
			Path:    storage.DownloadURL(docket, side, name),
			Version: 1,
			Date:    date,
		})
	}

	if err := m.DB.Save(ctx, &updated); err != nil {
		m.restore(ctx, archived, logical)
		return nil, fmt.Errorf("%w: %v", models.ErrPersistFailed, err)
	}

	zap.S().Infow("document uploaded",
		"docket", docket,
		"side", side,
		"name", name,
		"archived", archived)
	return &updated, nil
}

func (m *Manager) restore(ctx context.Context, archived, logical string) {
	if archived == "" {
		return
	}
	if err := m.Blobs.Rename(ctx, archived, logical); err != nil {
		zap.S().Errorw("failed to restore archived document",
			"from", archived,
			"to", logical,
			"error", err)
	}
}

// Remove drops side's document name from docket. The case is saved before the
// file moves to the archive; if the save fails nothing else happens. On success
// the caller's session is invalidated.
func (m *Manager) Remove(ctx context.Context, docket, side, name, sessionID string) error {
	if err := validDocument(docket, side, name); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	defer m.Lock(docket)()

	c, err := m.load(ctx, docket)
	if err != nil {
		return err
	}
	idx := c.FindLink(side, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s/%s", models.ErrFileNotFound, side, name)
	}

	updated := *c
	updated.Links = make([]models.Link, 0, len(c.Links)-1)
	updated.Links = append(updated.Links, c.Links[:idx]...)
	updated.Links = append(updated.Links, c.Links[idx+1:]...)
	if err := m.DB.Save(ctx, &updated); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistFailed, err)
	}

	logical := storage.DocumentPath(docket, side, name)
	archived := storage.DocumentArchivePath(docket, name, m.salt())
	if err := m.Blobs.Rename(ctx, logical, archived); err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			return fmt.Errorf("%w: archive %s: %v", models.ErrStorage, logical, err)
		}
		zap.S().Warnw("removed link had no document", "docket", docket, "path", logical)
	}

	if m.Sessions != nil && sessionID != "" {
		if err := m.Sessions.Invalidate(ctx, sessionID); err != nil {
			zap.S().Errorw("failed to invalidate session after remove",
				"docket", docket,
				"error", err)
		}
	}
	zap.S().Infow("document removed",
		"docket", docket,
		"side", side,
		"name", name,
		"archived", archived)
	return nil
}

// DeleteCase removes the case record and then moves its directory under the
// archive root. A docket with no record is reported as not found and its
// directory is left alone.
func (m *Manager) DeleteCase(ctx context.Context, docket string) error {
	if !storage.ValidDocket(docket) {
		return fmt.Errorf("%w: %q", models.ErrInvalidDocket, docket)
	}

	ctx = context.WithoutCancel(ctx)
	defer m.Lock(docket)()

	n, err := m.DB.DeleteOne(ctx, bson.M{"docket": docket})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", models.ErrPersistFailed, docket, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrCaseNotFound, docket)
	}

	archived := storage.CaseArchivePath(docket, m.salt())
	if err := m.Blobs.Rename(ctx, storage.CaseDir(docket), archived); err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			return fmt.Errorf("%w: archive case %s: %v", models.ErrStorage, docket, err)
		}
		zap.S().Warnw("deleted case had no directory", "docket", docket)
	}
	zap.S().Infow("case deleted", "docket", docket, "archived", archived)
	return nil
}

// Open returns the live copy of side's document name on docket
func (m *Manager) Open(ctx context.Context, docket, side, name string) (io.ReadCloser, error) {
	if err := validDocument(docket, side, name); err != nil {
		return nil, err
	}
	rc, err := m.Blobs.Open(ctx, storage.DocumentPath(docket, side, name))
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s/%s", models.ErrFileNotFound, docket, side, name)
		}
		return nil, fmt.Errorf("%w: open: %v", models.ErrStorage, err)
	}
	return rc, nil
}
