package archive

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/docket-api/models"
	"github.com/linesmerrill/docket-api/storage"
)

// Orphans lists live document paths that no case link points at. These are
// left behind when an upload installs its bytes but the save fails.
func (m *Manager) Orphans(ctx context.Context) ([]string, error) {
	cases, err := m.DB.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: list cases: %v", models.ErrPersistence, err)
	}
	linked := make(map[string]struct{})
	for _, c := range cases {
		for _, l := range c.Links {
			linked[storage.DocumentPath(c.Docket, l.Side, l.Name)] = struct{}{}
		}
	}

	files, err := m.Blobs.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: list blobs: %v", models.ErrStorage, err)
	}

	var orphans []string
	for _, f := range files {
		parts := strings.Split(f, "/")
		if len(parts) != 3 || parts[0] == storage.ArchiveRoot || !models.IsSide(parts[1]) {
			continue
		}
		if storage.IsArchivePath(parts[0], f) || storage.IsTempPath(f) {
			continue
		}
		if _, ok := linked[f]; !ok {
			orphans = append(orphans, f)
		}
	}
	return orphans, nil
}
