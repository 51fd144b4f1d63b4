package storage

import (
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, d *Disk, p string) string {
	t.Helper()
	rc, err := d.Open(context.Background(), p)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestDiskWriteOpenRename(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	p := DocumentPath("12-345", "plaintiff", "brief.pdf")
	require.NoError(t, d.WriteFile(ctx, p, strings.NewReader("%PDF-one")))
	assert.Equal(t, "%PDF-one", readAll(t, d, p))

	ok, err := d.Exists(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	dst := DocumentArchivePath("12-345", "brief.pdf", "abc")
	require.NoError(t, d.Rename(ctx, p, dst))

	ok, _ = d.Exists(ctx, p)
	assert.False(t, ok)
	assert.Equal(t, "%PDF-one", readAll(t, d, dst))
}

func TestDiskWriteReplaces(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.WriteFile(ctx, "a/b.pdf", strings.NewReader("old")))
	require.NoError(t, d.WriteFile(ctx, "a/b.pdf", strings.NewReader("new")))

	assert.Equal(t, "new", readAll(t, d, "a/b.pdf"))
	keys, err := d.List(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b.pdf"}, keys)
}

func TestDiskOpenMissing(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	_, err = d.Open(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, d.MkdirAll(context.Background(), "dir"))
	_, err = d.Open(context.Background(), "dir")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestDiskRenameMissing(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	err = d.Rename(context.Background(), "nope.pdf", "archive/nope.pdf")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestDiskRenameDirectory(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.WriteFile(ctx, "12-345/judge/order.pdf", strings.NewReader("x")))
	require.NoError(t, d.MkdirAll(ctx, CaseArchiveDir("12-345")))
	require.NoError(t, d.Rename(ctx, CaseDir("12-345"), CaseArchivePath("12-345", "s1")))

	ok, _ := d.Exists(ctx, "12-345")
	assert.False(t, ok)
	assert.Equal(t, "x", readAll(t, d, "archive/12-345#s1/judge/order.pdf"))
}

func TestDiskListAndRemoveAll(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"1/judge/a.pdf", "1/plaintiff/b.pdf", "2/judge/c.pdf"} {
		require.NoError(t, d.WriteFile(ctx, p, strings.NewReader("x")))
	}

	keys, err := d.List(ctx, "1")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"1/judge/a.pdf", "1/plaintiff/b.pdf"}, keys)

	keys, err = d.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, d.RemoveAll(ctx, ""))
	keys, err = d.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
