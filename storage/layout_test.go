package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayout(t *testing.T) {
	assert.Equal(t, "12-345/plaintiff/brief.pdf", DocumentPath("12-345", "plaintiff", "brief.pdf"))
	assert.Equal(t, "12-345/archive", CaseArchiveDir("12-345"))
	assert.Equal(t, "12-345/archive/brief.pdf#s", DocumentArchivePath("12-345", "brief.pdf", "s"))
	assert.Equal(t, "archive/12-345#s", CaseArchivePath("12-345", "s"))
	assert.Equal(t, "/download/12-345/judge/o.pdf", DownloadURL("12-345", "judge", "o.pdf"))
	assert.True(t, IsArchivePath("12-345", "12-345/archive/brief.pdf#s"))
	assert.False(t, IsArchivePath("12-345", "12-345/judge/brief.pdf"))
	assert.True(t, IsTempPath("12-345/judge/"+TempPrefix+"42"))
	assert.False(t, IsTempPath("12-345/judge/brief.pdf"))
}

func TestNewSaltDistinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		s := NewSalt()
		assert.False(t, seen[s])
		seen[s] = true
	}
}

func TestValidName(t *testing.T) {
	for _, ok := range []string{"brief.pdf", "12-345", "a b.pdf"} {
		assert.True(t, ValidName(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "a\x00"} {
		assert.False(t, ValidName(bad), bad)
	}
}

func TestValidDocket(t *testing.T) {
	assert.True(t, ValidDocket("12-345"))
	assert.False(t, ValidDocket("12 345"))
	assert.False(t, ValidDocket("12\t345"))
	assert.False(t, ValidDocket("archive"))
	assert.False(t, ValidDocket("../x"))
}
