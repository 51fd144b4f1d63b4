package storage

import (
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ArchiveRoot is the shared directory deleted cases are moved into
const ArchiveRoot = "archive"

const caseArchive = "archive"

// TempPrefix marks in-flight writes. A crash mid-write can leave one behind.
const TempPrefix = ".upload-"

// DocumentPath is where the live copy of a side's document lives
func DocumentPath(docket, side, name string) string {
	return path.Join(docket, side, name)
}

// CaseDir is the directory holding everything for docket
func CaseDir(docket string) string {
	return docket
}

// CaseArchiveDir holds superseded and removed documents of docket
func CaseArchiveDir(docket string) string {
	return path.Join(docket, caseArchive)
}

// DocumentArchivePath is the salted archive slot for a superseded document
func DocumentArchivePath(docket, name, salt string) string {
	return path.Join(docket, caseArchive, name+"#"+salt)
}

// CaseArchivePath is the salted archive slot for a deleted case
func CaseArchivePath(docket, salt string) string {
	return path.Join(ArchiveRoot, docket+"#"+salt)
}

// IsArchivePath reports whether p lies inside a case archive directory
func IsArchivePath(docket, p string) bool {
	return strings.HasPrefix(p, CaseArchiveDir(docket)+"/")
}

// IsTempPath reports whether p names an in-flight write
func IsTempPath(p string) bool {
	return strings.HasPrefix(path.Base(p), TempPrefix)
}

// DownloadURL is the link path recorded for a document
func DownloadURL(docket, side, name string) string {
	return "/download/" + DocumentPath(docket, side, name)
}

// NewSalt returns a value unique enough that archive slots never collide
func NewSalt() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidName reports whether name is usable as a single path element
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// ValidDocket reports whether docket is usable as a case directory. Dockets may
// not contain whitespace and may not shadow the shared archive root.
func ValidDocket(docket string) bool {
	if !ValidName(docket) || docket == ArchiveRoot {
		return false
	}
	return strings.IndexFunc(docket, unicode.IsSpace) < 0
}
