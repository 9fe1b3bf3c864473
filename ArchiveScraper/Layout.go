package ArchiveScraper

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const invalidFilenameChars = "\"*/:<>?\\|"

// SanitizeFilename replaces every character that is not allowed in a path
// component on Windows or Unix with an underscore, one for one. The
// relative names "." and ".." become "_" and "__" so a tag never points
// outside its parent directory.
func SanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < 32 || strings.ContainsRune(invalidFilenameChars, r) {
			return '_'
		}
		return r
	}, name)
	if sanitized == "." || sanitized == ".." {
		return strings.Repeat("_", len(sanitized))
	}
	return sanitized
}

// Layout is the on-disk tree for one tag:
//
//	<root>/<tag>/<id>.<ext>
//	<root>/<tag>/<json>/<id>.json
//	<root>/<tag>/missing.txt
type Layout struct {
	Fs      afero.Fs
	TagDir  string
	JSONDir string
}

func NewLayout(fs afero.Fs, root string, jsonDir string, tag string) (*Layout, error) {
	tagDir := filepath.Join(root, SanitizeFilename(tag))
	layout := &Layout{
		Fs:      fs,
		TagDir:  tagDir,
		JSONDir: filepath.Join(tagDir, jsonDir),
	}

	if err := fs.MkdirAll(layout.JSONDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", layout.JSONDir)
	}

	return layout, nil
}

func (l *Layout) ImagePath(filename string) string {
	return filepath.Join(l.TagDir, filename)
}

func (l *Layout) SidecarPath(id int64) string {
	return filepath.Join(l.JSONDir, strconv.FormatInt(id, 10)+".json")
}

func (l *Layout) MissingPath() string {
	return filepath.Join(l.TagDir, "missing.txt")
}
