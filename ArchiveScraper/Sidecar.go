package ArchiveScraper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type tagSidecar struct {
	Tags []string `json:"tags"`
}

// WriteTagSidecar stores the tags of one image next to it as {"tags": [...]}.
func (l *Layout) WriteTagSidecar(id int64, tags []string) error {
	if tags == nil {
		tags = []string{}
	}

	data, err := json.Marshal(tagSidecar{Tags: tags})
	if err != nil {
		return err
	}
	data = append(data, '\n')

	path := l.SidecarPath(id)
	if err := afero.WriteFile(l.Fs, path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	return nil
}

// WriteMissingReport writes the ids joined by ", " to missing.txt. Nothing is
// written for an empty list.
func (l *Layout) WriteMissingReport(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	path := l.MissingPath()
	if err := afero.WriteFile(l.Fs, path, []byte(JoinIDs(ids)), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	return nil
}

func JoinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}
