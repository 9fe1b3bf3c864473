package ArchiveScraper

import (
	"context"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FetchToFile downloads remoteURL to localPath. An existing localPath is
// left alone and reported as skipped without touching the network. The body
// goes to a temporary file next to localPath that is only renamed into
// place once fully written, so an interrupted download never looks complete.
func (a *Archive) FetchToFile(ctx context.Context, fs afero.Fs, remoteURL string, localPath string) (skipped bool, err error) {
	exists, err := afero.Exists(fs, localPath)
	if err != nil {
		return false, errors.Wrapf(err, "checking %s", localPath)
	}
	if exists {
		return true, nil
	}

	res, err := a.get(ctx, remoteURL)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	partPath := filepath.Join(filepath.Dir(localPath), "."+filepath.Base(localPath)+"."+uuid.New().String()+".part")
	if err := writePart(fs, partPath, res.Body); err != nil {
		if removeErr := fs.Remove(partPath); removeErr != nil {
			log.Debug("Could not remove partial download ", partPath, ": ", removeErr)
		}
		return false, errors.Wrapf(err, "downloading %s", remoteURL)
	}

	if err := fs.Rename(partPath, localPath); err != nil {
		_ = fs.Remove(partPath)
		return false, errors.Wrapf(err, "moving download into %s", localPath)
	}

	return false, nil
}

func writePart(fs afero.Fs, path string, body io.Reader) error {
	file, err := fs.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}
