package main

import (
	"context"
	"io"

	"github.com/Sibusten/derpibooru-archive-scraper/ArchiveScraper"
	"github.com/Sibusten/derpibooru-archive-scraper/Database"
	"github.com/Sibusten/derpibooru-archive-scraper/TaskManager"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type ImageIndexer interface {
	IndexImages(ctx context.Context, entries []Database.ImageEntry) error
}

type MissingPublisher interface {
	PushMissing(ctx context.Context, tag string, ids []int64) error
}

// Scraper downloads every archived image of one tag. Index and Missing are
// optional.
type Scraper struct {
	Catalog     *Database.Catalog
	Archive     *ArchiveScraper.Archive
	Fs          afero.Fs
	DownloadDir string
	JSONDir     string

	Index   ImageIndexer
	Missing MissingPublisher

	// Progress receives the progress bar. nil hides it.
	Progress io.Writer
}

type RunResult struct {
	Tag        string
	Found      int
	Downloaded []int64
	Skipped    []int64
	Missing    []int64
	Failed     []int64
}

// Incomplete is true when at least one image could not be found or fetched.
func (r *RunResult) Incomplete() bool {
	return len(r.Missing) > 0 || len(r.Failed) > 0
}

// Run scrapes every image of tag. When ctx is cancelled mid-run the partial
// result is returned along with the error, and missing.txt already lists the
// images found missing so far.
func (s *Scraper) Run(ctx context.Context, tag string) (*RunResult, error) {
	log.Info("Scraping mode launching for tag ", tag)

	layout, err := ArchiveScraper.NewLayout(s.Fs, s.DownloadDir, s.JSONDir, tag)
	if err != nil {
		return nil, err
	}

	images, err := s.Catalog.FetchTaggedImages(ctx, tag)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Tag: tag, Found: len(images)}
	log.Info("Found ", len(images), " images")
	if len(images) == 0 {
		return result, nil
	}

	tasks := TaskManager.NewTaskList()
	var entries []Database.ImageEntry
	pbar := s.newProgressBar(len(images))

	for _, image := range images {
		if err := ctx.Err(); err != nil {
			collectResult(result, tasks)
			if writeErr := layout.WriteMissingReport(result.Missing); writeErr != nil {
				log.Error("Failed to write missing report: ", writeErr)
			}
			return result, errors.Wrap(err, "run interrupted")
		}

		entry, err := s.processImage(ctx, tasks, layout, tag, image)
		_ = pbar.Add(1)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	_ = pbar.Finish()

	collectResult(result, tasks)

	if len(result.Missing) > 0 {
		log.Warn("Could not find ", len(result.Missing), " images!")
		log.Warn(ArchiveScraper.JoinIDs(result.Missing))
		if err := layout.WriteMissingReport(result.Missing); err != nil {
			return nil, err
		}
	}
	if len(result.Failed) > 0 {
		log.Error("Failed to download ", len(result.Failed), " images: ", ArchiveScraper.JoinIDs(result.Failed))
	}

	if s.Missing != nil {
		if err := s.Missing.PushMissing(ctx, tag, result.Missing); err != nil {
			log.Error("Failed to publish missing images: ", err)
		}
	}
	if s.Index != nil {
		if err := s.Index.IndexImages(ctx, entries); err != nil {
			log.Error("Failed to index downloaded images: ", err)
		}
	}

	counts := tasks.CountByStatus()
	log.WithFields(log.Fields{
		"downloaded": counts[TaskManager.Done],
		"skipped":    counts[TaskManager.Skipped],
		"missing":    counts[TaskManager.Missing],
		"failed":     counts[TaskManager.DownloadFailed] + counts[TaskManager.ExportFailed],
	}).Info("Finished scraping tag ", tag)

	return result, nil
}

func collectResult(result *RunResult, tasks *TaskManager.TaskList) {
	result.Downloaded = tasks.ImageIDsWithStatus(TaskManager.Done)
	result.Skipped = tasks.ImageIDsWithStatus(TaskManager.Skipped)
	result.Missing = tasks.ImageIDsWithStatus(TaskManager.Missing)
	result.Failed = nil
	for _, task := range tasks.GetTasks() {
		if task.Status == TaskManager.DownloadFailed || task.Status == TaskManager.ExportFailed {
			result.Failed = append(result.Failed, task.ImageID)
		}
	}
}

// processImage walks one image through its lifecycle. Per-image failures are
// recorded on the task; only bookkeeping errors are returned.
func (s *Scraper) processImage(ctx context.Context, tasks *TaskManager.TaskList, layout *ArchiveScraper.Layout, tag string, image Database.ImageRecord) (*Database.ImageEntry, error) {
	logger := log.WithFields(log.Fields{"image": image.ID, "tag": tag})
	uid := tasks.NewTask(image.ID)
	imagePath := layout.ImagePath(image.Filename())

	exists, err := afero.Exists(s.Fs, imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "checking %s", imagePath)
	}
	if exists {
		logger.Info("Skipping existing image")
		return nil, tasks.SetTaskStatus(uid, TaskManager.Skipped)
	}

	if err := tasks.SetTaskStatus(uid, TaskManager.Resolving); err != nil {
		return nil, err
	}
	remoteURL, err := s.Archive.ResolveRemoteURL(ctx, image.ID)
	if errors.Is(err, ArchiveScraper.ErrNotFound) {
		logger.Warn("Could not find image on archive")
		return nil, tasks.SetTaskStatus(uid, TaskManager.Missing)
	}
	if err != nil {
		logger.Error("Failed to resolve image: ", err)
		return nil, tasks.FailTask(uid, TaskManager.DownloadFailed, err)
	}

	if err := tasks.SetTaskStatus(uid, TaskManager.Downloading); err != nil {
		return nil, err
	}
	skipped, err := s.Archive.FetchToFile(ctx, s.Fs, remoteURL, imagePath)
	if err != nil {
		logger.Error("Failed to download image: ", err)
		return nil, tasks.FailTask(uid, TaskManager.DownloadFailed, err)
	}
	if skipped {
		logger.Info("Skipping existing image")
		return nil, tasks.SetTaskStatus(uid, TaskManager.Skipped)
	}
	logger.Info("Downloaded ", remoteURL)

	if err := tasks.SetTaskStatus(uid, TaskManager.Downloaded); err != nil {
		return nil, err
	}
	if err := tasks.SetTaskStatus(uid, TaskManager.Exporting); err != nil {
		return nil, err
	}

	tags, err := s.Catalog.FetchImageTags(ctx, image.ID)
	if err == nil {
		err = layout.WriteTagSidecar(image.ID, tags)
	}
	if err != nil {
		logger.Error("Failed to export tags: ", err)
		// an image without its sidecar would be skipped forever on the next run
		if removeErr := s.Fs.Remove(imagePath); removeErr != nil {
			logger.Error("Failed to remove image without tags: ", removeErr)
		}
		return nil, tasks.FailTask(uid, TaskManager.ExportFailed, err)
	}

	if err := tasks.SetTaskStatus(uid, TaskManager.Done); err != nil {
		return nil, err
	}
	if s.Index == nil {
		return nil, nil
	}

	entry := Database.NewImageEntry(image, tag, tags, FilePHash(s.Fs, imagePath))
	return &entry, nil
}

func (s *Scraper) newProgressBar(max int) *progressbar.ProgressBar {
	w := s.Progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Downloading..."),
		progressbar.OptionShowCount(),
	)
}
