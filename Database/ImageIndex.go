package Database

import (
	"context"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ImageIndex pushes downloaded images into a Meilisearch index so they can
// be searched by tag afterwards.
type ImageIndex struct {
	client *meilisearch.Client
	uid    string
}

func NewImageIndex(client *meilisearch.Client, uid string) *ImageIndex {
	return &ImageIndex{client: client, uid: uid}
}

// Ensure creates the index if it is missing and marks the tag fields as
// filterable. Running it against an existing index is a no-op.
func (i *ImageIndex) Ensure(ctx context.Context) error {
	task, err := i.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        i.uid,
		PrimaryKey: "ID",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create meilisearch index")
	}
	if err := i.waitForTask(ctx, task); err != nil {
		return errors.Wrap(err, "failed to create meilisearch index")
	}

	task, err = i.client.Index(i.uid).UpdateFilterableAttributes(&[]string{"ID", "Tag", "Tags", "Tagstring", "Format"})
	if err != nil {
		return errors.Wrap(err, "failed to update filterable attributes")
	}
	if err := i.waitForTask(ctx, task); err != nil {
		return errors.Wrap(err, "failed to update filterable attributes")
	}

	return nil
}

func (i *ImageIndex) IndexImages(ctx context.Context, entries []ImageEntry) error {
	if len(entries) == 0 {
		return nil
	}

	task, err := i.client.Index(i.uid).AddDocuments(entries)
	if err != nil {
		return errors.Wrap(err, "failed to add documents to meilisearch")
	}
	if err := i.waitForTask(ctx, task); err != nil {
		return err
	}

	log.Info("Sent image batch of size ", len(entries), " to MeiliSearch")
	return nil
}

// waitForTask polls until the task finishes. An index_already_exists failure
// counts as success.
func (i *ImageIndex) waitForTask(ctx context.Context, info *meilisearch.TaskInfo) error {
	for {
		task, err := i.client.GetTask(info.TaskUID)
		if err != nil {
			return errors.Wrap(err, "failed to get task")
		}
		if task.Status == "failed" {
			if task.Error.Code == "index_already_exists" {
				return nil
			}
			return errors.Errorf("meilisearch task failed: %s - %s", task.Error.Message, task.Error.Code)
		}
		if task.Status == "succeeded" {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * 500):
		}
	}
}
