package Database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const getImagesQuery = `
select
	public.images.id as id,
	public.images.image_format as image_format

from public.images

inner join public.image_taggings on public.images.id = public.image_taggings.image_id
inner join public.tags on public.image_taggings.tag_id = public.tags.id

where public.tags.name = $1;`

const getImageTagsQuery = `
select
	public.tags.name as name

from public.tags

inner join public.image_taggings on public.tags.id = public.image_taggings.tag_id
inner join public.images on public.image_taggings.image_id = public.images.id

where public.images.id = $1;`

// Querier is the part of *pgxpool.Pool the catalog uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Catalog runs the read-only lookups against the local Derpibooru mirror.
type Catalog struct {
	db Querier
}

func NewCatalog(db Querier) *Catalog {
	return &Catalog{db: db}
}

// FetchTaggedImages returns every image tagged with exactly tag, in the
// order the database returns them.
func (c *Catalog) FetchTaggedImages(ctx context.Context, tag string) ([]ImageRecord, error) {
	rows, err := c.db.Query(ctx, getImagesQuery, tag)
	if err != nil {
		return nil, errors.Wrapf(err, "querying images for tag %q", tag)
	}

	images, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ImageRecord, error) {
		var image ImageRecord
		err := row.Scan(&image.ID, &image.Format)
		return image, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "reading images for tag %q", tag)
	}

	log.Debug("Catalog returned ", len(images), " images for tag ", tag)
	return images, nil
}

// FetchImageTags returns the names of all tags attached to one image.
func (c *Catalog) FetchImageTags(ctx context.Context, id int64) ([]string, error) {
	rows, err := c.db.Query(ctx, getImageTagsQuery, id)
	if err != nil {
		return nil, errors.Wrapf(err, "querying tags for image %d", id)
	}

	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrapf(err, "reading tags for image %d", id)
	}

	return tags, nil
}
