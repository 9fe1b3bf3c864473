package Database

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchTaggedImages(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("inner join public.tags on public.image_taggings.tag_id = public.tags.id").
		WithArgs("fluttershy").
		WillReturnRows(pgxmock.NewRows([]string{"id", "image_format"}).
			AddRow(int64(100), "png").
			AddRow(int64(2500), "jpg"))

	images, err := NewCatalog(mock).FetchTaggedImages(context.Background(), "fluttershy")
	require.NoError(t, err)
	assert.Equal(t, []ImageRecord{{ID: 100, Format: "png"}, {ID: 2500, Format: "jpg"}}, images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTaggedImagesBindsTag(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// The tag must arrive as a bound argument, never inside the query text.
	tag := "rarity'; drop table images; --"
	mock.ExpectQuery(`where public\.tags\.name = \$1;`).
		WithArgs(tag).
		WillReturnRows(pgxmock.NewRows([]string{"id", "image_format"}))

	images, err := NewCatalog(mock).FetchTaggedImages(context.Background(), tag)
	require.NoError(t, err)
	assert.Empty(t, images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTaggedImagesQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("from public.images").
		WithArgs("applejack").
		WillReturnError(errors.New("connection refused"))

	_, err = NewCatalog(mock).FetchTaggedImages(context.Background(), "applejack")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "applejack")
}

func TestFetchImageTags(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`where public\.images\.id = \$1;`).
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).
			AddRow("fluttershy").
			AddRow("safe").
			AddRow("pegasus"))

	tags, err := NewCatalog(mock).FetchImageTags(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"fluttershy", "safe", "pegasus"}, tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}
