package Database

import (
	"strconv"
	"strings"
	"time"
)

// ImageRecord is one catalog row: the image id and its stored file format.
type ImageRecord struct {
	ID     int64
	Format string
}

func (i ImageRecord) Filename() string {
	return strconv.FormatInt(i.ID, 10) + "." + i.Format
}

// ImageEntry is the search document written for each downloaded image.
type ImageEntry struct {
	ID        int64    `json:"ID"`
	Format    string   `json:"Format"`
	Filename  string   `json:"Filename"`
	Tag       string   `json:"Tag"`
	Tags      []string `json:"Tags"`
	Tagstring string   `json:"Tagstring"`
	Added     string   `json:"Added"`
	PHash     uint64   `json:"PHash"`
}

func NewImageEntry(record ImageRecord, searchTag string, tags []string, phash uint64) ImageEntry {
	return ImageEntry{
		ID:        record.ID,
		Format:    record.Format,
		Filename:  record.Filename(),
		Tag:       searchTag,
		Tags:      tags,
		Tagstring: strings.Join(tags, " "),
		Added:     strconv.FormatInt(time.Now().Unix(), 10),
		PHash:     phash,
	}
}
