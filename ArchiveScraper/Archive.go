package ArchiveScraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// ErrNotFound means the bucket listing was fetched but has no entry for the id.
var ErrNotFound = errors.New("image not found on archive")

// Archive is a static file mirror that groups images into directories of
// one thousand ids each.
type Archive struct {
	BaseURL   *url.URL
	Client    *http.Client
	UserAgent string

	// StrictNameMatch requires a non-digit after the id in a listing label,
	// so 123 no longer matches 1234.png.
	StrictNameMatch bool
}

func NewArchive(baseURL string, userAgent string, timeout time.Duration) (*Archive, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrap(err, "invalid archive base URL")
	}

	return &Archive{
		BaseURL:   base,
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}, nil
}

// Bucket returns the directory an id lives in: the next multiple of 1000
// strictly above it.
func Bucket(id int64) int64 {
	return (id/1000 + 1) * 1000
}

func (a *Archive) BucketURL(id int64) string {
	return a.BaseURL.String() + strconv.FormatInt(Bucket(id), 10) + "/"
}

// ListingEntry is one file row of a directory index page.
type ListingEntry struct {
	Label string
	Href  string
}

// ResolveRemoteName looks the id up in its bucket listing and returns the
// link target of the first entry whose label starts with the id.
func (a *Archive) ResolveRemoteName(ctx context.Context, id int64) (string, error) {
	bucketURL := a.BucketURL(id)

	entries, err := a.fetchListing(ctx, bucketURL)
	if err != nil {
		return "", err
	}

	prefix := strconv.FormatInt(id, 10)
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Label, prefix) {
			continue
		}
		if a.StrictNameMatch && !boundaryAfter(entry.Label, len(prefix)) {
			continue
		}
		return entry.Href, nil
	}

	return "", ErrNotFound
}

// ResolveRemoteURL is ResolveRemoteName resolved against the bucket URL.
func (a *Archive) ResolveRemoteURL(ctx context.Context, id int64) (string, error) {
	name, err := a.ResolveRemoteName(ctx, id)
	if err != nil {
		return "", err
	}

	bucket, err := url.Parse(a.BucketURL(id))
	if err != nil {
		return "", errors.Wrap(err, "invalid bucket URL")
	}
	ref, err := url.Parse(name)
	if err != nil {
		return "", errors.Wrapf(err, "invalid link %q in listing", name)
	}

	return bucket.ResolveReference(ref).String(), nil
}

func boundaryAfter(label string, n int) bool {
	if len(label) == n {
		return true
	}
	c := label[n]
	return c < '0' || c > '9'
}

func (a *Archive) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.UserAgent)

	res, err := a.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", target)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, errors.Errorf("GET %s: unexpected status %s", target, res.Status)
	}

	return res, nil
}

func (a *Archive) fetchListing(ctx context.Context, bucketURL string) ([]ListingEntry, error) {
	log.Debug("Fetching archive listing ", bucketURL)

	res, err := a.get(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch archive listing")
	}
	defer res.Body.Close()

	entries, err := ParseListing(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse archive listing %s", bucketURL)
	}

	return entries, nil
}

// ParseListing extracts the anchors sitting in the second cell of every
// table row of a directory index page.
func ParseListing(r io.Reader) ([]ListingEntry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var entries []ListingEntry
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if cell := nthElementChild(n, 2); cell != nil {
				for child := cell.FirstChild; child != nil; child = child.NextSibling {
					if child.Type == html.ElementNode && child.Data == "a" {
						entries = append(entries, ListingEntry{
							Label: textContent(child),
							Href:  attr(child, "href"),
						})
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return entries, nil
}

func nthElementChild(n *html.Node, index int) *html.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		index--
		if index == 0 {
			return child
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
