// Package linkresource implements LinkResource: a URL treated as a
// resource whose content is the URL bytes themselves, with user
// properties (title, description) stored via PropertiesStore and an
// optional, best-effort preview fetch.
package linkresource

import (
	"context"
	"encoding/json"

	"github.com/ark-builders/ark/internal/logger"
	"github.com/ark-builders/ark/pkg/atomicfile"
	"github.com/ark-builders/ark/pkg/auxstore"
	"github.com/ark-builders/ark/pkg/resourceid"
)

// Properties is the user-editable data attached to a link.
type Properties struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// PreviewFetcher fetches a best-effort preview image for a URL. Save
// calls it asynchronously and never fails the save if it errors; it
// models the OpenGraph-scraping external collaborator the core
// delegates to rather than implements.
type PreviewFetcher interface {
	FetchPreview(ctx context.Context, url string) ([]byte, error)
}

// Link is a URL-as-resource of id variant T.
type Link[T resourceid.ID[T]] struct {
	ID  T
	URL string
}

// Store saves and loads Links, backed by a PropertiesStore for
// title/description and a MetadataStore for cached preview images.
type Store[T resourceid.ID[T]] struct {
	hasher     resourceid.Hasher[T]
	properties *auxstore.PropertiesStore[T]
	previews   *auxstore.MetadataStore[T]
	fetcher    PreviewFetcher
}

// NewStore returns a Store rooted at root. fetcher may be nil, in which
// case preview fetching is skipped entirely.
func NewStore[T resourceid.ID[T]](root string, hasher resourceid.Hasher[T], nameFunc atomicfile.NameFunc, fetcher PreviewFetcher) *Store[T] {
	return &Store[T]{
		hasher:     hasher,
		properties: auxstore.NewPropertiesStore[T](root, nameFunc),
		previews:   auxstore.NewMetadataStore[T](root, nameFunc),
		fetcher:    fetcher,
	}
}

// Save computes the link's id from its URL bytes, merges props into its
// PropertiesStore entry, and returns the resulting Link. If a
// PreviewFetcher is configured, it kicks off a best-effort async fetch
// that caches the result under the previews MetadataStore; a failed
// fetch is logged and does not fail Save.
func (s *Store[T]) Save(ctx context.Context, url string, props Properties) (Link[T], error) {
	id := s.hasher.FromBytes([]byte(url))

	if err := s.properties.MergeJSON(id, props); err != nil {
		return Link[T]{}, err
	}

	if s.fetcher != nil {
		go s.fetchPreview(ctx, id, url)
	}

	return Link[T]{ID: id, URL: url}, nil
}

func (s *Store[T]) fetchPreview(ctx context.Context, id T, url string) {
	img, err := s.fetcher.FetchPreview(ctx, url)
	if err != nil {
		logger.Warn("linkresource: preview fetch failed", "url", url, "error", err)
		return
	}
	if err := s.previews.Save(id, img); err != nil {
		logger.Warn("linkresource: failed to cache preview", "url", url, "error", err)
	}
}

// LoadProperties returns the current title/description for a link id.
func (s *Store[T]) LoadProperties(id T) (Properties, error) {
	raw, err := s.properties.Load(id)
	if err != nil {
		return Properties{}, err
	}
	var props Properties
	if len(raw) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return Properties{}, err
	}
	return props, nil
}

// LoadPreview returns the cached preview image bytes for id, if any.
func (s *Store[T]) LoadPreview(id T) ([]byte, error) {
	return s.previews.Load(id)
}
