// Package feed renders discovery results as OPDS navigation feeds and the
// OpenSearch description document for the search endpoint.
package feed

import (
	"encoding/xml"
	"time"

	"libregistry/internal/discovery"
)

// Media types served by the discovery endpoints.
const (
	NavigationFeedType = "application/atom+xml;profile=opds-catalog;kind=navigation"
	OpenSearchType     = "application/opensearchdescription+xml"
	CatalogRel         = "http://opds-spec.org/catalog"
	SearchRel          = "search"
	RegisterRel        = "register"
)

// Cache lifetimes for the discovery endpoints. Nearby results follow the
// requester and expire quickly; the search form is static.
const (
	CacheControlNearby = "public, no-transform, max-age: 43200, s-maxage: 21600"
	CacheControlSearch = "public, no-transform, max-age: 2592000"
)

const (
	atomNamespace   = "http://www.w3.org/2005/Atom"
	schemaNamespace = "http://schema.org/"
)

// Link is an Atom link element.
type Link struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr,omitempty"`
}

// Entry is one library in a navigation feed. Distance carries the
// formatted great-circle distance from the requester when known.
type Entry struct {
	ID       string `xml:"id"`
	Title    string `xml:"title"`
	Updated  string `xml:"updated"`
	Content  string `xml:"content,omitempty"`
	Distance string `xml:"schema:distance,omitempty"`
	Links    []Link `xml:"link"`
}

// Feed is an OPDS navigation feed of libraries.
type Feed struct {
	XMLName     xml.Name `xml:"feed"`
	Namespace   string   `xml:"xmlns,attr"`
	SchemaNS    string   `xml:"xmlns:schema,attr"`
	ID          string   `xml:"id"`
	Title       string   `xml:"title"`
	Updated     string   `xml:"updated"`
	Links       []Link   `xml:"link"`
	Entries     []Entry  `xml:"entry"`
}

// Builder assembles navigation feeds anchored at a public base URL.
type Builder struct {
	baseURL string
}

// NewBuilder creates a feed builder. baseURL is the registry's public root,
// without a trailing slash.
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: baseURL}
}

// Navigation renders discovery results as a feed. feedURL is the request's
// own URL, used as the feed id and self link.
func (b *Builder) Navigation(title, feedURL string, results []discovery.Result, now time.Time) *Feed {
	f := &Feed{
		Namespace: atomNamespace,
		SchemaNS:  schemaNamespace,
		ID:        feedURL,
		Title:     title,
		Updated:   now.UTC().Format(time.RFC3339),
		Links: []Link{
			{Rel: "self", Href: feedURL, Type: NavigationFeedType},
			{Rel: SearchRel, Href: b.baseURL + "/search", Type: OpenSearchType},
			{Rel: RegisterRel, Href: b.baseURL + "/register"},
		},
	}
	for _, r := range results {
		lib := r.Library
		f.Entries = append(f.Entries, Entry{
			ID:       "urn:uuid:" + lib.ID.String(),
			Title:    lib.Name,
			Updated:  lib.UpdatedAt.UTC().Format(time.RFC3339),
			Content:  lib.Description,
			Distance: r.FormattedDistance(),
			Links: []Link{
				{Rel: CatalogRel, Href: lib.OPDSURL, Type: NavigationFeedType},
			},
		})
	}
	return f
}

// Render serializes the feed with an XML declaration.
func (f *Feed) Render() ([]byte, error) {
	body, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
