// Package opds extracts typed links from OPDS catalog responses. It
// understands Link headers, OPDS 1 Atom feeds, OPDS 2 JSON feeds, and
// Authentication For OPDS documents, and resolves relative hrefs against
// the URL the response was served from.
package opds

import (
	"encoding/json"
	"encoding/xml"
	"mime"
	"net/url"
	"sort"
	"strings"

	"libregistry/internal/registration/fetch"
)

// Media types exchanged during the registration handshake.
const (
	AuthDocumentMediaType = "application/vnd.opds.authentication.v1.0+json"
	OPDS2MediaType        = "application/opds+json"
	OPDS1MediaType        = "application/atom+xml;profile=opds-catalog"
	AtomMediaType         = "application/atom+xml"
)

// Link relations used to locate a circulation manager's auth document.
const (
	AuthDocumentRel = "http://opds-spec.org/auth/document"
	ShelfRel        = "http://opds-spec.org/shelf"
)

// Link is a single typed link extracted from a response.
type Link struct {
	Rel  string
	Href string
	Type string
}

// ResponseLinks collects every link advertised by a response: Link headers
// first, then links found in the body. An Authentication For OPDS body
// contributes its own id as an auth document link. Malformed bodies
// contribute nothing; they are never an error here.
func ResponseLinks(resp *fetch.Response) []Link {
	var links []Link
	for _, value := range resp.Header.Values("Link") {
		links = append(links, parseLinkHeader(value)...)
	}
	links = append(links, bodyLinks(resp)...)

	base, err := url.Parse(resp.URL)
	if err != nil || resp.URL == "" {
		return dedupe(links)
	}
	for i, l := range links {
		links[i].Href = resolveHref(base, l.Href)
	}
	return dedupe(links)
}

// LinksToDocument reports whether the response advertises target as its
// auth document. Malformed responses are never an error, just false.
func LinksToDocument(resp *fetch.Response, target string) bool {
	for _, l := range ResponseLinks(resp) {
		if l.Rel == AuthDocumentRel && l.Href == target {
			return true
		}
	}
	return false
}

// dedupe collapses repeated rel/href pairs, keeping first-seen order.
func dedupe(links []Link) []Link {
	seen := make(map[Link]struct{}, len(links))
	out := links[:0]
	for _, l := range links {
		key := Link{Rel: l.Rel, Href: l.Href}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// FindLink returns the first link carrying the given relation.
func FindLink(links []Link, rel string) (Link, bool) {
	for _, l := range links {
		if l.Rel == rel {
			return l, true
		}
	}
	return Link{}, false
}

func bodyLinks(resp *fetch.Response) []Link {
	mediaType := resp.ContentType()
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}

	switch {
	case mediaType == AuthDocumentMediaType:
		return authDocumentSelfLink(resp.Body)
	case mediaType == OPDS2MediaType || strings.HasSuffix(mediaType, "+json") || mediaType == "application/json":
		return opds2Links(resp.Body)
	case strings.HasSuffix(mediaType, "+xml") || mediaType == "application/xml" || mediaType == "text/xml":
		return atomFeedLinks(resp.Body)
	default:
		return nil
	}
}

// authDocumentSelfLink treats an auth document body as a link to itself:
// the document's id satisfies the auth document relation directly.
func authDocumentSelfLink(body []byte) []Link {
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || doc.ID == "" {
		return nil
	}
	return []Link{{Rel: AuthDocumentRel, Href: doc.ID, Type: AuthDocumentMediaType}}
}

// opds2Links reads the feed-level links of an OPDS 2 feed. Both shapes are
// accepted: an object keyed by relation and a list of link objects.
func opds2Links(body []byte) []Link {
	var feed struct {
		Links json.RawMessage `json:"links"`
	}
	if err := json.Unmarshal(body, &feed); err != nil || len(feed.Links) == 0 {
		return nil
	}

	var byRel map[string]struct {
		Href string `json:"href"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(feed.Links, &byRel); err == nil {
		// Map iteration order is random; sort rels so callers see a
		// stable order.
		rels := make([]string, 0, len(byRel))
		for rel := range byRel {
			rels = append(rels, rel)
		}
		sort.Strings(rels)
		var links []Link
		for _, rel := range rels {
			l := byRel[rel]
			links = append(links, Link{Rel: rel, Href: l.Href, Type: l.Type})
		}
		return links
	}

	var list []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(feed.Links, &list); err != nil {
		return nil
	}
	var links []Link
	for _, l := range list {
		links = append(links, Link{Rel: l.Rel, Href: l.Href, Type: l.Type})
	}
	return links
}

func atomFeedLinks(body []byte) []Link {
	var feed struct {
		XMLName xml.Name `xml:"feed"`
		Links   []struct {
			Rel  string `xml:"rel,attr"`
			Href string `xml:"href,attr"`
			Type string `xml:"type,attr"`
		} `xml:"link"`
	}
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil
	}
	var links []Link
	for _, l := range feed.Links {
		links = append(links, Link{Rel: l.Rel, Href: l.Href, Type: l.Type})
	}
	return links
}

func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
