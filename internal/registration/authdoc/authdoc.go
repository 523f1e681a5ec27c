// Package authdoc parses and validates Authentication For OPDS documents.
// A document either validates completely or yields the problem detail for
// the first violated rule; partially-validated documents are never returned.
package authdoc

import (
	"encoding/json"
	"errors"

	"github.com/asaskevich/govalidator"

	"libregistry/pkg/problemdetail"
)

// Link relations recognized inside an auth document.
const (
	RelAlternate      = "alternate"
	RelLogo           = "logo"
	RelRegister       = "register"
	RelHelp           = "help"
	RelPrivacyPolicy  = "privacy-policy"
	RelTermsOfService = "terms-of-service"
	RelCopyright      = "http://librarysimplified.org/rel/designated-agent/copyright"
	RelShelf          = "http://opds-spec.org/shelf"
)

// Link is a single typed target under a relation.
type Link struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Document is a validated Authentication For OPDS document. Raw holds the
// unrecognized top-level fields so later consumers can read extensions.
type Document struct {
	ID                 string
	Title              string
	ServiceDescription string
	Links              map[string][]Link
	Raw                map[string]json.RawMessage
}

// LinksFor returns every link under the given relation, in document order.
func (d *Document) LinksFor(rel string) []Link {
	return d.Links[rel]
}

// FirstHref returns the href of the first link under rel, or "".
func (d *Document) FirstHref(rel string) string {
	if links := d.Links[rel]; len(links) > 0 {
		return links[0].Href
	}
	return ""
}

// WebURL returns the library's public website, if the document advertises one.
func (d *Document) WebURL() string { return d.FirstHref(RelAlternate) }

// Logo returns the library's logo payload or URI, if advertised.
func (d *Document) Logo() string { return d.FirstHref(RelLogo) }

// Validate parses raw document bytes and checks them against the protocol
// rules in order, returning the problem detail for the first violation.
func Validate(body []byte) (*Document, *problemdetail.ProblemDetail) {
	doc, err := parse(body)
	if err != nil {
		pd := problemdetail.InvalidAuthDocument().WithDetail(err.Error())
		return nil, &pd
	}

	if doc.ID == "" || !govalidator.IsRequestURL(doc.ID) {
		pd := problemdetail.InvalidAuthDocument().
			WithDetail("Authentication document id must be an absolute URI.")
		return nil, &pd
	}

	for _, rel := range []string{RelRegister, RelShelf} {
		for _, link := range doc.LinksFor(rel) {
			if !govalidator.IsRequestURL(link.Href) {
				pd := problemdetail.InvalidAuthDocument().
					WithDetailf("Link with rel=%s has a malformed href: %s", rel, link.Href)
				return nil, &pd
			}
		}
	}

	return doc, nil
}

func parse(body []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.New("Authentication document is not valid JSON.")
	}

	doc := &Document{
		Links: map[string][]Link{},
		Raw:   map[string]json.RawMessage{},
	}
	for key, value := range raw {
		switch key {
		case "id":
			_ = json.Unmarshal(value, &doc.ID)
		case "title", "name":
			_ = json.Unmarshal(value, &doc.Title)
		case "service_description":
			_ = json.Unmarshal(value, &doc.ServiceDescription)
		case "links":
			links, err := parseLinks(value)
			if err != nil {
				return nil, err
			}
			doc.Links = links
		default:
			doc.Raw[key] = value
		}
	}
	return doc, nil
}

// parseLinks accepts both shapes the protocol has used over time: a list of
// {rel, href, type} objects and an object keyed by relation.
func parseLinks(raw json.RawMessage) (map[string][]Link, error) {
	links := map[string][]Link{}

	var list []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, l := range list {
			links[l.Rel] = append(links[l.Rel], Link{Href: l.Href, Type: l.Type})
		}
		return links, nil
	}

	var byRel map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byRel); err != nil {
		return nil, errors.New("Authentication document links are malformed.")
	}
	for rel, value := range byRel {
		var one Link
		if err := json.Unmarshal(value, &one); err == nil {
			links[rel] = append(links[rel], one)
			continue
		}
		var many []Link
		if err := json.Unmarshal(value, &many); err != nil {
			return nil, errors.New("Authentication document links are malformed.")
		}
		links[rel] = append(links[rel], many...)
	}
	return links, nil
}
