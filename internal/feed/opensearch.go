package feed

import "encoding/xml"

// OpenSearchDescription is the search form document advertised by every
// navigation feed.
type OpenSearchDescription struct {
	XMLName     xml.Name        `xml:"OpenSearchDescription"`
	Namespace   string          `xml:"xmlns,attr"`
	ShortName   string          `xml:"ShortName"`
	Description string          `xml:"Description"`
	Tags        string          `xml:"Tags"`
	URL         openSearchURL   `xml:"Url"`
}

type openSearchURL struct {
	Type     string `xml:"type,attr"`
	Template string `xml:"template,attr"`
}

const openSearchNamespace = "http://a9.com/-/spec/opensearch/1.1/"

// OpenSearch renders the description document for the search endpoint.
func (b *Builder) OpenSearch() ([]byte, error) {
	doc := OpenSearchDescription{
		Namespace:   openSearchNamespace,
		ShortName:   "Library search",
		Description: "Search for libraries by name or location.",
		Tags:        "libraries opds",
		URL: openSearchURL{
			Type:     NavigationFeedType,
			Template: b.baseURL + "/search?q={searchTerms}",
		},
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
