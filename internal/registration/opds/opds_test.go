package opds_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libregistry/internal/registration/fetch"
	"libregistry/internal/registration/opds"
)

func response(url, contentType, body string, header http.Header) *fetch.Response {
	if header == nil {
		header = http.Header{}
	}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &fetch.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       []byte(body),
		URL:        url,
	}
}

func TestResponseLinks(t *testing.T) {
	const authURL = "http://circmanager.org/authentication.json"

	t.Run("finds a link in the Link header", func(t *testing.T) {
		header := http.Header{}
		header.Add("Link", `<`+authURL+`>; rel="`+opds.AuthDocumentRel+`"`)
		resp := response("http://circmanager.org/feed/", "text/html", "", header)

		links := opds.ResponseLinks(resp)

		link, ok := opds.FindLink(links, opds.AuthDocumentRel)
		require.True(t, ok)
		assert.Equal(t, authURL, link.Href)
	})

	t.Run("finds a feed-level link in an OPDS 1 feed", func(t *testing.T) {
		feed := `<feed><link rel="` + opds.AuthDocumentRel + `" href="` + authURL + `"/></feed>`
		resp := response("http://circmanager.org/feed/", opds.OPDS1MediaType, feed, nil)

		links := opds.ResponseLinks(resp)

		link, ok := opds.FindLink(links, opds.AuthDocumentRel)
		require.True(t, ok)
		assert.Equal(t, authURL, link.Href)
	})

	t.Run("resolves relative hrefs against the response URL", func(t *testing.T) {
		feed := `<feed><link rel="` + opds.AuthDocumentRel + `" href="authentication.json"/></feed>`
		resp := response("http://circmanager.org/feed/", opds.OPDS1MediaType, feed, nil)

		links := opds.ResponseLinks(resp)

		link, ok := opds.FindLink(links, opds.AuthDocumentRel)
		require.True(t, ok)
		assert.Equal(t, "http://circmanager.org/feed/authentication.json", link.Href)
	})

	t.Run("finds a feed-level link in an OPDS 2 feed", func(t *testing.T) {
		feed := `{"links": {"` + opds.AuthDocumentRel + `": {"href": "` + authURL + `"}}}`
		resp := response("http://circmanager.org/feed/", opds.OPDS2MediaType, feed, nil)

		links := opds.ResponseLinks(resp)

		link, ok := opds.FindLink(links, opds.AuthDocumentRel)
		require.True(t, ok)
		assert.Equal(t, authURL, link.Href)
	})

	t.Run("dict-shaped OPDS 2 links come back in rel order", func(t *testing.T) {
		feed := `{"links": {
			"` + opds.ShelfRel + `": {"href": "http://circmanager.org/shelf"},
			"alternate": {"href": "http://circmanager.org/about"},
			"` + opds.AuthDocumentRel + `": {"href": "` + authURL + `"}}}`
		resp := response("http://circmanager.org/feed/", opds.OPDS2MediaType, feed, nil)

		for range 5 {
			links := opds.ResponseLinks(resp)
			require.Len(t, links, 3)
			assert.Equal(t, "alternate", links[0].Rel)
			assert.Equal(t, opds.AuthDocumentRel, links[1].Rel)
			assert.Equal(t, opds.ShelfRel, links[2].Rel)
		}
	})

	t.Run("accepts the list form of OPDS 2 links", func(t *testing.T) {
		feed := `{"links": [{"rel": "` + opds.ShelfRel + `", "href": "/shelf", "type": "` + opds.OPDS1MediaType + `"}]}`
		resp := response("http://circmanager.org/feed/", opds.OPDS2MediaType, feed, nil)

		links := opds.ResponseLinks(resp)

		link, ok := opds.FindLink(links, opds.ShelfRel)
		require.True(t, ok)
		assert.Equal(t, "http://circmanager.org/shelf", link.Href)
	})

	t.Run("an auth document satisfies the rel through its own id", func(t *testing.T) {
		doc := `{"id": "` + authURL + `", "title": "A Library"}`
		resp := response(authURL, opds.AuthDocumentMediaType, doc, nil)

		links := opds.ResponseLinks(resp)

		link, ok := opds.FindLink(links, opds.AuthDocumentRel)
		require.True(t, ok)
		assert.Equal(t, authURL, link.Href)
	})

	t.Run("malformed bodies contribute nothing", func(t *testing.T) {
		for _, tc := range []struct {
			name        string
			contentType string
			body        string
		}{
			{"broken xml", opds.OPDS1MediaType, "not xml"},
			{"broken json", opds.OPDS2MediaType, "not json"},
			{"auth doc without id", opds.AuthDocumentMediaType, `{"title": "A Library"}`},
			{"unknown media type", "text/html", "<html></html>"},
		} {
			t.Run(tc.name, func(t *testing.T) {
				resp := response("http://circmanager.org/feed/", tc.contentType, tc.body, nil)
				assert.Empty(t, opds.ResponseLinks(resp))
			})
		}
	})

	t.Run("header links and body links are combined", func(t *testing.T) {
		header := http.Header{}
		header.Add("Link", `<http://circmanager.org/shelf>; rel="`+opds.ShelfRel+`"`)
		feed := `<feed><link rel="` + opds.AuthDocumentRel + `" href="` + authURL + `"/></feed>`
		resp := response("http://circmanager.org/feed/", opds.OPDS1MediaType, feed, header)

		links := opds.ResponseLinks(resp)

		_, foundShelf := opds.FindLink(links, opds.ShelfRel)
		_, foundAuth := opds.FindLink(links, opds.AuthDocumentRel)
		assert.True(t, foundShelf)
		assert.True(t, foundAuth)
	})
}

func TestParseLinkHeaderMultipleValues(t *testing.T) {
	header := http.Header{}
	header.Add("Link", `<http://a.org/auth>; rel="`+opds.AuthDocumentRel+`"; type="`+opds.AuthDocumentMediaType+`", <http://a.org/shelf>; rel="`+opds.ShelfRel+`"`)
	resp := response("", "", "", header)

	links := opds.ResponseLinks(resp)

	require.Len(t, links, 2)
	assert.Equal(t, opds.AuthDocumentMediaType, links[0].Type)
	assert.Equal(t, "http://a.org/shelf", links[1].Href)
}

func TestResponseLinksCollapsesDuplicates(t *testing.T) {
	const authURL = "http://circmanager.org/authentication.json"

	header := http.Header{}
	header.Add("Link", `<`+authURL+`>; rel="`+opds.AuthDocumentRel+`"`)
	feed := `<feed><link rel="` + opds.AuthDocumentRel + `" href="` + authURL + `"/></feed>`
	resp := response("http://circmanager.org/feed/", opds.OPDS1MediaType, feed, header)

	links := opds.ResponseLinks(resp)

	require.Len(t, links, 1)
	assert.Equal(t, authURL, links[0].Href)
}

func TestLinksToDocument(t *testing.T) {
	const authURL = "http://circmanager.org/authentication.json"

	t.Run("matches a header link", func(t *testing.T) {
		header := http.Header{}
		header.Add("Link", `<`+authURL+`>; rel="`+opds.AuthDocumentRel+`"`)
		resp := response("http://circmanager.org/feed/", "text/html", "", header)

		assert.True(t, opds.LinksToDocument(resp, authURL))
	})

	t.Run("ignores other relations and other targets", func(t *testing.T) {
		header := http.Header{}
		header.Add("Link", `<`+authURL+`>; rel="`+opds.ShelfRel+`"`)
		resp := response("http://circmanager.org/feed/", "text/html", "", header)

		assert.False(t, opds.LinksToDocument(resp, authURL))
		assert.False(t, opds.LinksToDocument(resp, "http://elsewhere.org/auth"))
	})

	t.Run("malformed body is simply false", func(t *testing.T) {
		resp := response("http://circmanager.org/feed/", opds.OPDS2MediaType, "not json", nil)

		assert.False(t, opds.LinksToDocument(resp, authURL))
	})
}
