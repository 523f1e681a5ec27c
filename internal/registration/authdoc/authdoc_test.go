package authdoc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libregistry/internal/registration/authdoc"
	"libregistry/pkg/problemdetail"
)

func TestValidate(t *testing.T) {
	t.Run("accepts a complete document", func(t *testing.T) {
		body := `{
			"id": "http://circmanager.org/authentication.json",
			"title": "A Library",
			"service_description": "Description",
			"links": [
				{"rel": "alternate", "href": "http://alibrary.org"},
				{"rel": "logo", "href": "image data"},
				{"rel": "help", "href": "mailto:help@alibrary.org"}
			],
			"color_scheme": "blue"
		}`

		doc, pd := authdoc.Validate([]byte(body))

		require.Nil(t, pd)
		assert.Equal(t, "http://circmanager.org/authentication.json", doc.ID)
		assert.Equal(t, "A Library", doc.Title)
		assert.Equal(t, "Description", doc.ServiceDescription)
		assert.Equal(t, "http://alibrary.org", doc.WebURL())
		assert.Equal(t, "image data", doc.Logo())
		assert.Contains(t, doc.Raw, "color_scheme")
	})

	t.Run("accepts the name field as a title", func(t *testing.T) {
		body := `{"id": "http://circmanager.org/auth", "name": "A Library"}`

		doc, pd := authdoc.Validate([]byte(body))

		require.Nil(t, pd)
		assert.Equal(t, "A Library", doc.Title)
	})

	t.Run("accepts links keyed by relation", func(t *testing.T) {
		body := `{
			"id": "http://circmanager.org/auth",
			"links": {"alternate": {"href": "http://alibrary.org"}}
		}`

		doc, pd := authdoc.Validate([]byte(body))

		require.Nil(t, pd)
		assert.Equal(t, "http://alibrary.org", doc.WebURL())
	})

	t.Run("rejects a body that is not JSON", func(t *testing.T) {
		_, pd := authdoc.Validate([]byte("not json"))

		require.NotNil(t, pd)
		assert.True(t, problemdetail.InvalidAuthDocument().Is(*pd))
	})

	t.Run("rejects a missing id", func(t *testing.T) {
		_, pd := authdoc.Validate([]byte(`{"title": "A Library"}`))

		require.NotNil(t, pd)
		assert.True(t, problemdetail.InvalidAuthDocument().Is(*pd))
	})

	t.Run("rejects a relative id", func(t *testing.T) {
		_, pd := authdoc.Validate([]byte(`{"id": "authentication.json"}`))

		require.NotNil(t, pd)
		assert.True(t, problemdetail.InvalidAuthDocument().Is(*pd))
	})

	t.Run("rejects a register link with a malformed target", func(t *testing.T) {
		body := `{
			"id": "http://circmanager.org/auth",
			"links": [{"rel": "register", "href": "not a uri"}]
		}`

		_, pd := authdoc.Validate([]byte(body))

		require.NotNil(t, pd)
		assert.True(t, problemdetail.InvalidAuthDocument().Is(*pd))
		assert.Contains(t, pd.Detail, "rel=register")
	})

	t.Run("preserves document order of repeated relations", func(t *testing.T) {
		body := `{
			"id": "http://circmanager.org/auth",
			"links": [
				{"rel": "help", "href": "mailto:first@alibrary.org"},
				{"rel": "help", "href": "http://alibrary.org/help"},
				{"rel": "help", "href": "mailto:second@alibrary.org"}
			]
		}`

		doc, pd := authdoc.Validate([]byte(body))

		require.Nil(t, pd)
		links := doc.LinksFor(authdoc.RelHelp)
		require.Len(t, links, 3)
		assert.Equal(t, "mailto:first@alibrary.org", links[0].Href)
		assert.Equal(t, "mailto:second@alibrary.org", links[2].Href)
	})
}

func TestRequiredEmailAddress(t *testing.T) {
	t.Run("passes a mailto URI through", func(t *testing.T) {
		uri, pd := authdoc.RequiredEmailAddress("mailto:admin@alibrary.org", "Contact email")

		require.Nil(t, pd)
		assert.Equal(t, "mailto:admin@alibrary.org", uri)
	})

	t.Run("rejects an empty value", func(t *testing.T) {
		_, pd := authdoc.RequiredEmailAddress("", "Contact email")

		require.NotNil(t, pd)
		assert.True(t, problemdetail.InvalidContactURI().Is(*pd))
		assert.Equal(t, "Contact email", pd.Title)
		assert.Equal(t, "No email address was provided", pd.Detail)
	})

	t.Run("rejects a non-mailto URI", func(t *testing.T) {
		_, pd := authdoc.RequiredEmailAddress("http://not-an-email/", "Contact email")

		require.NotNil(t, pd)
		assert.Equal(t, "URI must start with 'mailto:' (got: http://not-an-email/)", pd.Detail)
	})
}

func TestLocateEmailAddresses(t *testing.T) {
	t.Run("returns mailto links in document order", func(t *testing.T) {
		links := []authdoc.Link{
			{Href: "mailto:first@alibrary.org"},
			{Href: "http://alibrary.org/help"},
			{Href: "mailto:second@alibrary.org"},
		}

		addresses, pd := authdoc.LocateEmailAddresses("rel1", links, "Help contact")

		require.Nil(t, pd)
		assert.Equal(t, []string{"mailto:first@alibrary.org", "mailto:second@alibrary.org"}, addresses)
	})

	t.Run("fails when no valid mailto links exist", func(t *testing.T) {
		links := []authdoc.Link{{Href: "http://alibrary.org/help"}}

		_, pd := authdoc.LocateEmailAddresses("rel1", links, "Help contact")

		require.NotNil(t, pd)
		assert.True(t, problemdetail.InvalidContactURI().Is(*pd))
		assert.Equal(t, "Help contact", pd.Title)
		assert.Equal(t, "No valid mailto: links found with rel=rel1", pd.Detail)
	})

	t.Run("fails on an empty link set", func(t *testing.T) {
		_, pd := authdoc.LocateEmailAddresses("rel1", nil, "Help contact")

		require.NotNil(t, pd)
		assert.Equal(t, "No valid mailto: links found with rel=rel1", pd.Detail)
	})
}
