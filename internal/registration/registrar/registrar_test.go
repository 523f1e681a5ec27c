package registrar_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libregistry/internal/library/store"
	"libregistry/internal/registration/fetch"
	"libregistry/internal/registration/opds"
	"libregistry/internal/registration/registrar"
	"libregistry/pkg/platform/audit"
	"libregistry/pkg/platform/audit/memory"
	"libregistry/pkg/platform/sentinel"
	"libregistry/pkg/problemdetail"
	"libregistry/pkg/testutil"
)

const (
	catalogURL = "http://circmanager.org"
	shelfURL   = "http://circmanager.org/shelf"
	authURL    = "http://circmanager.org/authentication.json"
)

func shelfFeed() (http.Header, string) {
	header := http.Header{}
	header.Set("Content-Type", opds.OPDS1MediaType)
	body := `<feed><link rel="` + opds.ShelfRel + `" href="` + shelfURL + `"/></feed>`
	return header, body
}

func authDocument(description, alternate string) (http.Header, string) {
	header := http.Header{}
	header.Set("Content-Type", opds.AuthDocumentMediaType)
	body := `{
		"id": "` + authURL + `",
		"title": "A Library",
		"service_description": "` + description + `",
		"links": [`
	if alternate != "" {
		body += `{"rel": "alternate", "href": "` + alternate + `"},`
	}
	body += `{"rel": "logo", "href": "image data"}]}`
	return header, body
}

func newRegistrar(t *testing.T, st store.Store, q *fetch.Queue, opts ...registrar.Option) *registrar.Registrar {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append(opts, registrar.WithClock(func() time.Time { return now }))
	return registrar.New(st, q, opts...)
}

func TestRegisterCreatesLibrary(t *testing.T) {
	st := store.NewInMemory()
	q := fetch.NewQueue()
	feedHeader, feedBody := shelfFeed()
	docHeader, docBody := authDocument("Description", "http://alibrary.org")
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
	r := newRegistrar(t, st, q)

	var result *registrar.Result
	testutil.When(t, "an unregistered catalog completes the handshake", func(t *testing.T) {
		var pd *problemdetail.ProblemDetail
		result, pd = r.Register(context.Background(), catalogURL, "")
		require.Nil(t, pd)
	})

	testutil.Then(t, "a library is created with the document's fields", func(t *testing.T) {
		assert.True(t, result.Created)
		assert.Equal(t, 201, result.Status)

		lib := result.Library
		assert.Equal(t, catalogURL, lib.OPDSURL)
		assert.Equal(t, authURL, lib.AuthenticationURL)
		assert.Equal(t, "A Library", lib.Name)
		assert.Equal(t, "Description", lib.Description)
		assert.Equal(t, "http://alibrary.org", lib.WebURL)
		assert.Equal(t, "image data", lib.Logo)
		assert.Len(t, lib.SharedSecret, 43)
	})

	testutil.Then(t, "both remote documents were fetched in order", func(t *testing.T) {
		assert.Equal(t, []string{catalogURL, shelfURL}, q.Requested)
	})
}

func TestReRegisterUpdatesLibrary(t *testing.T) {
	st := store.NewInMemory()
	q := fetch.NewQueue()

	feedHeader, feedBody := shelfFeed()
	docHeader, docBody := authDocument("Description", "http://alibrary.org")
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
	r := newRegistrar(t, st, q)

	first, pd := r.Register(context.Background(), catalogURL, "")
	require.Nil(t, pd)
	secret := first.Library.SharedSecret

	docHeader, docBody = authDocument("New Description", "")
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)

	second, pd := r.Register(context.Background(), catalogURL, secret)

	require.Nil(t, pd)
	assert.False(t, second.Created)
	assert.Equal(t, 200, second.Status)
	assert.Equal(t, "New Description", second.Library.Description)
	assert.Empty(t, second.Library.WebURL, "field absent in new document clears prior value")
	assert.Equal(t, first.Library.ID, second.Library.ID)
	assert.Equal(t, secret, second.Library.SharedSecret)
}

func TestReRegisterRejectsWrongSecret(t *testing.T) {
	st := store.NewInMemory()
	q := fetch.NewQueue()

	feedHeader, feedBody := shelfFeed()
	docHeader, docBody := authDocument("Description", "http://alibrary.org")
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
	r := newRegistrar(t, st, q)

	_, pd := r.Register(context.Background(), catalogURL, "")
	require.Nil(t, pd)

	docHeader, docBody = authDocument("New Description", "")
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)

	_, pd = r.Register(context.Background(), catalogURL, "wrong secret")

	require.NotNil(t, pd)
	assert.True(t, problemdetail.AuthenticationFailure().Is(*pd))
	assert.Equal(t, "Provided shared secret is invalid", pd.Detail)

	got, err := st.FindByOPDSURL(context.Background(), catalogURL)
	require.NoError(t, err)
	assert.Equal(t, "Description", got.Description, "failed handshake must not touch the record")
}

func TestRegisterWithoutURL(t *testing.T) {
	st := store.NewInMemory()
	r := newRegistrar(t, st, fetch.NewQueue())

	_, pd := r.Register(context.Background(), "  ", "")

	require.NotNil(t, pd)
	assert.True(t, problemdetail.NoOPDSURL().Is(*pd))

	libs, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, libs, "no persistence write on failure")
}

func TestRegisterCatalogUnreachable(t *testing.T) {
	q := fetch.NewQueue()
	q.QueueError(errors.New("connection refused"))
	r := newRegistrar(t, store.NewInMemory(), q)

	_, pd := r.Register(context.Background(), catalogURL, "")

	require.NotNil(t, pd)
	assert.True(t, problemdetail.InvalidOPDSFeed().Is(*pd))
}

func TestRegisterCatalogServerError(t *testing.T) {
	q := fetch.NewQueue()
	q.QueueResponse(http.StatusInternalServerError, nil, "")
	r := newRegistrar(t, store.NewInMemory(), q)

	_, pd := r.Register(context.Background(), catalogURL, "")

	require.NotNil(t, pd)
	assert.True(t, problemdetail.InvalidOPDSFeed().Is(*pd))
}

func TestRegisterCatalogErrorWithLinksProceeds(t *testing.T) {
	// An error status that still advertises its auth document is usable.
	st := store.NewInMemory()
	q := fetch.NewQueue()
	docHeader, docBody := authDocument("Description", "http://alibrary.org")
	header := http.Header{}
	header.Add("Link", `<`+authURL+`>; rel="`+opds.AuthDocumentRel+`"`)
	q.QueueResponse(http.StatusServiceUnavailable, header, "")
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
	r := newRegistrar(t, st, q)

	result, pd := r.Register(context.Background(), catalogURL, "")

	require.Nil(t, pd)
	assert.True(t, result.Created)
}

func TestRegisterFeedWithoutLinks(t *testing.T) {
	q := fetch.NewQueue()
	header := http.Header{}
	header.Set("Content-Type", opds.OPDS1MediaType)
	q.QueueResponse(http.StatusOK, header, `<feed></feed>`)
	r := newRegistrar(t, store.NewInMemory(), q)

	_, pd := r.Register(context.Background(), catalogURL, "")

	require.NotNil(t, pd)
	assert.True(t, problemdetail.NoShelfLink().Is(*pd))
}

func TestRegisterAuthDocRetriedOnce(t *testing.T) {
	st := store.NewInMemory()
	q := fetch.NewQueue()
	feedHeader, feedBody := shelfFeed()
	docHeader, docBody := authDocument("Description", "http://alibrary.org")
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueError(errors.New("connection reset"))
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
	r := newRegistrar(t, st, q)

	result, pd := r.Register(context.Background(), catalogURL, "")

	require.Nil(t, pd)
	assert.True(t, result.Created)
	assert.Equal(t, []string{catalogURL, shelfURL, shelfURL}, q.Requested)
}

func TestRegisterAuthDocUnreachableTwice(t *testing.T) {
	q := fetch.NewQueue()
	feedHeader, feedBody := shelfFeed()
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueError(errors.New("connection reset"))
	q.QueueError(errors.New("connection reset"))
	r := newRegistrar(t, store.NewInMemory(), q)

	_, pd := r.Register(context.Background(), catalogURL, "")

	require.NotNil(t, pd)
	assert.True(t, problemdetail.InvalidAuthDocument().Is(*pd))
}

func TestRegisterMalformedAuthDoc(t *testing.T) {
	q := fetch.NewQueue()
	feedHeader, feedBody := shelfFeed()
	docHeader := http.Header{}
	docHeader.Set("Content-Type", opds.AuthDocumentMediaType)
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueResponse(http.StatusUnauthorized, docHeader, `not json`)
	r := newRegistrar(t, store.NewInMemory(), q)

	_, pd := r.Register(context.Background(), catalogURL, "")

	require.NotNil(t, pd)
	assert.True(t, problemdetail.InvalidAuthDocument().Is(*pd))
}

func TestRegisterCatalogChallengeCarriesAuthDoc(t *testing.T) {
	// A 401 challenge whose body is the authentication document completes
	// the handshake with a single fetch.
	st := store.NewInMemory()
	q := fetch.NewQueue()
	docHeader, docBody := authDocument("Description", "http://alibrary.org")
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
	r := newRegistrar(t, st, q)

	result, pd := r.Register(context.Background(), catalogURL, "")

	require.Nil(t, pd)
	assert.True(t, result.Created)
	assert.Equal(t, authURL, result.Library.AuthenticationURL)
	assert.Equal(t, []string{catalogURL}, q.Requested)
}

func TestRegisterEmitsAuditEvents(t *testing.T) {
	auditStore := memory.NewInMemoryStore()
	pub := audit.NewPublisher(auditStore)
	defer pub.Close()

	st := store.NewInMemory()
	q := fetch.NewQueue()
	feedHeader, feedBody := shelfFeed()
	docHeader, docBody := authDocument("Description", "http://alibrary.org")
	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
	r := newRegistrar(t, st, q, registrar.WithAudit(pub))

	_, pd := r.Register(context.Background(), catalogURL, "")
	require.Nil(t, pd)

	q.QueueResponse(http.StatusOK, feedHeader, feedBody)
	q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
	_, pd = r.Register(context.Background(), catalogURL, "wrong secret")
	require.NotNil(t, pd)

	events, err := auditStore.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventLibraryCreated, events[0].Action)
	assert.Equal(t, audit.EventRegistrationFailed, events[1].Action)
}

func TestUpdateEndpoints(t *testing.T) {
	register := func(t *testing.T) (*registrar.Registrar, store.Store, string) {
		t.Helper()
		st := store.NewInMemory()
		q := fetch.NewQueue()
		feedHeader, feedBody := shelfFeed()
		docHeader, docBody := authDocument("Description", "http://alibrary.org")
		q.QueueResponse(http.StatusOK, feedHeader, feedBody)
		q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
		r := newRegistrar(t, st, q)
		result, pd := r.Register(context.Background(), catalogURL, "")
		require.Nil(t, pd)
		return r, st, result.Library.SharedSecret
	}

	t.Run("updates the authentication URL with a valid secret", func(t *testing.T) {
		r, _, secret := register(t)

		lib, pd := r.UpdateEndpoints(context.Background(), catalogURL, secret, "http://circmanager.org/v2/auth", "")

		require.Nil(t, pd)
		assert.Equal(t, "http://circmanager.org/v2/auth", lib.AuthenticationURL)
		assert.Equal(t, catalogURL, lib.OPDSURL)
	})

	t.Run("moves the library to a new OPDS URL", func(t *testing.T) {
		r, st, secret := register(t)

		lib, pd := r.UpdateEndpoints(context.Background(), catalogURL, secret, "", "http://circmanager.org/v2/opds")

		require.Nil(t, pd)
		assert.Equal(t, "http://circmanager.org/v2/opds", lib.OPDSURL)

		_, err := st.FindByOPDSURL(context.Background(), catalogURL)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		moved, err := st.FindByOPDSURL(context.Background(), "http://circmanager.org/v2/opds")
		require.NoError(t, err)
		assert.Equal(t, lib.ID, moved.ID)
	})

	t.Run("rejects a wrong secret and leaves the record untouched", func(t *testing.T) {
		r, st, _ := register(t)

		_, pd := r.UpdateEndpoints(context.Background(), catalogURL, "wrong secret", "http://elsewhere.org/auth", "")

		require.NotNil(t, pd)
		assert.True(t, problemdetail.AuthenticationFailure().Is(*pd))

		got, err := st.FindByOPDSURL(context.Background(), catalogURL)
		require.NoError(t, err)
		assert.Equal(t, authURL, got.AuthenticationURL)
	})

	t.Run("empty URL arguments change nothing", func(t *testing.T) {
		r, st, secret := register(t)

		lib, pd := r.UpdateEndpoints(context.Background(), catalogURL, secret, "", "")

		require.Nil(t, pd)
		assert.Equal(t, authURL, lib.AuthenticationURL)
		assert.Equal(t, catalogURL, lib.OPDSURL)

		got, err := st.FindByOPDSURL(context.Background(), catalogURL)
		require.NoError(t, err)
		assert.Equal(t, authURL, got.AuthenticationURL)
	})

	t.Run("unknown library yields a problem detail", func(t *testing.T) {
		r, _, _ := register(t)

		_, pd := r.UpdateEndpoints(context.Background(), "http://unknown.org/opds", "", "http://unknown.org/auth", "")

		require.NotNil(t, pd)
	})
}

func TestRegisterContactLinks(t *testing.T) {
	docWithHelp := func(helpHref string) (http.Header, string) {
		header := http.Header{}
		header.Set("Content-Type", opds.AuthDocumentMediaType)
		body := `{
			"id": "` + authURL + `",
			"title": "A Library",
			"links": [{"rel": "help", "href": "` + helpHref + `"}]}`
		return header, body
	}

	t.Run("stores the help address from a mailto link", func(t *testing.T) {
		st := store.NewInMemory()
		q := fetch.NewQueue()
		feedHeader, feedBody := shelfFeed()
		docHeader, docBody := docWithHelp("mailto:help@alibrary.org")
		q.QueueResponse(http.StatusOK, feedHeader, feedBody)
		q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
		r := newRegistrar(t, st, q)

		result, pd := r.Register(context.Background(), catalogURL, "")

		require.Nil(t, pd)
		assert.Equal(t, "mailto:help@alibrary.org", result.Library.HelpEmail)
	})

	t.Run("rejects a help link that is not a mailto URI", func(t *testing.T) {
		st := store.NewInMemory()
		q := fetch.NewQueue()
		feedHeader, feedBody := shelfFeed()
		docHeader, docBody := docWithHelp("http://alibrary.org/support")
		q.QueueResponse(http.StatusOK, feedHeader, feedBody)
		q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
		r := newRegistrar(t, st, q)

		_, pd := r.Register(context.Background(), catalogURL, "")

		require.NotNil(t, pd)
		assert.True(t, problemdetail.InvalidContactURI().Is(*pd))
		assert.Equal(t, "No valid mailto: links found with rel=help", pd.Detail)

		_, err := st.FindByOPDSURL(context.Background(), catalogURL)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("a document without contact links still registers", func(t *testing.T) {
		st := store.NewInMemory()
		q := fetch.NewQueue()
		feedHeader, feedBody := shelfFeed()
		docHeader, docBody := authDocument("Description", "")
		q.QueueResponse(http.StatusOK, feedHeader, feedBody)
		q.QueueResponse(http.StatusUnauthorized, docHeader, docBody)
		r := newRegistrar(t, st, q)

		result, pd := r.Register(context.Background(), catalogURL, "")

		require.Nil(t, pd)
		assert.Empty(t, result.Library.HelpEmail)
		assert.Empty(t, result.Library.ContactEmail)
	})
}
