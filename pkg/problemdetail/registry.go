package problemdetail

import "net/http"

// Failure constructors for the registration handshake and discovery
// surface. Each call returns a fresh value; call sites attach detail via
// WithDetail/WithTitle without affecting any other caller.

// NoOPDSURL is returned when a registration request carries no catalog URL.
func NoOPDSURL() ProblemDetail {
	return New(
		"https://libregistry.org/terms/problem/no-opds-url",
		http.StatusBadRequest,
		"No OPDS URL provided",
	)
}

// InvalidOPDSFeed is returned when the catalog entry point cannot be
// fetched or does not look like an OPDS feed.
func InvalidOPDSFeed() ProblemDetail {
	return New(
		"https://libregistry.org/terms/problem/invalid-opds-feed",
		http.StatusBadRequest,
		"Invalid OPDS feed",
	)
}

// NoShelfLink is returned when the fetched catalog advertises no usable
// link, neither a shelf nor an authentication document reference.
func NoShelfLink() ProblemDetail {
	return New(
		"https://libregistry.org/terms/problem/no-shelf-link",
		http.StatusBadRequest,
		"No shelf link found in OPDS feed",
	)
}

// InvalidAuthDocument is returned when the Authentication For OPDS
// document cannot be fetched or fails validation.
func InvalidAuthDocument() ProblemDetail {
	return New(
		"https://libregistry.org/terms/problem/invalid-auth-document",
		http.StatusBadRequest,
		"Invalid Authentication For OPDS document",
	)
}

// InvalidContactURI is returned when a required email relation resolves
// to no valid mailto: URI.
func InvalidContactURI() ProblemDetail {
	return New(
		"https://libregistry.org/terms/problem/invalid-contact-uri",
		http.StatusBadRequest,
		"Invalid contact URI",
	)
}

// AuthenticationFailure is returned when a caller tries to modify a
// registered library without presenting its current shared secret.
func AuthenticationFailure() ProblemDetail {
	return New(
		"https://libregistry.org/terms/problem/authentication-failure",
		http.StatusUnauthorized,
		"Authentication failure",
	)
}

// InternalError covers unexpected infrastructure faults.
func InternalError() ProblemDetail {
	return New(
		"https://libregistry.org/terms/problem/internal-error",
		http.StatusInternalServerError,
		"Internal server error",
	)
}
