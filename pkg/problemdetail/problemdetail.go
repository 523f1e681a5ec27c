// Package problemdetail implements machine-readable failure documents in the
// style of RFC 7807. Every user-visible failure in the registry is expressed
// as a ProblemDetail rather than a bare error string.
package problemdetail

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MediaType is the content type used when a problem detail is written as an
// HTTP response body.
const MediaType = "application/api-problem+json"

// ProblemDetail describes a single failure: a stable type URI, a short title,
// a human-readable detail, and the HTTP status the failure maps to.
//
// Values are immutable once constructed. The With* methods return copies, so
// attaching per-request detail never leaks into another caller's value.
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	Status int    `json:"status"`
}

// New constructs a problem detail template.
func New(typeURI string, status int, title string) ProblemDetail {
	return ProblemDetail{Type: typeURI, Status: status, Title: title}
}

// WithDetail returns a copy carrying the given human-readable detail.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithDetailf returns a copy carrying a formatted detail.
func (p ProblemDetail) WithDetailf(format string, args ...any) ProblemDetail {
	p.Detail = fmt.Sprintf(format, args...)
	return p
}

// WithTitle returns a copy carrying a caller-supplied title.
func (p ProblemDetail) WithTitle(title string) ProblemDetail {
	p.Title = title
	return p
}

// Error implements the error interface so problem details can travel through
// error returns without losing structure.
func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// Is reports whether two problem details describe the same failure type.
// Detail text and title overrides are ignored.
func (p ProblemDetail) Is(target error) bool {
	if other, ok := target.(ProblemDetail); ok {
		return p.Type == other.Type
	}
	return false
}

// From extracts a problem detail from an error chain. Returns false when the
// error does not carry one.
func From(err error) (ProblemDetail, bool) {
	if err == nil {
		return ProblemDetail{}, false
	}
	if pd, ok := err.(ProblemDetail); ok {
		return pd, true
	}
	return ProblemDetail{}, false
}

// Write serializes the problem detail as the HTTP response.
func Write(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", MediaType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
