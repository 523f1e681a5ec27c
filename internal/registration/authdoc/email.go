package authdoc

import (
	"strings"

	"libregistry/pkg/problemdetail"
)

const mailtoScheme = "mailto:"

// RequiredEmailAddress checks that uri is a usable mailto URI. The returned
// problem detail carries the caller-supplied title so failures name the
// field being validated.
func RequiredEmailAddress(uri, problemTitle string) (string, *problemdetail.ProblemDetail) {
	if uri == "" {
		pd := problemdetail.InvalidContactURI().
			WithTitle(problemTitle).
			WithDetail("No email address was provided")
		return "", &pd
	}
	if !strings.HasPrefix(uri, mailtoScheme) {
		pd := problemdetail.InvalidContactURI().
			WithTitle(problemTitle).
			WithDetailf("URI must start with 'mailto:' (got: %s)", uri)
		return "", &pd
	}
	return uri, nil
}

// LocateEmailAddresses returns every mailto URI under the given relation, in
// document order. Zero valid matches is a validation failure naming the
// relation.
func LocateEmailAddresses(rel string, links []Link, problemTitle string) ([]string, *problemdetail.ProblemDetail) {
	var addresses []string
	for _, link := range links {
		if strings.HasPrefix(link.Href, mailtoScheme) {
			addresses = append(addresses, link.Href)
		}
	}
	if len(addresses) == 0 {
		pd := problemdetail.InvalidContactURI().
			WithTitle(problemTitle).
			WithDetailf("No valid mailto: links found with rel=%s", rel)
		return nil, &pd
	}
	return addresses, nil
}
