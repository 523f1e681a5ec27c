package opds

import "strings"

// parseLinkHeader parses a Link header value (RFC 8288) into links. Multiple
// link-values may be comma-separated; parameters other than rel and type are
// ignored. Malformed entries are skipped.
func parseLinkHeader(value string) []Link {
	var links []Link
	for _, entry := range splitLinkEntries(value) {
		if l, ok := parseLinkEntry(entry); ok {
			links = append(links, l)
		}
	}
	return links
}

// splitLinkEntries splits on commas that separate link-values, not commas
// inside the <url> brackets or quoted parameter values.
func splitLinkEntries(value string) []string {
	var entries []string
	var depth int
	var quoted bool
	start := 0
	for i, r := range value {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '<':
			depth++
		case r == '>':
			depth--
		case r == ',' && depth == 0:
			entries = append(entries, value[start:i])
			start = i + 1
		}
	}
	entries = append(entries, value[start:])
	return entries
}

func parseLinkEntry(entry string) (Link, bool) {
	entry = strings.TrimSpace(entry)
	open := strings.IndexByte(entry, '<')
	end := strings.IndexByte(entry, '>')
	if open != 0 || end < 0 {
		return Link{}, false
	}

	link := Link{Href: strings.TrimSpace(entry[open+1 : end])}
	if link.Href == "" {
		return Link{}, false
	}

	for _, param := range strings.Split(entry[end+1:], ";") {
		param = strings.TrimSpace(param)
		if param == "" {
			continue
		}
		key, value, found := strings.Cut(param, "=")
		if !found {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "rel":
			link.Rel = value
		case "type":
			link.Type = value
		}
	}
	return link, true
}
