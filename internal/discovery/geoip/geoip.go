// Package geoip resolves client network addresses to geographic points.
// Resolution is best-effort: an address the resolver does not know yields
// no location rather than an error, and discovery degrades to an empty
// result set.
package geoip

import (
	"context"
	"net"

	"libregistry/internal/geo"
)

// Location is a resolved client position with an optional place name.
type Location struct {
	Point     geo.Point
	PlaceName string
}

// Resolver maps an IP address to a location. A nil location with a nil
// error means the address could not be resolved.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (*Location, error)
}

// Static resolves addresses from a fixed table. It backs deployments that
// ship a curated IP block mapping and every unit test.
type Static struct {
	table map[string]Location
}

// NewStatic builds a resolver over a fixed address table.
func NewStatic(table map[string]Location) *Static {
	return &Static{table: table}
}

func (s *Static) Resolve(_ context.Context, ip string) (*Location, error) {
	if net.ParseIP(ip) == nil {
		return nil, nil
	}
	loc, ok := s.table[ip]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}
