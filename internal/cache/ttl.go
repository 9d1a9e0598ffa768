package cache

import (
	"sort"
	"time"
)

// DefaultTTL applies to categories missing from a Policy.
const DefaultTTL = time.Hour

// Data categories with built-in lifetimes.
const (
	CategoryProducts   = "products"
	CategoryStores     = "stores"
	CategoryFood       = "food"
	CategoryPromocodes = "promocodes"
	CategoryCoupons    = "coupons"
	CategoryGeo        = "geo"
)

// Policy maps data categories to cache lifetimes.
type Policy struct {
	Default    time.Duration
	Categories map[string]time.Duration
}

// DefaultPolicy returns the built-in TTL table.
func DefaultPolicy() Policy {
	return Policy{
		Default: DefaultTTL,
		Categories: map[string]time.Duration{
			CategoryProducts:   time.Hour,
			CategoryStores:     30 * time.Minute,
			CategoryFood:       30 * time.Minute,
			CategoryPromocodes: 6 * time.Hour,
			CategoryCoupons:    6 * time.Hour,
			CategoryGeo:        24 * time.Hour,
		},
	}
}

// PolicyFromMillis builds a Policy from a millisecond table. Non-positive
// values are dropped.
func PolicyFromMillis(defaultMillis int64, table map[string]int64) Policy {
	p := Policy{
		Default:    time.Duration(defaultMillis) * time.Millisecond,
		Categories: make(map[string]time.Duration, len(table)),
	}
	for name, ms := range table {
		if ms > 0 {
			p.Categories[name] = time.Duration(ms) * time.Millisecond
		}
	}
	return p
}

// Resolve returns the TTL for category, falling back to the policy default
// (or DefaultTTL when that is unset) for unknown categories.
func (p Policy) Resolve(category string) time.Duration {
	if d, ok := p.Categories[category]; ok && d > 0 {
		return d
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultTTL
}

// Names returns the configured category names in sorted order.
func (p Policy) Names() []string {
	names := make([]string, 0, len(p.Categories))
	for name := range p.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
