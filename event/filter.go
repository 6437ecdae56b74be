package event

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is wrapped by every Filter.Validate failure.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter describes which events a subscription asks relays for. Matching is
// performed by the relays; the client only validates and transmits filters.
type Filter struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []Kind   `json:"kinds,omitempty"`
	Events  []string `json:"#e,omitempty"`
	PubKeys []string `json:"#p,omitempty"`
	Since   int64    `json:"since,omitempty"`
	Until   int64    `json:"until,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Validate checks field shapes: hex prefixes of at most 64 characters,
// non-negative kinds, limit and time bounds, and since <= until.
func (f Filter) Validate() error {
	for name, values := range map[string][]string{
		"ids":     f.IDs,
		"authors": f.Authors,
		"#e":      f.Events,
		"#p":      f.PubKeys,
	} {
		for _, v := range values {
			if !isHexPrefix(v) {
				return fmt.Errorf("%w: %s entry %q is not a lowercase hex prefix", ErrInvalidFilter, name, v)
			}
		}
	}
	for _, k := range f.Kinds {
		if k < 0 || k > 65535 {
			return fmt.Errorf("%w: kind %d out of range", ErrInvalidFilter, k)
		}
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidFilter, f.Limit)
	}
	if f.Since < 0 || f.Until < 0 {
		return fmt.Errorf("%w: negative timestamp", ErrInvalidFilter)
	}
	if f.Since != 0 && f.Until != 0 && f.Since > f.Until {
		return fmt.Errorf("%w: since %d after until %d", ErrInvalidFilter, f.Since, f.Until)
	}
	return nil
}

func isHexPrefix(s string) bool {
	if len(s) == 0 || len(s) > 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
