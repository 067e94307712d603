package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// SubscriptionPath is resolved against the base address of every endpoint.
const SubscriptionPath = "index/"

var (
	// ErrInvalidBase is returned when an address cannot serve as a hierarchical base
	ErrInvalidBase = errors.New("address cannot be used as a base")
)

// Build returns the subscription endpoint for base, subscribe and query.
// The base is never modified. Build assumes base is an absolute address.
func Build(base *url.URL, subscribe bool, query string) *url.URL {
	resolved := base.ResolveReference(&url.URL{Path: SubscriptionPath})
	resolved.RawQuery = "subscribe=" + strconv.FormatBool(subscribe) + "&query=" + url.QueryEscape(query)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved
}

// BaseOf strips path, query and fragment from endpoint, keeping the
// scheme, user info and host. Opaque or relative addresses fail with
// ErrInvalidBase.
func BaseOf(endpoint *url.URL) (*url.URL, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("%w: nil address", ErrInvalidBase)
	}
	if endpoint.Opaque != "" || endpoint.Scheme == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBase, endpoint.String())
	}

	return &url.URL{
		Scheme: endpoint.Scheme,
		User:   endpoint.User,
		Host:   endpoint.Host,
		Path:   "/",
	}, nil
}

// SameBase reports whether a and b share a comparison base.
// If either base cannot be computed the endpoints are treated as different.
func SameBase(a, b *url.URL) bool {
	baseA, err := BaseOf(a)
	if err != nil {
		return false
	}
	baseB, err := BaseOf(b)
	if err != nil {
		return false
	}
	return baseA.String() == baseB.String()
}

// Equal reports whether two endpoints address the same subscription.
func Equal(a, b *url.URL) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// Parse parses an absolute base address, as typed by an operator.
func Parse(address string) (*url.URL, error) {
	parsed, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	if _, err := BaseOf(parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}
