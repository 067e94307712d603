// Package endpoint derives subscription endpoints from a base address.
//
// A subscription endpoint is the base address with the fixed "index/"
// path segment resolved against it and two query parameters attached:
//   - subscribe: "true" or "false"
//   - query: the form-encoded filter expression, opaque to this package
//
// The comparison base of an endpoint (see BaseOf) keeps only the scheme,
// user info and host. Controllers compare bases, not full endpoints, to
// decide whether the server they are attached to has changed:
//
//	desired := endpoint.Build(base, true, query)
//	if !endpoint.SameBase(current, desired) {
//		// reconnect
//	}
package endpoint
