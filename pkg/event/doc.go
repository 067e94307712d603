// Package event decodes the JSON events carried by a subscription stream.
//
// An Event mirrors one observation of a Riemann-style stream: host,
// service, state, metric and friends, plus every key the decoder does not
// recognise, kept verbatim in Attributes.
//
// Decoding is tolerant: absent or null fields are simply not present,
// and tags collapse to an empty list when they are absent, null or
// malformed. Only input that is not a JSON object, or a named field of
// the wrong type, fails with a *DecodeError that keeps the raw text so a
// renderer can show the offending message inline.
package event
