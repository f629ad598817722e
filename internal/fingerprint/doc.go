// Package fingerprint maps the observable features of one interaction to a
// known scanning tool or attack family.
//
// Detection is a pure function over a fixed, ordered signature table. All
// matching is case-insensitive substring containment and the first match
// wins, so the table order is the tie-break:
//
//  1. the User-Agent header (or, when it is absent, the payload) against
//     the tool signatures
//  2. the request path against well-known probe targets
//  3. the payload against SQL keywords
//
// An interaction that matches nothing yields model.ToolNone.
package fingerprint
