// Package relationship tracks typed, directed associations between
// registers. Edges are stored with a forward and an inverse index, and
// per-kind cardinality rules (one owner per target, by default) are
// enforced at creation time.
package relationship
