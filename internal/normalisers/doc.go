// Package normalisers converts raw source bytes into plain text.
// Each subpackage handles one family of formats; the registry routes a
// MIME type to the extractor that supports it.
package normalisers
