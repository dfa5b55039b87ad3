// Package normalisers provides implementations of the Normaliser interface
// for the file formats a capture can attach. Each normaliser extracts the
// analyzable text of one family of MIME types.
//
// Normalisers are registered with the DocumentService at startup.
package normalisers
