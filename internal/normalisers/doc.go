// Package normalisers provides implementations of the Normaliser interface.
// Each normaliser turns one kind of raw metadata record into a domain
// entity; the build normaliser handles artifact metadata documents.
package normalisers
