// Package file provides the TOML configuration store.
//
// Settings live in ~/.buildboard/config.toml. Keys are addressed in dot
// notation ("query.max_limit") and written back as nested TOML tables:
//
//	[query]
//	max_limit = 500
package file
