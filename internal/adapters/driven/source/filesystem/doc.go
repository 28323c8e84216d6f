// Package filesystem provides a RecordSource that reads artifact metadata
// documents from a directory tree.
//
// Files ending in .json hold one record or an array of records; files
// ending in .yaml or .yml hold one record per YAML document. Every record
// uses the {"meta": {...}, "json": {...}} document shape. Watch follows
// the tree with fsnotify and re-reads files as they are created or
// rewritten.
package filesystem
