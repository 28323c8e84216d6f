// Package build normalises artifact metadata records into builds.
//
// Attributes are derived from the record ID's filename with explicit parse
// functions. Each returns (value, ok); a false ok is a normal outcome and
// leaves the attribute unset.
package build
