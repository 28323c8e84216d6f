// Package httpapi serves the build catalog over HTTP using gin.
//
// Routes:
//
//	GET /allbuilds?skip=&limit=&buildfilter=  filtered build listing
//	GET /filtercats                           facet catalog (ETag aware)
//	GET /manifest-info/:build                 raw record of one build
//	GET /comparison-info/:builda/:buildb      manifest comparison
//	GET /problems                             builds without a full version
//	GET /messages                             operator message feed
//	GET /health                               liveness
//	GET /metrics                              Prometheus exposition
//
// Build references may be IDs or filenames. IDs contain slashes and must
// be sent percent-encoded ("couchbase-server%2F2.0.0%2F...").
package httpapi
