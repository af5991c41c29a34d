// Package catalogapi serves the recipe catalog over HTTP.
//
// Routes:
//
//	GET /                          API information
//	GET /health                    liveness probe
//	GET /api/scripts_list?lang=    every recipe
//	GET /api/script/{script_name}  one recipe
//	GET /metrics                   request counters
//
// Texts are returned in the requested language; unknown languages fall
// back to Russian.
package catalogapi
