// Package config loads the edge proxy configuration from an optional YAML
// file and the environment, and validates it.
//
// Every key can be overridden by its upper-cased environment name with dots
// replaced by underscores, e.g. UPSTREAMS_MVGRID_PREDICT_TIMEOUT=20s.
// API_BACKEND_URL and MVGRID_API_URL are accepted as aliases for the upstream
// base URLs.
package config
