// Package config defines configuration structures for the tilerip CLI.
//
// Configuration can be provided via:
//   - YAML configuration file
//   - Environment variables (TILERIP_ prefix)
//   - Command-line flags
//
// Later sources win. Every setting has a dotted key ("retry.attempts") that
// is also its YAML path; the environment variable is the key upper-cased
// with dots replaced by underscores (TILERIP_RETRY_ATTEMPTS).
//
// # Example
//
//	url: https://tile.example.org/{zoom}/{x}/{y}.png
//	bbox: 13.08,52.33,13.76,52.68
//	min_zoom: 0
//	max_zoom: 14
//	output: ./berlin
//	workers: 8
//	no_overwrite: true
//	limit: -1
//	extension: png
//	http:
//	  user_agent: my-offline-map/1.0
//	  rate_limit: 10
//	retry:
//	  attempts: 2
//	  backoff: 500ms
package config
