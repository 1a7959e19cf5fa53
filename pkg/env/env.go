// Package env reads raw process environment variables for the few knobs
// that must resolve before config loading, such as the log format and
// the port injected by the hosting platform.
package env

import "os"

// Get returns the value of key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
