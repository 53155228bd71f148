// Package router picks the backend a query is sent to.
package router

import (
	"strings"

	"github.com/germanamz/localmcp/pkg/config"
)

// SelectBackend returns the key of the first backend, in configuration order,
// with a keyword that occurs in query. Matching is case-insensitive substring
// matching. When nothing matches the first backend is the fallback.
//
// cfg must hold at least one backend, which config.Load guarantees.
func SelectBackend(query string, cfg *config.Config) string {
	q := strings.ToLower(query)

	for _, b := range cfg.Backends {
		for _, kw := range b.Keywords {
			if strings.Contains(q, kw) {
				return b.Key
			}
		}
	}

	return cfg.Fallback().Key
}
