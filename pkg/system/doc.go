// Package system provides process-wide helpers: zap logger construction for
// the CLI and tests, and the bridge that routes controller-runtime logging
// through zap.
package system
