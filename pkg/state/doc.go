// Package state persists which declared items an integration has already
// handled. Keys are append-only: they are checked for existence and added,
// never removed. Keys may be any non-empty string; backends store them
// base64url-encoded in S3, Redis or a Kubernetes ConfigMap.
package state
