/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package state

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/email-sender/pkg/config"
	"github.com/telekom/email-sender/pkg/metrics"
	"github.com/telekom/email-sender/pkg/queries"
)

var (
	// ErrKeyExists is returned by Add when the key is already recorded.
	ErrKeyExists = errors.New("state: key already exists")
	// ErrAccountNotFound is returned when the configured state account is not
	// part of the account inventory.
	ErrAccountNotFound = errors.New("state: account not found")
	ErrInvalidKey      = errors.New("state: invalid key")
)

// Store records handled keys for one integration.
type Store interface {
	// Exists reports whether key was recorded.
	Exists(ctx context.Context, key string) (bool, error)
	// Add records key. It fails with ErrKeyExists if key is already present.
	Add(ctx context.Context, key string) error
	// Close releases backend connections.
	Close() error
}

// New builds the Store configured in cfg, scoped to integration. accounts is
// the AWS account inventory used to locate the S3 state bucket.
func New(ctx context.Context, cfg config.State, integration string, accounts []queries.AccountRef, log *zap.SugaredLogger) (Store, error) {
	if integration == "" {
		return nil, errors.New("state: integration name is required")
	}
	log = log.With("integration", integration, "backend", cfg.Backend)

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.StateBackendS3:
		store, err = NewS3Store(cfg.S3, integration, accounts, log)
	case config.StateBackendRedis:
		store, err = NewRedisStore(ctx, cfg.Redis, integration, log)
	case config.StateBackendConfigMap:
		store, err = NewConfigMapStoreFromKubeconfig(cfg.ConfigMap, integration, log)
	default:
		return nil, fmt.Errorf("state: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// encodeKey maps an arbitrary email name onto the alphabet every backend
// accepts ([A-Za-z0-9_-]). The encoding is reversible, so distinct names never
// share a stored key.
func encodeKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(key)), nil
}

// objectKey is the namespaced location of key: state/<integration>/<encoded key>.
func objectKey(integration, key string) (string, error) {
	encoded, err := encodeKey(key)
	if err != nil {
		return "", err
	}
	return path.Join("state", integration, encoded), nil
}

// sentMarker is the value stored for a key.
func sentMarker() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func observe(backend, operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.StateOperations.WithLabelValues(backend, operation, result).Inc()
}
