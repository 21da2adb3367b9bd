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
	"fmt"
	"strings"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/telekom/email-sender/pkg/config"
)

const (
	backendConfigMap = "configmap"

	// IntegrationLabel marks ConfigMaps holding integration state.
	IntegrationLabel = "email-sender.telekom.de/integration"
)

// ConfigMapStore keeps all keys of an integration as data entries of a single
// ConfigMap.
type ConfigMapStore struct {
	client      client.Client
	key         types.NamespacedName
	integration string
	log         *zap.SugaredLogger
}

// NewConfigMapStoreFromKubeconfig builds a Kubernetes client from the
// in-cluster config or KUBECONFIG and returns a ConfigMapStore.
func NewConfigMapStoreFromKubeconfig(cfg config.ConfigMapState, integration string, log *zap.SugaredLogger) (*ConfigMapStore, error) {
	restConfig, err := ctrlconfig.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("state: failed to load kubernetes config: %w", err)
	}
	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("state: failed to build scheme: %w", err)
	}
	c, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("state: failed to create kubernetes client: %w", err)
	}
	return NewConfigMapStore(c, cfg, integration, log), nil
}

func NewConfigMapStore(c client.Client, cfg config.ConfigMapState, integration string, log *zap.SugaredLogger) *ConfigMapStore {
	name := cfg.Name
	if name == "" {
		name = integration + "-state"
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "default"
	}
	log.Infow("Using ConfigMap state store", "configmap", name, "namespace", namespace)
	return &ConfigMapStore{
		client:      c,
		key:         types.NamespacedName{Name: name, Namespace: namespace},
		integration: integration,
		log:         log,
	}
}

// configMapKey encodes key as a data entry name. Names whose encoding exceeds
// the ConfigMap key length limit are rejected.
func configMapKey(key string) (string, error) {
	encoded, err := encodeKey(key)
	if err != nil {
		return "", err
	}
	if errs := validation.IsConfigMapKey(encoded); len(errs) > 0 {
		return "", fmt.Errorf("%w: %q: %s", ErrInvalidKey, key, strings.Join(errs, ", "))
	}
	return encoded, nil
}

func (s *ConfigMapStore) Exists(ctx context.Context, key string) (bool, error) {
	dataKey, err := configMapKey(key)
	if err != nil {
		return false, err
	}

	var cm corev1.ConfigMap
	if err := s.client.Get(ctx, s.key, &cm); err != nil {
		if apierrors.IsNotFound(err) {
			observe(backendConfigMap, "exists", nil)
			return false, nil
		}
		observe(backendConfigMap, "exists", err)
		return false, fmt.Errorf("state: failed to get configmap %s: %w", s.key, err)
	}
	observe(backendConfigMap, "exists", nil)
	_, ok := cm.Data[dataKey]
	return ok, nil
}

// Add inserts key into the ConfigMap, creating it on first use. Updates carry
// the observed resourceVersion and are retried on conflict.
func (s *ConfigMapStore) Add(ctx context.Context, key string) error {
	dataKey, err := configMapKey(key)
	if err != nil {
		return err
	}

	err = retry.RetryOnConflict(retry.DefaultRetry, func() error {
		var cm corev1.ConfigMap
		if err := s.client.Get(ctx, s.key, &cm); err != nil {
			if !apierrors.IsNotFound(err) {
				return err
			}
			cm = corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{
					Name:      s.key.Name,
					Namespace: s.key.Namespace,
					Labels:    map[string]string{IntegrationLabel: s.integration},
				},
				Data: map[string]string{dataKey: sentMarker()},
			}
			if err := s.client.Create(ctx, &cm); err != nil {
				if apierrors.IsAlreadyExists(err) {
					// Lost a creation race; surface as conflict so the update path runs.
					return apierrors.NewConflict(corev1.Resource("configmaps"), s.key.Name, err)
				}
				return err
			}
			return nil
		}

		if _, ok := cm.Data[dataKey]; ok {
			return fmt.Errorf("%w: %s in configmap %s", ErrKeyExists, dataKey, s.key)
		}
		if cm.Data == nil {
			cm.Data = map[string]string{}
		}
		cm.Data[dataKey] = sentMarker()
		return s.client.Update(ctx, &cm)
	})
	observe(backendConfigMap, "add", err)
	if err != nil {
		return fmt.Errorf("state: failed to add %s: %w", dataKey, err)
	}
	s.log.Debugw("Recorded state key", "key", dataKey, "configmap", s.key.String())
	return nil
}

// Close is a no-op for ConfigMapStore.
func (s *ConfigMapStore) Close() error {
	return nil
}
