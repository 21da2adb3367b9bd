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
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/telekom/email-sender/pkg/config"
	"github.com/telekom/email-sender/pkg/queries"
)

const backendS3 = "s3"

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps one object per key under state/<integration>/ in a bucket.
type S3Store struct {
	client      s3API
	bucket      string
	integration string
	log         *zap.SugaredLogger
}

// NewS3Store creates an S3Store. The region comes from cfg.Region or, when
// unset, from the default region of the account named cfg.Account.
func NewS3Store(cfg config.S3State, integration string, accounts []queries.AccountRef, log *zap.SugaredLogger) (*S3Store, error) {
	region, err := resolveRegion(cfg, accounts)
	if err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)
		},
	}

	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	log.Infow("Using S3 state store", "bucket", cfg.Bucket, "region", region, "account", cfg.Account)
	return newS3Store(s3.New(s3.Options{}, opts...), cfg.Bucket, integration, log), nil
}

func newS3Store(client s3API, bucket, integration string, log *zap.SugaredLogger) *S3Store {
	return &S3Store{
		client:      client,
		bucket:      bucket,
		integration: integration,
		log:         log,
	}
}

func resolveRegion(cfg config.S3State, accounts []queries.AccountRef) (string, error) {
	if cfg.Region != "" {
		return cfg.Region, nil
	}
	for _, account := range accounts {
		if account.Name != cfg.Account {
			continue
		}
		if account.ResourcesDefaultRegion == "" {
			return "", fmt.Errorf("state: account %q has no default region", cfg.Account)
		}
		return account.ResourcesDefaultRegion, nil
	}
	return "", fmt.Errorf("%w: %q", ErrAccountNotFound, cfg.Account)
}

// Exists reports whether the key object is present.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	objKey, err := objectKey(s.integration, key)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			observe(backendS3, "exists", nil)
			return false, nil
		}
		observe(backendS3, "exists", err)
		return false, fmt.Errorf("state: failed to check %s in %s: %w", objKey, s.bucket, err)
	}
	observe(backendS3, "exists", nil)
	return true, nil
}

// Add writes the key object. The write is conditional, so a concurrent writer
// of the same key fails with ErrKeyExists instead of overwriting.
func (s *S3Store) Add(ctx context.Context, key string) error {
	objKey, err := objectKey(s.integration, key)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objKey),
		Body:        strings.NewReader(sentMarker()),
		ContentType: aws.String("text/plain"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		observe(backendS3, "add", err)
		if isS3PreconditionFailed(err) {
			return fmt.Errorf("%w: %s in %s", ErrKeyExists, objKey, s.bucket)
		}
		return fmt.Errorf("state: failed to add %s to %s: %w", objKey, s.bucket, err)
	}
	observe(backendS3, "add", nil)
	s.log.Debugw("Recorded state key", "key", objKey, "bucket", s.bucket)
	return nil
}

// Close is a no-op for S3Store.
func (s *S3Store) Close() error {
	return nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

func isS3PreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
