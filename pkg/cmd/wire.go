package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/email-sender/pkg/audit"
	"github.com/telekom/email-sender/pkg/config"
	"github.com/telekom/email-sender/pkg/emailsender"
	"github.com/telekom/email-sender/pkg/queries"
	"github.com/telekom/email-sender/pkg/state"
)

func newQueryClient(ctx context.Context, cfg config.GraphQL, timeout time.Duration) (*queries.Client, error) {
	opts := []queries.Option{queries.WithServer(cfg.Server), queries.WithTimeout(timeout)}
	switch {
	case cfg.OAuth2 != nil:
		opts = append(opts, queries.WithClientCredentials(ctx, cfg.OAuth2.TokenURL, cfg.OAuth2.ClientID, cfg.OAuth2.ClientSecret, cfg.OAuth2.Scopes))
	case cfg.Token != "":
		opts = append(opts, queries.WithToken(cfg.Token))
	case cfg.Username != "":
		opts = append(opts, queries.WithBasicAuth(cfg.Username, cfg.Password))
	}
	client, err := queries.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphql client: %w", err)
	}
	return client, nil
}

// newAuditSink always logs audit events and additionally publishes them to
// Kafka when configured.
func newAuditSink(cfg config.Audit, log *zap.SugaredLogger) (audit.Sink, error) {
	zlog := log.Desugar()
	sinks := []audit.Sink{audit.NewLogSink(zlog)}
	if k := cfg.Kafka; k != nil {
		writeTimeout, err := time.ParseDuration(k.WriteTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid audit.kafka.writeTimeout: %w", err)
		}
		sinkCfg := audit.KafkaSinkConfig{
			Name:             "kafka",
			Brokers:          k.Brokers,
			Topic:            k.Topic,
			WriteTimeout:     writeTimeout,
			CompressionCodec: k.Compression,
		}
		if k.TLS {
			if k.InsecureSkipVerify {
				log.Warn("InsecureSkipVerify is enabled for kafka TLS connection")
			}
			tlsCfg, err := kafkaTLSConfig(*k)
			if err != nil {
				return nil, err
			}
			sinkCfg.TLS = tlsCfg
		}
		if k.SASLMechanism != "" {
			sinkCfg.SASL = &audit.KafkaSASLConfig{
				Mechanism: k.SASLMechanism,
				Username:  k.SASLUsername,
				Password:  k.SASLPassword,
			}
		}
		kafkaSink, err := audit.NewKafkaSink(sinkCfg, zlog)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka audit sink: %w", err)
		}
		sinks = append(sinks, kafkaSink)
	}
	return audit.NewMultiSink(sinks, zlog), nil
}

// kafkaTLSConfig reads the PEM files referenced by k.
func kafkaTLSConfig(k config.Kafka) (*audit.KafkaTLSConfig, error) {
	tlsCfg := &audit.KafkaTLSConfig{Enabled: true, InsecureSkipVerify: k.InsecureSkipVerify}
	files := []struct {
		path string
		dst  *[]byte
		desc string
	}{
		{k.CAFile, &tlsCfg.CACert, "CA"},
		{k.ClientCertFile, &tlsCfg.ClientCert, "client certificate"},
		{k.ClientKeyFile, &tlsCfg.ClientKey, "client key"},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read kafka %s file: %w", f.desc, err)
		}
		*f.dst = data
	}
	return tlsCfg, nil
}

// newStateFactory opens the configured state backend. Settings are not needed
// by any backend; the S3 backend takes its region from the account inventory.
func newStateFactory(cfg config.State, log *zap.SugaredLogger) emailsender.StateFactory {
	return func(ctx context.Context, integration string, accounts []queries.AccountRef, _ queries.Settings) (emailsender.State, error) {
		return state.New(ctx, cfg, integration, accounts, log)
	}
}
