package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
graphql:
  server: https://qontract.example.com/graphql
  token: file-token
state:
  backend: s3
  s3:
    bucket: app-interface-state
    account: app-sre
mail:
  provider: smtp
  senderAddress: noreply@example.com
  smtp:
    host: smtp.example.com
    user: bot
audit:
  kafka:
    brokers: ["kafka-1:9092"]
    topic: email-audit
metrics:
  pushgatewayURL: http://pushgateway:9091
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://qontract.example.com/graphql", cfg.GraphQL.Server)
	assert.Equal(t, "file-token", cfg.GraphQL.Token)
	assert.Equal(t, StateBackendS3, cfg.State.Backend)
	assert.Equal(t, "app-interface-state", cfg.State.S3.Bucket)
	assert.Equal(t, "app-sre", cfg.State.S3.Account)
	assert.Equal(t, "smtp.example.com", cfg.Mail.SMTP.Host)
	require.NotNil(t, cfg.Audit.Kafka)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Audit.Kafka.Brokers)
	assert.Equal(t, "http://pushgateway:9091", cfg.Metrics.PushgatewayURL)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "graphql: [not, a, map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error unmarshaling YAML")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EMAIL_SENDER_GRAPHQL_TOKEN", "env-token")
	t.Setenv("EMAIL_SENDER_SMTP_PASSWORD", "smtp-secret")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("EMAIL_SENDER_SMTP_INSECURE_SKIP_VERIFY", "true")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.GraphQL.Token)
	assert.Equal(t, "smtp-secret", cfg.Mail.SMTP.Password)
	assert.Equal(t, "AKIA", cfg.State.S3.AccessKey)
	assert.Equal(t, "secret", cfg.State.S3.SecretKey)
	assert.True(t, cfg.Mail.SMTP.InsecureSkipVerify)
}

func TestDefaults(t *testing.T) {
	var cfg Config
	// Zero value config should be secure: insecure skip flags must be false
	assert.False(t, cfg.Mail.SMTP.InsecureSkipVerify)

	cfg.Defaults()
	assert.Equal(t, StateBackendS3, cfg.State.Backend)
	assert.Equal(t, MailProviderSMTP, cfg.Mail.Provider)
	assert.Equal(t, 587, cfg.Mail.SMTP.Port)
	assert.Equal(t, "default", cfg.State.ConfigMap.Namespace)
	assert.Equal(t, "email-sender", cfg.Metrics.Job)
	assert.Equal(t, 30*time.Second, cfg.GraphQLTimeout())
	assert.Nil(t, cfg.Audit.Kafka)
}

func validConfig() Config {
	cfg := Config{
		GraphQL: GraphQL{Server: "https://qontract.example.com/graphql"},
		State: State{
			Backend: StateBackendS3,
			S3:      S3State{Bucket: "state", Account: "app-sre", AccessKey: "a", SecretKey: "s"},
		},
		Mail: Mail{
			Provider: MailProviderSMTP,
			SMTP:     SMTP{Host: "smtp.example.com"},
		},
	}
	cfg.Defaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing server",
			mutate:  func(c *Config) { c.GraphQL.Server = "" },
			wantErr: "graphql.server",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.GraphQL.Timeout = "soon" },
			wantErr: "graphql.timeout",
		},
		{
			name:    "incomplete oauth2",
			mutate:  func(c *Config) { c.GraphQL.OAuth2 = &OAuth2{ClientID: "id"} },
			wantErr: "oauth2",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.State.Backend = "etcd" },
			wantErr: "unknown state backend",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.State.S3.Bucket = "" },
			wantErr: "bucket",
		},
		{
			name:    "s3 without account or region",
			mutate:  func(c *Config) { c.State.S3.Account = "" },
			wantErr: "account or a region",
		},
		{
			name:    "s3 without credentials",
			mutate:  func(c *Config) { c.State.S3.SecretKey = "" },
			wantErr: "secretKey",
		},
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.State.Backend = StateBackendRedis },
			wantErr: "state.redis.url",
		},
		{
			name:   "configmap",
			mutate: func(c *Config) { c.State.Backend = StateBackendConfigMap },
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Mail.Provider = "pigeon" },
			wantErr: "unknown mail provider",
		},
		{
			name:    "smtp without host",
			mutate:  func(c *Config) { c.Mail.SMTP.Host = "" },
			wantErr: "mail.smtp.host",
		},
		{
			name:    "smtp port out of range",
			mutate:  func(c *Config) { c.Mail.SMTP.Port = 70000 },
			wantErr: "mail.smtp.port",
		},
		{
			name: "resend without key",
			mutate: func(c *Config) {
				c.Mail.Provider = MailProviderResend
				c.Mail.SenderAddress = "noreply@example.com"
			},
			wantErr: "apiKey",
		},
		{
			name: "resend without sender",
			mutate: func(c *Config) {
				c.Mail.Provider = MailProviderResend
				c.Mail.Resend.APIKey = "re_123"
			},
			wantErr: "senderAddress",
		},
		{
			name:    "kafka without topic",
			mutate:  func(c *Config) { c.Audit.Kafka = &Kafka{Brokers: []string{"k:9092"}, WriteTimeout: "1s"} },
			wantErr: "audit.kafka",
		},
		{
			name: "kafka client cert without key",
			mutate: func(c *Config) {
				c.Audit.Kafka = &Kafka{Brokers: []string{"k:9092"}, Topic: "audit", WriteTimeout: "1s", TLS: true, ClientCertFile: "/etc/kafka/tls.crt"}
			},
			wantErr: "clientCertFile and clientKeyFile",
		},
		{
			name: "kafka tls files without tls",
			mutate: func(c *Config) {
				c.Audit.Kafka = &Kafka{Brokers: []string{"k:9092"}, Topic: "audit", WriteTimeout: "1s", CAFile: "/etc/kafka/ca.crt"}
			},
			wantErr: "tls: true",
		},
		{
			name: "kafka mtls",
			mutate: func(c *Config) {
				c.Audit.Kafka = &Kafka{
					Brokers: []string{"k:9092"}, Topic: "audit", WriteTimeout: "1s", TLS: true,
					ClientCertFile: "/etc/kafka/tls.crt", ClientKeyFile: "/etc/kafka/tls.key",
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
