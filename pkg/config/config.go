package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultConfigPath = "./config.yaml"

	StateBackendS3        = "s3"
	StateBackendRedis     = "redis"
	StateBackendConfigMap = "configmap"

	MailProviderSMTP   = "smtp"
	MailProviderResend = "resend"
)

type GraphQL struct {
	Server   string  `yaml:"server"`
	Token    string  `yaml:"token"`
	Username string  `yaml:"username"`
	Password string  `yaml:"password"`
	OAuth2   *OAuth2 `yaml:"oauth2"`
	// Timeout is a duration string (e.g. "30s").
	Timeout string `yaml:"timeout"`
}

type OAuth2 struct {
	TokenURL     string   `yaml:"tokenURL"`
	ClientID     string   `yaml:"clientID"`
	ClientSecret string   `yaml:"clientSecret"`
	Scopes       []string `yaml:"scopes"`
}

type State struct {
	// Backend is one of "s3", "redis" or "configmap".
	Backend   string         `yaml:"backend"`
	S3        S3State        `yaml:"s3"`
	Redis     RedisState     `yaml:"redis"`
	ConfigMap ConfigMapState `yaml:"configMap"`
}

type S3State struct {
	Bucket string `yaml:"bucket"`
	// Account names the AWS account (from the account inventory) owning the
	// bucket. Its default region is used unless Region is set.
	Account   string `yaml:"account"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"pathStyle"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

type RedisState struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type ConfigMapState struct {
	Namespace string `yaml:"namespace"`
	// Name of the ConfigMap; defaults to "<integration>-state".
	Name string `yaml:"name"`
}

type Mail struct {
	// Provider is one of "smtp" or "resend".
	Provider      string `yaml:"provider"`
	SenderAddress string `yaml:"senderAddress"`
	SenderName    string `yaml:"senderName"`
	SMTP          SMTP   `yaml:"smtp"`
	Resend        Resend `yaml:"resend"`
}

type SMTP struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

type Resend struct {
	APIKey string `yaml:"apiKey"`
}

type Audit struct {
	Kafka *Kafka `yaml:"kafka"`
}

type Kafka struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	SASLMechanism string   `yaml:"saslMechanism"`
	SASLUsername  string   `yaml:"saslUsername"`
	SASLPassword  string   `yaml:"saslPassword"`
	TLS           bool     `yaml:"tls"`
	CAFile        string   `yaml:"caFile"`
	// ClientCertFile and ClientKeyFile enable mutual TLS when both are set.
	ClientCertFile     string `yaml:"clientCertFile"`
	ClientKeyFile      string `yaml:"clientKeyFile"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	Compression   string   `yaml:"compression"`
	WriteTimeout  string   `yaml:"writeTimeout"`
}

type Metrics struct {
	PushgatewayURL string `yaml:"pushgatewayURL"`
	Job            string `yaml:"job"`
}

type Config struct {
	GraphQL GraphQL `yaml:"graphql"`
	State   State   `yaml:"state"`
	Mail    Mail    `yaml:"mail"`
	Audit   Audit   `yaml:"audit"`
	Metrics Metrics `yaml:"metrics"`
}

// Load loads the email-sender configuration from a file path.
// If configPath is empty, defaults to "./config.yaml".
// Environment overrides are applied after parsing.
func Load(configPath string) (Config, error) {
	path := configPath
	if path == "" {
		path = DefaultConfigPath
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open email-sender config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
	}
	config.ApplyEnv()
	return config, nil
}

// ApplyEnv overrides secrets and endpoints from the environment so they do not
// have to live in the config file.
func (c *Config) ApplyEnv() {
	c.GraphQL.Server = getEnvString("EMAIL_SENDER_GRAPHQL_SERVER", c.GraphQL.Server)
	c.GraphQL.Token = getEnvString("EMAIL_SENDER_GRAPHQL_TOKEN", c.GraphQL.Token)
	c.GraphQL.Password = getEnvString("EMAIL_SENDER_GRAPHQL_PASSWORD", c.GraphQL.Password)
	if c.GraphQL.OAuth2 != nil {
		c.GraphQL.OAuth2.ClientSecret = getEnvString("EMAIL_SENDER_OAUTH2_CLIENT_SECRET", c.GraphQL.OAuth2.ClientSecret)
	}

	c.State.S3.AccessKey = getEnvString("AWS_ACCESS_KEY_ID", c.State.S3.AccessKey)
	c.State.S3.SecretKey = getEnvString("AWS_SECRET_ACCESS_KEY", c.State.S3.SecretKey)
	c.State.Redis.URL = getEnvString("EMAIL_SENDER_REDIS_URL", c.State.Redis.URL)
	c.State.ConfigMap.Namespace = getEnvString("POD_NAMESPACE", c.State.ConfigMap.Namespace)

	c.Mail.SMTP.Password = getEnvString("EMAIL_SENDER_SMTP_PASSWORD", c.Mail.SMTP.Password)
	c.Mail.SMTP.InsecureSkipVerify = getEnvBool("EMAIL_SENDER_SMTP_INSECURE_SKIP_VERIFY", c.Mail.SMTP.InsecureSkipVerify)
	c.Mail.Resend.APIKey = getEnvString("EMAIL_SENDER_RESEND_API_KEY", c.Mail.Resend.APIKey)

	c.Metrics.PushgatewayURL = getEnvString("EMAIL_SENDER_PUSHGATEWAY_URL", c.Metrics.PushgatewayURL)
}

// Defaults fills in unset optional values.
func (c *Config) Defaults() {
	if c.GraphQL.Timeout == "" {
		c.GraphQL.Timeout = "30s"
	}
	if c.State.Backend == "" {
		c.State.Backend = StateBackendS3
	}
	if c.State.ConfigMap.Namespace == "" {
		c.State.ConfigMap.Namespace = "default"
	}
	if c.Mail.Provider == "" {
		c.Mail.Provider = MailProviderSMTP
	}
	if c.Mail.SMTP.Port == 0 {
		c.Mail.SMTP.Port = 587
	}
	if c.Mail.SenderName == "" {
		c.Mail.SenderName = "App Interface automation"
	}
	if c.Audit.Kafka != nil {
		if c.Audit.Kafka.WriteTimeout == "" {
			c.Audit.Kafka.WriteTimeout = "10s"
		}
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "email-sender"
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GraphQL.Server) == "" {
		return errors.New("graphql.server is required")
	}
	if _, err := time.ParseDuration(c.GraphQL.Timeout); err != nil {
		return fmt.Errorf("invalid graphql.timeout %q: %w", c.GraphQL.Timeout, err)
	}
	if o := c.GraphQL.OAuth2; o != nil && (o.TokenURL == "" || o.ClientID == "") {
		return errors.New("graphql.oauth2 requires tokenURL and clientID")
	}

	switch c.State.Backend {
	case StateBackendS3:
		if c.State.S3.Bucket == "" {
			return errors.New("state.s3.bucket is required")
		}
		if c.State.S3.Account == "" && c.State.S3.Region == "" {
			return errors.New("state.s3 requires an account or a region")
		}
		if c.State.S3.AccessKey == "" || c.State.S3.SecretKey == "" {
			return errors.New("state.s3 requires accessKey and secretKey")
		}
	case StateBackendRedis:
		if c.State.Redis.URL == "" {
			return errors.New("state.redis.url is required")
		}
	case StateBackendConfigMap:
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	switch c.Mail.Provider {
	case MailProviderSMTP:
		if c.Mail.SMTP.Host == "" {
			return errors.New("mail.smtp.host is required")
		}
		if c.Mail.SMTP.Port <= 0 || c.Mail.SMTP.Port > 65535 {
			return fmt.Errorf("invalid mail.smtp.port %d", c.Mail.SMTP.Port)
		}
	case MailProviderResend:
		if c.Mail.Resend.APIKey == "" {
			return errors.New("mail.resend.apiKey is required")
		}
		if c.Mail.SenderAddress == "" {
			return errors.New("mail.senderAddress is required for resend")
		}
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}

	if k := c.Audit.Kafka; k != nil {
		if len(k.Brokers) == 0 || k.Topic == "" {
			return errors.New("audit.kafka requires brokers and topic")
		}
		if (k.ClientCertFile == "") != (k.ClientKeyFile == "") {
			return errors.New("audit.kafka requires clientCertFile and clientKeyFile together")
		}
		if !k.TLS && (k.CAFile != "" || k.ClientCertFile != "" || k.InsecureSkipVerify) {
			return errors.New("audit.kafka TLS settings require tls: true")
		}
		if _, err := time.ParseDuration(k.WriteTimeout); err != nil {
			return fmt.Errorf("invalid audit.kafka.writeTimeout %q: %w", k.WriteTimeout, err)
		}
	}
	return nil
}

// GraphQLTimeout returns the parsed query timeout. Call after Validate.
func (c *Config) GraphQLTimeout() time.Duration {
	d, _ := time.ParseDuration(c.GraphQL.Timeout)
	return d
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}
