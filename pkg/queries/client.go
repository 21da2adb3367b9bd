package queries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultTimeout = 30 * time.Second

// Client queries the app-interface GraphQL endpoint.
type Client struct {
	endpoint string
	rest     *resty.Client
}

type Option func(*Client) error

// New returns a Client. WithServer is required.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		rest: resty.New().
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "email-sender"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.endpoint == "" {
		return nil, errors.New("graphql server is required")
	}
	return c, nil
}

func WithServer(server string) Option {
	return func(c *Client) error {
		if server == "" {
			return errors.New("graphql server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid graphql server: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid graphql server %q: scheme and host are required", server)
		}
		c.endpoint = parsed.String()
		return nil
	}
}

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) error {
		if token != "" {
			c.rest.SetAuthToken(token)
		}
		return nil
	}
}

func WithBasicAuth(username, password string) Option {
	return func(c *Client) error {
		if username != "" {
			c.rest.SetBasicAuth(username, password)
		}
		return nil
	}
}

// WithClientCredentials authenticates every request with an OAuth2 token
// obtained through the client-credentials grant.
func WithClientCredentials(ctx context.Context, tokenURL, clientID, clientSecret string, scopes []string) Option {
	return func(c *Client) error {
		if tokenURL == "" || clientID == "" {
			return errors.New("oauth2 token url and client id are required")
		}
		cc := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		}
		c.rest.SetTransport(&oauth2.Transport{
			Source: cc.TokenSource(ctx),
			Base:   http.DefaultTransport,
		})
		return nil
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout > 0 {
			c.rest.SetTimeout(timeout)
		}
		return nil
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query runs a GraphQL query and decodes the response data into out.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	var result graphQLResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(graphQLRequest{Query: query, Variables: variables}).
		SetResult(&result).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	if resp.IsError() {
		msg := strings.TrimSpace(resp.String())
		if msg == "" {
			msg = resp.Status()
		}
		return &HTTPError{StatusCode: resp.StatusCode(), Message: msg}
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Message)
		}
		return &GraphQLError{Messages: msgs}
	}
	if out == nil {
		return nil
	}
	if len(result.Data) == 0 || string(result.Data) == "null" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to decode graphql data: %w", err)
	}
	return nil
}
