package queries

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyResponse = errors.New("graphql response carried no data")
	ErrNoSettings    = errors.New("no app-interface settings found")
)

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("graphql request failed (%d): %s", e.StatusCode, e.Message)
}

// GraphQLError is returned when the server answers with an errors array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql errors: " + strings.Join(e.Messages, "; ")
}
