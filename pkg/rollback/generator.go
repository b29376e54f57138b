// Package rollback defines the contract for producing an undo script for a
// statement, along with implementations backed by hosted language models.
package rollback

import (
	"context"
	"errors"
	"fmt"

	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

var (
	// ErrGeneration is the root of every rollback failure
	ErrGeneration = errors.New("rollback generation failed")

	// ErrMalformedResponse means the generator answered with something that is not SQL
	ErrMalformedResponse = fmt.Errorf("%w: response does not contain a SQL script", ErrGeneration)

	// ErrNotConfigured means no provider is available
	ErrNotConfigured = errors.New("no rollback generator configured")
)

// Request is what a generator needs to know about the statement
type Request struct {
	SQL    string                  `json:"sql"`
	Type   sqlparser.StatementType `json:"statement_type"`
	Tables []string                `json:"affected_tables"`
}

// NewRequest builds a request from a parsed statement
func NewRequest(impact *sqlparser.Impact) Request {
	return Request{
		SQL:    impact.SQL,
		Type:   impact.Type,
		Tables: impact.Tables(),
	}
}

// Generator produces an idempotent script that undoes a statement.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ProviderError describes a failed call to a hosted provider
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes every ProviderError match ErrGeneration
func (e *ProviderError) Is(target error) bool {
	return target == ErrGeneration
}

// Generate runs g and checks that the answer is a usable SQL script. Panics
// in g are returned as errors.
func Generate(ctx context.Context, g Generator, req Request) (script string, err error) {
	if g == nil {
		return "", ErrNotConfigured
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: generator panicked: %v", ErrGeneration, rec)
		}
	}()

	raw, err := g.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return ExtractSQL(raw)
}
