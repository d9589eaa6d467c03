package ports

import (
	"context"

	"github.com/aretw0/certwizard/pkg/domain"
)

// Transport issues the single request of a step and waits for its completion.
type Transport interface {
	// Do returns the completed response for any status code.
	// Errors are reserved for failures to complete the exchange.
	Do(ctx context.Context, req domain.Request) (domain.Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req domain.Request) (domain.Response, error)

func (f TransportFunc) Do(ctx context.Context, req domain.Request) (domain.Response, error) {
	return f(ctx, req)
}
