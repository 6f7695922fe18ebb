package core

import (
	"context"

	"github.com/Bharath8080/voiced/pkg/core/types"
)

// ModelClient is the language model contract. Complete performs one
// inference call and honors ctx cancellation. Implementations return
// *Error with ErrorKindModelInference on provider failure.
type ModelClient interface {
	Name() string
	Complete(ctx context.Context, req *types.ModelRequest) (*types.ModelResponse, error)
}
