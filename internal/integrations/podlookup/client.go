package podlookup

import (
	"context"

	"github.com/pkg/errors"
)

// ErrUnknownPod means no resolution endpoint is configured for the pod.
// Терминально: ретраи не помогут, привязка статическая.
var ErrUnknownPod = errors.New("podlookup: unknown pod")

type Result struct {
	CoreID            string
	FinishedProductID string
}

// Client resolves which core the production schedule assigns to a pod next.
type Client interface {
	GetNextCore(ctx context.Context, podID string) (Result, error)
}
