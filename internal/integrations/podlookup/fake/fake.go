package fake

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/coolrevive/corefulfill/internal/integrations/podlookup"
)

// FakeClient — детерминированная заглушка production schedule для демо и
// локального запуска: один и тот же pod всегда получает одно и то же ядро.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) GetNextCore(ctx context.Context, podID string) (podlookup.Result, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(podID))
	v := h.Sum32() % 1000

	return podlookup.Result{
		CoreID:            fmt.Sprintf("C%03d", v),
		FinishedProductID: fmt.Sprintf("F%03d", v),
	}, nil
}
