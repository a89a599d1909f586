package fake

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient логирует отправки в память; для демо без внешнего шлюза.
type FakeClient struct {
	mu   sync.Mutex
	n    int
	sent []Sent
}

type Sent struct {
	Subject   string
	Recipient string
}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Send(ctx context.Context, subject, htmlBody, textBody, recipient string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	f.sent = append(f.sent, Sent{Subject: subject, Recipient: recipient})
	return fmt.Sprintf("fake-%d", f.n), nil
}

func (f *FakeClient) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.sent))
	copy(out, f.sent)
	return out
}
