package httplookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/integrations/podlookup"
)

// Client опрашивает production-schedule endpoint конкретного pod'а.
// Привязка pod -> URL статическая, из конфига.
type Client struct {
	endpoints map[string]string
	httpc     *http.Client
}

func New(endpoints map[string]string) *Client {
	return &Client{
		endpoints: endpoints,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type nextCoreResp struct {
	Extensions struct {
		CoreID            string `json:"CoreId"`
		FinishedProductID string `json:"FinishedProductId"`
	} `json:"extensions"`
}

func (c *Client) GetNextCore(ctx context.Context, podID string) (podlookup.Result, error) {
	u, ok := c.endpoints[podID]
	if !ok {
		return podlookup.Result{}, podlookup.ErrUnknownPod
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return podlookup.Result{}, errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return podlookup.Result{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return podlookup.Result{}, fmt.Errorf("production schedule http %d", resp.StatusCode)
	}

	var r nextCoreResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return podlookup.Result{}, errors.Wrap(err, "decode")
	}
	if r.Extensions.CoreID == "" || r.Extensions.FinishedProductID == "" {
		return podlookup.Result{}, errors.New("response is missing CoreId or FinishedProductId")
	}

	return podlookup.Result{
		CoreID:            r.Extensions.CoreID,
		FinishedProductID: r.Extensions.FinishedProductID,
	}, nil
}
