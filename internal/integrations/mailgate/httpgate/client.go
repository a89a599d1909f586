package httpgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	sender  string
	httpc   *http.Client
}

func New(baseURL, sender string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	return &Client{
		baseURL: baseURL,
		sender:  sender,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendReq struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTMLBody  string `json:"htmlBody"`
	PlainBody string `json:"plainBody"`
}

type sendResp struct {
	DeliveryID string `json:"deliveryId"`
}

func (c *Client) Send(ctx context.Context, subject, htmlBody, textBody, recipient string) (string, error) {
	body, err := json.Marshal(sendReq{
		From:      c.sender,
		To:        recipient,
		Subject:   subject,
		HTMLBody:  htmlBody,
		PlainBody: textBody,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal send request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("mail gateway http %d", resp.StatusCode)
	}

	var r sendResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", errors.Wrap(err, "decode")
	}
	if r.DeliveryID == "" {
		return "", errors.New("mail gateway returned no delivery id")
	}
	return r.DeliveryID, nil
}
