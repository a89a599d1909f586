package mailgate

import "context"

// Client is the outbound notification gateway. Send returns the gateway's
// delivery id for the accepted message.
type Client interface {
	Send(ctx context.Context, subject, htmlBody, textBody, recipient string) (string, error)
}
