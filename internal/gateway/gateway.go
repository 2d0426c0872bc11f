package gateway

import "context"

// Gateway is the outbound SMS delivery port. One call, one outbound request;
// retry policy lives with the consumer, not here.
type Gateway interface {
	Send(ctx context.Context, recipientPhone string, message string) (*SendResponse, error)
}

// SendResponse stores gateway call metadata for logging and diagnostics.
type SendResponse struct {
	StatusCode int
	MessageID  string
	Status     string
	Cost       string
}
