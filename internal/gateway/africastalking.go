package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSendTimeout = 10 * time.Second

// Recipient status codes the provider reports for an accepted message.
const (
	recipientStatusSent   = 101
	recipientStatusQueued = 102
)

type smsResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			MessageID  string `json:"messageId"`
			Cost       string `json:"cost"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// AfricasTalkingGateway sends SMS through the Africa's Talking bulk messaging API.
type AfricasTalkingGateway struct {
	client   *resty.Client
	endpoint string
	username string
	apiKey   string
	senderID string
}

func NewAfricasTalkingGateway(endpoint, username, apiKey, senderID string, timeout time.Duration) (*AfricasTalkingGateway, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewAfricasTalkingGatewayWithClient(endpoint, username, apiKey, senderID, client)
}

func NewAfricasTalkingGatewayWithClient(endpoint, username, apiKey, senderID string, client *resty.Client) (*AfricasTalkingGateway, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("gateway username is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gateway api key is required")
	}
	if strings.TrimSpace(senderID) == "" {
		return nil, fmt.Errorf("gateway sender id is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &AfricasTalkingGateway{
		client:   client,
		endpoint: trimmedEndpoint,
		username: username,
		apiKey:   apiKey,
		senderID: senderID,
	}, nil
}

// Send performs one synchronous provider call. Any transport or provider
// failure comes back as a classified *GatewayError; nothing here panics or
// retries.
func (g *AfricasTalkingGateway) Send(ctx context.Context, recipientPhone string, message string) (*SendResponse, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("gateway is not initialized")
	}
	if strings.TrimSpace(recipientPhone) == "" {
		return nil, &GatewayError{Message: "recipient phone is required", Transient: false}
	}
	if strings.TrimSpace(message) == "" {
		return nil, &GatewayError{Message: "message is required", Transient: false}
	}

	var parsed smsResponse
	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("apiKey", g.apiKey).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{
			"username": g.username,
			"to":       recipientPhone,
			"message":  message,
			"from":     g.senderID,
		}).
		SetResult(&parsed).
		Post(g.endpoint)
	if err != nil {
		return nil, &GatewayError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &GatewayError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &GatewayError{
			StatusCode: statusCode,
			Message:    gatewayErrorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	recipients := parsed.SMSMessageData.Recipients
	if len(recipients) == 0 {
		return nil, &GatewayError{
			StatusCode: statusCode,
			Message:    gatewayErrorMessage(statusCode, parsed.SMSMessageData.Message),
			Transient:  false,
		}
	}

	recipient := recipients[0]
	if recipient.StatusCode != recipientStatusSent && recipient.StatusCode != recipientStatusQueued {
		// Provider-side recipient validation failure: retrying the same
		// recipient yields the same answer.
		return nil, &GatewayError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("recipient rejected: %s (code %d)", recipient.Status, recipient.StatusCode),
			Transient:  false,
		}
	}

	return &SendResponse{
		StatusCode: statusCode,
		MessageID:  recipient.MessageID,
		Status:     recipient.Status,
		Cost:       recipient.Cost,
	}, nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
