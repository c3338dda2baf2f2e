package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"notigate/internal/common"
	"notigate/internal/domain/notification"
)

var _ notification.WorkflowProvider = (*NovuProvider)(nil)

const (
	defaultNovuURL     = "https://api.novu.co"
	defaultNovuTimeout = 10 * time.Second

	// expoProviderID is the channel credential slot used for
	// just-in-time device token registration.
	expoProviderID = "expo"
)

type triggerCredentials struct {
	DeviceTokens []string `json:"deviceTokens"`
}

type triggerChannel struct {
	ProviderID  string             `json:"providerId"`
	Credentials triggerCredentials `json:"credentials"`
}

type triggerTo struct {
	SubscriberID string           `json:"subscriberId"`
	Email        string           `json:"email,omitempty"`
	Channels     []triggerChannel `json:"channels,omitempty"`
}

type delayOverride struct {
	Amount int    `json:"amount"`
	Unit   string `json:"unit"`
}

type triggerOverrides struct {
	Delay *delayOverride `json:"delay,omitempty"`
}

type triggerRequest struct {
	Name      string            `json:"name"`
	To        triggerTo         `json:"to"`
	Payload   map[string]any    `json:"payload"`
	Overrides *triggerOverrides `json:"overrides,omitempty"`
}

type triggerResponse struct {
	Data struct {
		TransactionID string `json:"transactionId"`
		Acknowledged  bool   `json:"acknowledged"`
	} `json:"data"`
}

type triggerErrorResponse struct {
	Message any `json:"message"`
}

// NovuProvider triggers Novu delivery workflows. It covers push
// notifications and the legacy workflow-routed email path.
type NovuProvider struct {
	client    *resty.Client
	secretKey string
}

// NewNovuProvider creates a new Novu workflow provider. An empty base
// URL falls back to the hosted API; an empty secret key is allowed and
// makes Trigger fail fast with NotConfiguredError.
func NewNovuProvider(secretKey, baseURL string) *NovuProvider {
	client := resty.New()
	client.SetTimeout(defaultNovuTimeout)
	client.SetRetryCount(0)
	return newNovuProvider(secretKey, baseURL, client)
}

// NewNovuProviderWithClient injects a resty client, for tests.
func NewNovuProviderWithClient(secretKey, baseURL string, client *resty.Client) *NovuProvider {
	return newNovuProvider(secretKey, baseURL, client)
}

func newNovuProvider(secretKey, baseURL string, client *resty.Client) *NovuProvider {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultNovuURL
	}
	client.SetBaseURL(base)
	return &NovuProvider{client: client, secretKey: secretKey}
}

// Configured reports whether the provider has credentials.
func (p *NovuProvider) Configured() bool {
	return p.secretKey != ""
}

// Trigger executes a named workflow for a subscriber. A supplied device
// token rides along as a one-shot channel credential override; a delay
// becomes a provider-honored scheduling override.
func (p *NovuProvider) Trigger(ctx context.Context, event *notification.TriggerEvent) (*notification.TriggerResult, error) {
	if !p.Configured() {
		return nil, common.NewNotConfiguredError("novu")
	}
	if event.WorkflowID == "" {
		return nil, fmt.Errorf("workflow id is required")
	}

	body := triggerRequest{
		Name: event.WorkflowID,
		To: triggerTo{
			SubscriberID: event.SubscriberID,
			Email:        event.Email,
		},
		Payload: event.Payload,
	}
	if body.Payload == nil {
		body.Payload = map[string]any{}
	}
	if event.DeviceToken != "" {
		body.To.Channels = []triggerChannel{{
			ProviderID:  expoProviderID,
			Credentials: triggerCredentials{DeviceTokens: []string{event.DeviceToken}},
		}}
	}
	if event.Delay != nil {
		body.Overrides = &triggerOverrides{
			Delay: &delayOverride{Amount: event.Delay.Amount, Unit: event.Delay.Unit},
		}
	}

	var out triggerResponse
	var errOut triggerErrorResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "ApiKey "+p.secretKey).
		SetBody(body).
		SetResult(&out).
		SetError(&errOut).
		Post("/v1/events/trigger")
	if err != nil {
		return nil, common.NewProviderError("novu", err.Error())
	}

	if resp.IsError() {
		return nil, common.NewProviderError("novu", errorMessage(resp.StatusCode(), errOut))
	}

	return &notification.TriggerResult{
		TransactionID: out.Data.TransactionID,
		Acknowledged:  out.Data.Acknowledged,
	}, nil
}

// errorMessage flattens the API's string-or-array message field.
func errorMessage(statusCode int, errOut triggerErrorResponse) string {
	switch msg := errOut.Message.(type) {
	case string:
		if msg != "" {
			return msg
		}
	case []any:
		parts := make([]string, 0, len(msg))
		for _, m := range msg {
			if s, ok := m.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return fmt.Sprintf("status %d", statusCode)
}
