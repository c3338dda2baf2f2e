package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"notigate/internal/common"
	"notigate/internal/domain/notification"
)

var _ notification.EmailProvider = (*ResendProvider)(nil)

const defaultResendURL = "https://api.resend.com/emails"

// ResendProvider sends emails using the Resend API.
type ResendProvider struct {
	apiKey     string
	fromName   string
	endpoint   string
	httpClient *http.Client
}

// NewResendProvider creates a new Resend email provider. An empty API
// key is allowed at construction; Send then fails fast with a
// NotConfiguredError before any network call.
func NewResendProvider(apiKey, fromName string) *ResendProvider {
	return &ResendProvider{
		apiKey:     apiKey,
		fromName:   fromName,
		endpoint:   defaultResendURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewResendProviderWithEndpoint overrides the API endpoint, for tests.
func NewResendProviderWithEndpoint(apiKey, fromName, endpoint string) *ResendProvider {
	p := NewResendProvider(apiKey, fromName)
	p.endpoint = endpoint
	return p
}

// Configured reports whether the provider has credentials.
func (p *ResendProvider) Configured() bool {
	return p.apiKey != ""
}

// Send delivers an email via the Resend API and returns the email ID.
func (p *ResendProvider) Send(ctx context.Context, msg *notification.EmailMessage) (string, error) {
	if !p.Configured() {
		return "", common.NewNotConfiguredError("resend")
	}

	from := msg.From
	if p.fromName != "" {
		from = fmt.Sprintf("%s <%s>", p.fromName, msg.From)
	}

	payload := map[string]any{
		"from":    from,
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"html":    msg.HTML,
	}

	// Include plain-text version if available
	if msg.Text != "" {
		payload["text"] = msg.Text
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", common.NewProviderError("resend", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message    string `json:"message"`
			StatusCode int    `json:"statusCode"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		message := errResp.Message
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", common.NewProviderError("resend", message)
	}

	var successResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &successResp); err != nil {
		return "", fmt.Errorf("parsing resend response: %w", err)
	}

	return successResp.ID, nil
}
