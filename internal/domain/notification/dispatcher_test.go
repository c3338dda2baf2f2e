package notification_test

import (
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"notigate/internal/common"
	"notigate/internal/domain/notification"
	tmpl "notigate/internal/infra/template"
)

type fakeEmailProvider struct {
	calls   int
	lastMsg *notification.EmailMessage
	id      string
	err     error
}

func (f *fakeEmailProvider) Send(_ context.Context, msg *notification.EmailMessage) (string, error) {
	f.calls++
	f.lastMsg = msg
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeWorkflowProvider struct {
	calls     int
	lastEvent *notification.TriggerEvent
	result    *notification.TriggerResult
	err       error
}

func (f *fakeWorkflowProvider) Trigger(_ context.Context, event *notification.TriggerEvent) (*notification.TriggerResult, error) {
	f.calls++
	f.lastEvent = event
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, error) {
	return f.allowed, f.err
}

type dispatcherFixture struct {
	dispatcher *notification.Dispatcher
	email      *fakeEmailProvider
	workflow   *fakeWorkflowProvider
	tokens     *notification.TokenRegistry
}

func newFixture(t *testing.T, limiter notification.RecipientRateLimiter) *dispatcherFixture {
	t.Helper()

	engine, err := tmpl.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	emailProvider := &fakeEmailProvider{id: "email-1"}
	workflowProvider := &fakeWorkflowProvider{
		result: &notification.TriggerResult{TransactionID: "tx-1", Acknowledged: true},
	}
	tokens := notification.NewTokenRegistry()

	dispatcher := notification.NewDispatcher(
		notification.DispatcherConfig{
			FromAddress: "onboarding@resend.dev",
			Workflows: notification.WorkflowIDs{
				Email:        "user-email-notifications",
				DelayedEmail: "delayed-email-notifications",
				Push:         "expo-push-notification",
			},
		},
		engine,
		emailProvider,
		workflowProvider,
		tokens,
		limiter,
	)

	return &dispatcherFixture{
		dispatcher: dispatcher,
		email:      emailProvider,
		workflow:   workflowProvider,
		tokens:     tokens,
	}
}

func TestDispatchEmailMissingRecipient(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelEmailDirect,
		Subject: "Hello",
		Body:    "plain body",
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	var missing *common.MissingFieldsError
	if !errors.As(res.Err, &missing) {
		t.Fatalf("error = %v, want MissingFieldsError", res.Err)
	}
	if !reflect.DeepEqual(missing.Fields, []string{"email"}) {
		t.Fatalf("missing fields = %v, want [email]", missing.Fields)
	}
	if fx.email.calls != 0 || fx.workflow.calls != 0 {
		t.Fatal("no provider must be called on a missing-field failure")
	}
}

func TestDispatchPushDelayedAttachesDelayOverride(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel:     notification.ChannelPushDelayed,
		UserID:      "user-42",
		Title:       "Reminder",
		Body:        "Your trial ends soon",
		DeviceToken: "ExponentPushToken[abc123]",
		Delay:       &notification.Delay{Amount: 30, Unit: "seconds"},
	})

	if !res.Success {
		t.Fatalf("Dispatch() failed: %v", res.Err)
	}
	if fx.workflow.calls != 1 {
		t.Fatalf("workflow calls = %d, want 1", fx.workflow.calls)
	}

	event := fx.workflow.lastEvent
	if event.WorkflowID != "expo-push-notification" {
		t.Errorf("workflow id = %q, want expo-push-notification", event.WorkflowID)
	}
	if event.Delay == nil || event.Delay.Amount != 30 || event.Delay.Unit != "seconds" {
		t.Errorf("delay override = %+v, want {30 seconds}", event.Delay)
	}
	if event.DeviceToken != "ExponentPushToken[abc123]" {
		t.Errorf("device token = %q, want the request token", event.DeviceToken)
	}
	if res.ProviderReference != "tx-1" || !res.HasReference {
		t.Errorf("reference = %q (has=%v), want tx-1", res.ProviderReference, res.HasReference)
	}
}

func TestDispatchInvalidDelayUnit(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelPushDelayed,
		UserID:  "user-42",
		Title:   "Reminder",
		Body:    "Your trial ends soon",
		Delay:   &notification.Delay{Amount: 5, Unit: "fortnights"},
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	var delayErr *common.DelayError
	if !errors.As(res.Err, &delayErr) {
		t.Fatalf("error = %v, want DelayError", res.Err)
	}
	if fx.workflow.calls != 0 {
		t.Fatal("provider must not be called with an invalid delay unit")
	}
}

func TestDispatchPushDelayedWithoutDelay(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelPushDelayed,
		UserID:  "user-42",
		Title:   "Reminder",
		Body:    "Your trial ends soon",
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	var missing *common.MissingFieldsError
	if !errors.As(res.Err, &missing) {
		t.Fatalf("error = %v, want MissingFieldsError", res.Err)
	}
	if !reflect.DeepEqual(missing.Fields, []string{"delayAmount", "delayUnit"}) {
		t.Fatalf("missing fields = %v, want [delayAmount delayUnit]", missing.Fields)
	}
	if fx.workflow.calls != 0 {
		t.Fatal("provider must not be called without the mandatory delay")
	}
}

func TestDispatchUnknownTemplate(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel:      notification.ChannelEmailDirect,
		Email:        "ada@example.com",
		Subject:      "Hi",
		TemplateName: "goodbye",
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	var unknownErr *common.UnknownTemplateError
	if !errors.As(res.Err, &unknownErr) {
		t.Fatalf("error = %v, want UnknownTemplateError", res.Err)
	}
	wantValid := []string{"welcome", "confirmation", "newsletter"}
	if !reflect.DeepEqual(unknownErr.Valid, wantValid) {
		t.Fatalf("valid templates = %v, want %v", unknownErr.Valid, wantValid)
	}
	if fx.email.calls != 0 {
		t.Fatal("provider must not be called for an unknown template")
	}
}

func TestDispatchTemplateValidationFailure(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel:       notification.ChannelEmailDirect,
		Email:         "ada@example.com",
		Subject:       "Welcome!",
		TemplateName:  "welcome",
		TemplateProps: map[string]any{},
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	var validationErr *common.ValidationFailedError
	if !errors.As(res.Err, &validationErr) {
		t.Fatalf("error = %v, want ValidationFailedError", res.Err)
	}
	if len(validationErr.Violations) != 2 {
		t.Fatalf("violations = %v, want two entries", validationErr.Violations)
	}
	if fx.email.calls != 0 {
		t.Fatal("provider must not be called when validation fails")
	}
}

func TestDispatchDirectEmailRendersTemplate(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel:      notification.ChannelEmailDirect,
		Email:        "ada@example.com",
		Subject:      "Welcome!",
		TemplateName: "welcome",
		TemplateProps: map[string]any{
			"firstName": "Ada",
			"loginUrl":  "https://app.example.com/login",
		},
	})

	if !res.Success {
		t.Fatalf("Dispatch() failed: %v", res.Err)
	}
	if fx.email.calls != 1 {
		t.Fatalf("email calls = %d, want 1", fx.email.calls)
	}

	msg := fx.email.lastMsg
	if msg.From != "onboarding@resend.dev" {
		t.Errorf("from = %q, want configured default", msg.From)
	}
	if msg.To != "ada@example.com" {
		t.Errorf("to = %q", msg.To)
	}
	if !strings.Contains(msg.HTML, "Ada") || !strings.Contains(msg.Text, "Ada") {
		t.Error("rendered content missing from the provider message")
	}
	if res.ProviderReference != "email-1" || !res.HasReference {
		t.Errorf("reference = %q (has=%v), want email-1", res.ProviderReference, res.HasReference)
	}
}

func TestDispatchWorkflowEmailEncodesRenderedHTML(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel:      notification.ChannelEmailWorkflow,
		UserID:       "user-42",
		Email:        "ada@example.com",
		Subject:      "Welcome!",
		TemplateName: "welcome",
		TemplateProps: map[string]any{
			"firstName": "Ada",
			"loginUrl":  "https://app.example.com/login",
		},
	})

	if !res.Success {
		t.Fatalf("Dispatch() failed: %v", res.Err)
	}

	event := fx.workflow.lastEvent
	if event.WorkflowID != "user-email-notifications" {
		t.Errorf("workflow id = %q, want user-email-notifications", event.WorkflowID)
	}
	encoded, ok := event.Payload["content"].(string)
	if !ok {
		t.Fatalf("payload content is %T, want string", event.Payload["content"])
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("payload content is not base64: %v", err)
	}
	if !strings.Contains(string(decoded), "Ada") {
		t.Error("decoded payload html does not contain the first name")
	}
}

func TestDispatchWorkflowEmailDelayedPicksDelayedWorkflow(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelEmailWorkflow,
		UserID:  "user-42",
		Email:   "ada@example.com",
		Subject: "Later",
		Body:    "see you in an hour",
		Delay:   &notification.Delay{Amount: 1, Unit: "hours"},
	})

	if !res.Success {
		t.Fatalf("Dispatch() failed: %v", res.Err)
	}
	if fx.workflow.lastEvent.WorkflowID != "delayed-email-notifications" {
		t.Errorf("workflow id = %q, want delayed-email-notifications", fx.workflow.lastEvent.WorkflowID)
	}
}

func TestDispatchProviderErrorSurfaced(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.email.err = errors.New("connection refused")

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelEmailDirect,
		Email:   "ada@example.com",
		Subject: "Hi",
		Body:    "plain body",
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	var providerErr *common.ProviderError
	if !errors.As(res.Err, &providerErr) {
		t.Fatalf("error = %v, want ProviderError", res.Err)
	}
	if fx.email.calls != 1 {
		t.Fatalf("email calls = %d, want exactly 1 (no retries)", fx.email.calls)
	}
}

func TestDispatchNotConfiguredPassthrough(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.workflow.err = common.NewNotConfiguredError("novu")

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelPushImmediate,
		UserID:  "user-42",
		Title:   "Hi",
		Body:    "there",
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	var notConfigured *common.NotConfiguredError
	if !errors.As(res.Err, &notConfigured) {
		t.Fatalf("error = %v, want NotConfiguredError", res.Err)
	}
}

func TestDispatchSuccessWithoutReference(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.workflow.result = &notification.TriggerResult{Acknowledged: true}

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelPushImmediate,
		UserID:  "user-42",
		Title:   "Hi",
		Body:    "there",
	})

	if !res.Success {
		t.Fatalf("Dispatch() failed: %v", res.Err)
	}
	if res.HasReference || res.ProviderReference != "" {
		t.Errorf("reference = %q (has=%v), want none", res.ProviderReference, res.HasReference)
	}
}

func TestDispatchPushTokenRegistryFallback(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.tokens.Register("user-42", "ExponentPushToken[registered]")

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelPushImmediate,
		UserID:  "user-42",
		Title:   "Hi",
		Body:    "there",
	})

	if !res.Success {
		t.Fatalf("Dispatch() failed: %v", res.Err)
	}
	if fx.workflow.lastEvent.DeviceToken != "ExponentPushToken[registered]" {
		t.Errorf("device token = %q, want the registered fallback", fx.workflow.lastEvent.DeviceToken)
	}
}

func TestDispatchPushWithoutAnyToken(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.ChannelPushImmediate,
		UserID:  "user-99",
		Title:   "Hi",
		Body:    "there",
	})

	if !res.Success {
		t.Fatalf("Dispatch() failed: %v", res.Err)
	}
	if fx.workflow.lastEvent.DeviceToken != "" {
		t.Errorf("device token = %q, want empty so the provider resolves the subscriber", fx.workflow.lastEvent.DeviceToken)
	}
}

func TestDispatchRecipientRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("denied recipient is rejected before the provider", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t, &fakeLimiter{allowed: false})

		res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
			Channel: notification.ChannelEmailDirect,
			Email:   "ada@example.com",
			Subject: "Hi",
			Body:    "plain body",
		})

		if res.Success {
			t.Fatal("expected failure")
		}
		var rateLimited *common.RateLimitedError
		if !errors.As(res.Err, &rateLimited) {
			t.Fatalf("error = %v, want RateLimitedError", res.Err)
		}
		if fx.email.calls != 0 {
			t.Fatal("provider must not be called for a rate-limited recipient")
		}
	})

	t.Run("limiter backend failure fails open", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t, &fakeLimiter{err: errors.New("redis down")})

		res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
			Channel: notification.ChannelEmailDirect,
			Email:   "ada@example.com",
			Subject: "Hi",
			Body:    "plain body",
		})

		if !res.Success {
			t.Fatalf("Dispatch() failed: %v", res.Err)
		}
		if fx.email.calls != 1 {
			t.Fatalf("email calls = %d, want 1", fx.email.calls)
		}
	})
}

func TestDispatchUnsupportedChannel(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	res := fx.dispatcher.Dispatch(context.Background(), &notification.Request{
		Channel: notification.Channel("carrier-pigeon"),
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	var validationErr *common.ValidationFailedError
	if !errors.As(res.Err, &validationErr) {
		t.Fatalf("error = %v, want ValidationFailedError", res.Err)
	}
}
