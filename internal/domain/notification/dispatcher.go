package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"notigate/internal/common"
	"notigate/internal/observability"
)

// WorkflowIDs names the provider-side delivery pipelines.
type WorkflowIDs struct {
	Email        string
	DelayedEmail string
	Push         string
}

// DispatcherConfig holds the static settings injected at construction.
type DispatcherConfig struct {
	FromAddress string
	Workflows   WorkflowIDs
}

// Dispatcher routes a notification request to the correct provider:
// direct email for templated/literal email-direct requests, workflow
// trigger for push and legacy email routing. All providers are explicit
// dependencies so tests can substitute fakes.
//
// A request either fully reaches exactly one provider call or none;
// every failure mode before that point short-circuits with a typed
// error and no network activity.
type Dispatcher struct {
	cfg      DispatcherConfig
	renderer TemplateRenderer
	email    EmailProvider
	workflow WorkflowProvider
	tokens   *TokenRegistry
	limiter  RecipientRateLimiter
}

// NewDispatcher creates a new Dispatcher. The limiter is optional; a nil
// limiter disables per-recipient rate checks.
func NewDispatcher(
	cfg DispatcherConfig,
	renderer TemplateRenderer,
	email EmailProvider,
	workflow WorkflowProvider,
	tokens *TokenRegistry,
	limiter RecipientRateLimiter,
) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		renderer: renderer,
		email:    email,
		workflow: workflow,
		tokens:   tokens,
		limiter:  limiter,
	}
}

// Dispatch resolves the request to a single provider call and returns a
// normalized Result. Errors are never retried here; retry, if any, is
// the caller's responsibility.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) Result {
	res := d.dispatch(ctx, req)

	outcome := "success"
	if !res.Success {
		outcome = "failure"
		slog.Error("dispatch failed",
			"channel", req.Channel,
			"user_id", req.UserID,
			"template", req.TemplateName,
			"error", res.Err,
		)
	} else {
		slog.Info("notification dispatched",
			"channel", req.Channel,
			"user_id", req.UserID,
			"template", req.TemplateName,
			"provider_reference", res.ProviderReference,
		)
	}
	observability.DispatchesTotal.WithLabelValues(string(req.Channel), outcome).Inc()

	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request) Result {
	if req.Channel == "" {
		return failure(common.NewMissingFieldsError("channel"))
	}
	if !IsValidChannel(req.Channel) {
		return failure(common.NewValidationFailedError([]string{
			fmt.Sprintf("unsupported channel: %s", req.Channel),
		}))
	}

	if missing := d.missingFields(req); len(missing) > 0 {
		return failure(common.NewMissingFieldsError(missing...))
	}

	if req.Delay != nil {
		if err := req.Delay.Validate(); err != nil {
			return failure(err)
		}
	}

	if err := d.checkRecipientLimit(ctx, req); err != nil {
		return failure(err)
	}

	var content *RenderedContent
	if req.IsTemplated() {
		rendered, err := d.renderer.RenderWithValidation(req.TemplateName, req.TemplateProps)
		if err != nil {
			observability.TemplateRenders.WithLabelValues(req.TemplateName, "error").Inc()
			return failure(err)
		}
		observability.TemplateRenders.WithLabelValues(req.TemplateName, "ok").Inc()
		content = rendered
	}

	if req.Channel == ChannelEmailDirect {
		return d.sendDirect(ctx, req, content)
	}
	return d.triggerWorkflow(ctx, req, content)
}

// missingFields returns the request fields absent for its channel, in a
// stable order, so callers see exactly what to supply.
func (d *Dispatcher) missingFields(req *Request) []string {
	var missing []string

	switch req.Channel {
	case ChannelEmailDirect:
		if req.Email == "" {
			missing = append(missing, "email")
		}
		if req.Subject == "" {
			missing = append(missing, "subject")
		}
		if req.Body == "" && req.TemplateName == "" {
			missing = append(missing, "content")
		}

	case ChannelEmailWorkflow:
		if req.UserID == "" {
			missing = append(missing, "userId")
		}
		if req.Email == "" {
			missing = append(missing, "email")
		}
		if req.Subject == "" {
			missing = append(missing, "subject")
		}
		if req.Body == "" && req.TemplateName == "" {
			missing = append(missing, "content")
		}

	case ChannelPushImmediate, ChannelPushDelayed:
		if req.UserID == "" {
			missing = append(missing, "userId")
		}
		if req.Title == "" {
			missing = append(missing, "title")
		}
		if req.Body == "" {
			missing = append(missing, "body")
		}
	}

	if req.Channel.RequiresDelay() && req.Delay == nil {
		missing = append(missing, "delayAmount", "delayUnit")
	}

	return missing
}

// checkRecipientLimit applies the per-recipient limiter. A limiter
// backend failure logs and fails open, matching the gateway's stance
// that Redis being down must not block delivery.
func (d *Dispatcher) checkRecipientLimit(ctx context.Context, req *Request) error {
	if d.limiter == nil {
		return nil
	}

	recipient := req.Email
	if recipient == "" {
		recipient = req.UserID
	}

	allowed, err := d.limiter.Allow(ctx, recipient)
	if err != nil {
		slog.Error("rate limit check failed, proceeding without limit", "recipient", recipient, "error", err)
		return nil
	}
	if !allowed {
		return common.NewRateLimitedError(recipient)
	}
	return nil
}

// sendDirect delivers an email through the direct provider.
func (d *Dispatcher) sendDirect(ctx context.Context, req *Request, content *RenderedContent) Result {
	msg := &EmailMessage{
		From:    d.cfg.FromAddress,
		To:      req.Email,
		Subject: req.Subject,
	}
	if content != nil {
		msg.HTML = content.HTML
		msg.Text = content.Text
	} else {
		msg.HTML = req.Body
		msg.Text = req.Body
	}

	start := time.Now()
	id, err := d.email.Send(ctx, msg)
	observability.ProviderDuration.WithLabelValues("resend").Observe(time.Since(start).Seconds())

	if err != nil {
		return failure(asProviderError("resend", err))
	}
	return success(id)
}

// triggerWorkflow delivers through the workflow provider: push channels
// use the push workflow; workflow email picks the delayed variant when
// a delay is attached.
func (d *Dispatcher) triggerWorkflow(ctx context.Context, req *Request, content *RenderedContent) Result {
	event := &TriggerEvent{
		SubscriberID: req.UserID,
		Delay:        req.Delay,
	}

	if req.Channel.IsPush() {
		event.WorkflowID = d.cfg.Workflows.Push

		data := req.Data
		if data == nil {
			data = map[string]any{}
		}
		event.Payload = map[string]any{
			"title": req.Title,
			"body":  req.Body,
			"data":  data,
		}

		event.DeviceToken = d.resolveToken(req)
	} else {
		event.WorkflowID = d.cfg.Workflows.Email
		if req.Delay != nil {
			event.WorkflowID = d.cfg.Workflows.DelayedEmail
		}
		event.Email = req.Email

		body := req.Body
		if content != nil {
			// The email workflow expects pre-rendered HTML
			// base64-encoded so markup survives the trigger payload.
			body = base64.StdEncoding.EncodeToString([]byte(content.HTML))
		}
		event.Payload = map[string]any{
			"subject": req.Subject,
			"content": body,
		}
	}

	start := time.Now()
	trigger, err := d.workflow.Trigger(ctx, event)
	observability.ProviderDuration.WithLabelValues("novu").Observe(time.Since(start).Seconds())

	if err != nil {
		return failure(asProviderError("novu", err))
	}

	// Some workflow acknowledgements omit the transaction id; that is
	// still a success, just without a reference.
	var reference string
	if trigger != nil {
		reference = trigger.TransactionID
	}
	return success(reference)
}

// resolveToken prefers the token supplied on the request (just-in-time
// registration), then any previously registered token. An empty return
// means the provider resolves the subscriber from its own store.
func (d *Dispatcher) resolveToken(req *Request) string {
	if req.DeviceToken != "" {
		return req.DeviceToken
	}
	if d.tokens != nil {
		if token, ok := d.tokens.Lookup(req.UserID); ok {
			return token
		}
	}
	return ""
}

// asProviderError passes through typed provider/config errors and wraps
// anything else as a ProviderError for the given provider.
func asProviderError(provider string, err error) error {
	switch err.(type) {
	case *common.NotConfiguredError, *common.ProviderError:
		return err
	default:
		return common.NewProviderError(provider, err.Error())
	}
}
