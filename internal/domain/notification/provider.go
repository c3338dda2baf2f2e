package notification

import "context"

// EmailProvider is the direct email delivery port. Implementations live
// in infra/email (Resend).
type EmailProvider interface {
	// Send delivers a rendered email and returns the provider's email ID.
	Send(ctx context.Context, msg *EmailMessage) (string, error)
}

// WorkflowProvider is the workflow-trigger delivery port (push and
// legacy email routing). Implementations live in infra/workflow (Novu).
type WorkflowProvider interface {
	// Trigger executes a named delivery workflow for a subscriber.
	Trigger(ctx context.Context, event *TriggerEvent) (*TriggerResult, error)
}

// TemplateRenderer is the template registry/renderer port.
// Implementations live in infra/template.
type TemplateRenderer interface {
	// Templates lists registered templates in insertion order.
	Templates() []TemplateInfo

	// Validate checks a property bag against a template's field and
	// shape rules. It never renders and is side-effect-free.
	Validate(name string, props map[string]any) ValidationResult

	// RenderWithValidation validates first and renders only on success.
	// This is the entry point dispatch and preview surfaces must use so
	// validation is never bypassed.
	RenderWithValidation(name string, props map[string]any) (*RenderedContent, error)
}

// RecipientRateLimiter is the per-recipient send limiter port.
// Implementations live in infra/ratelimit.
type RecipientRateLimiter interface {
	// Allow reports whether a notification may be sent to the recipient.
	Allow(ctx context.Context, recipient string) (bool, error)
}
