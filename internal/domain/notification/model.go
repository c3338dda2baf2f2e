package notification

import (
	"encoding/json"
	"strconv"
	"strings"

	"notigate/internal/common"
)

// Channel represents a notification delivery channel.
type Channel string

const (
	// ChannelEmailDirect delivers through the direct email provider.
	ChannelEmailDirect Channel = "email-direct"
	// ChannelEmailWorkflow routes email through the workflow-trigger
	// provider (legacy path). May carry an optional delay override.
	ChannelEmailWorkflow Channel = "email-workflow"
	// ChannelPushImmediate delivers a push notification right away.
	ChannelPushImmediate Channel = "push-immediate"
	// ChannelPushDelayed delivers a push notification after a
	// provider-honored delay. Delay is mandatory.
	ChannelPushDelayed Channel = "push-delayed"
)

// validChannels is the set of all recognized channels.
var validChannels = map[Channel]bool{
	ChannelEmailDirect:   true,
	ChannelEmailWorkflow: true,
	ChannelPushImmediate: true,
	ChannelPushDelayed:   true,
}

// IsValidChannel checks whether a channel is recognized.
func IsValidChannel(ch Channel) bool {
	return validChannels[ch]
}

// IsPush reports whether the channel delivers to a mobile device.
func (ch Channel) IsPush() bool {
	return ch == ChannelPushImmediate || ch == ChannelPushDelayed
}

// RequiresDelay reports whether the channel mandates a delay override.
func (ch Channel) RequiresDelay() bool {
	return ch == ChannelPushDelayed
}

// Delay instructs the workflow provider to defer delivery. Scheduling
// happens entirely provider-side; the gateway only validates and
// forwards the hint.
type Delay struct {
	Amount int    `json:"amount"`
	Unit   string `json:"unit"`
}

// validDelayUnits is the set of units the workflow provider honors.
var validDelayUnits = map[string]bool{
	"seconds": true,
	"minutes": true,
	"hours":   true,
	"days":    true,
}

// DelayUnits returns the recognized delay units in canonical order.
func DelayUnits() []string {
	return []string{"seconds", "minutes", "hours", "days"}
}

// Validate checks the delay amount and unit.
func (d *Delay) Validate() error {
	if d.Amount <= 0 {
		return common.NewDelayError("delayAmount must be a positive integer, got %d", d.Amount)
	}
	if !validDelayUnits[d.Unit] {
		return common.NewDelayError("delayUnit %q is not recognized (valid: %s)", d.Unit, strings.Join(DelayUnits(), ", "))
	}
	return nil
}

// ParseDelay coerces a loosely typed delay amount (JSON number, numeric
// string) and unit into a validated Delay. A nil amount and empty unit
// yield a nil Delay with no error: the request carries no delay.
func ParseDelay(amount any, unit string) (*Delay, error) {
	if amount == nil && unit == "" {
		return nil, nil
	}

	n, err := coerceAmount(amount)
	if err != nil {
		return nil, err
	}

	d := &Delay{Amount: n, Unit: unit}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// coerceAmount converts the decoded JSON value to an int.
func coerceAmount(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, common.NewDelayError("delayAmount is required when a delay is requested")
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, common.NewDelayError("delayAmount must be an integer, got %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, common.NewDelayError("delayAmount must be an integer, got %q", n.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, common.NewDelayError("delayAmount must be numeric, got %q", n)
		}
		return i, nil
	default:
		return 0, common.NewDelayError("delayAmount has unsupported type %T", v)
	}
}

// Request is a fully decomposed notification request, produced by the
// route layer. Content is either a literal subject/body pair or a
// template name with a property bag.
type Request struct {
	Channel Channel

	// Recipient
	UserID      string
	Email       string
	DeviceToken string

	// Literal content
	Subject string
	Body    string

	// Template content
	TemplateName  string
	TemplateProps map[string]any

	// Push content
	Title string
	Data  map[string]any

	Delay *Delay
}

// IsTemplated reports whether the request content is template-based.
func (r *Request) IsTemplated() bool {
	return r.TemplateName != ""
}

// Result is the normalized outcome of a dispatch. A provider call that
// completes without error but returns no reference id is still a
// success, with HasReference false.
type Result struct {
	Success           bool
	ProviderReference string
	HasReference      bool
	Err               error
}

// failure wraps a typed error into a failed Result.
func failure(err error) Result {
	return Result{Success: false, Err: err}
}

// success builds a successful Result from an optional provider reference.
func success(reference string) Result {
	return Result{
		Success:           true,
		ProviderReference: reference,
		HasReference:      reference != "",
	}
}

// RenderedContent is the HTML and plain-text rendering of one template
// with one property bag. Both fields describe the same logical content.
type RenderedContent struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// ValidationResult reports template property bag validation.
type ValidationResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// TemplateInfo describes one registered template for catalog listings.
type TemplateInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EmailMessage is a rendered email ready for the direct provider.
type EmailMessage struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// TriggerEvent is the normalized envelope for the workflow provider.
type TriggerEvent struct {
	WorkflowID   string
	SubscriberID string
	Email        string
	// DeviceToken, when set, is attached as a one-shot channel
	// credential override (just-in-time registration).
	DeviceToken string
	Payload     map[string]any
	Delay       *Delay
}

// TriggerResult is the workflow provider's acknowledgement.
type TriggerResult struct {
	TransactionID string
	Acknowledged  bool
}
