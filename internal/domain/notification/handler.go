package notification

import (
	"fmt"
	"net/http"

	"notigate/internal/common"

	"github.com/gin-gonic/gin"
)

// ProviderStatus reports provider configuration for health endpoints.
type ProviderStatus struct {
	ResendConfigured bool
	NovuConfigured   bool
	FromAddress      string
}

// Handler maps HTTP requests onto the dispatch core. It is a thin
// layer: field presence, validation, and provider routing all live in
// the Dispatcher and renderer, not here.
type Handler struct {
	dispatcher *Dispatcher
	renderer   TemplateRenderer
	tokens     *TokenRegistry
	status     ProviderStatus
}

// NewHandler creates a new notification handler.
func NewHandler(dispatcher *Dispatcher, renderer TemplateRenderer, tokens *TokenRegistry, status ProviderStatus) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		renderer:   renderer,
		tokens:     tokens,
		status:     status,
	}
}

// ---- direct email endpoints (/api/email) ----

type sendWelcomeRequest struct {
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	CompanyName  string `json:"companyName"`
	LoginURL     string `json:"loginUrl"`
	SupportEmail string `json:"supportEmail"`
}

// SendWelcome handles POST /api/email/send-welcome
func (h *Handler) SendWelcome(c *gin.Context) {
	var req sendWelcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	company := req.CompanyName
	if company == "" {
		company = "Your Company"
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), &Request{
		Channel:      ChannelEmailDirect,
		Email:        req.Email,
		Subject:      fmt.Sprintf("Welcome to %s! 🎉", company),
		TemplateName: "welcome",
		TemplateProps: propBag(map[string]string{
			"firstName":    req.FirstName,
			"companyName":  req.CompanyName,
			"loginUrl":     req.LoginURL,
			"supportEmail": req.SupportEmail,
		}),
	})
	h.respondEmail(c, res, req.Email, "welcome")
}

type sendConfirmationRequest struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	CompanyName string `json:"companyName"`
	ConfirmURL  string `json:"confirmUrl"`
	ExpiresIn   string `json:"expiresIn"`
}

// SendConfirmation handles POST /api/email/send-confirmation
func (h *Handler) SendConfirmation(c *gin.Context) {
	var req sendConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), &Request{
		Channel:      ChannelEmailDirect,
		Email:        req.Email,
		Subject:      "Please confirm your email address",
		TemplateName: "confirmation",
		TemplateProps: propBag(map[string]string{
			"firstName":   req.FirstName,
			"companyName": req.CompanyName,
			"confirmUrl":  req.ConfirmURL,
			"expiresIn":   req.ExpiresIn,
		}),
	})
	h.respondEmail(c, res, req.Email, "confirmation")
}

type sendNewsletterRequest struct {
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	CompanyName    string `json:"companyName"`
	Subject        string `json:"subject"`
	Articles       any    `json:"articles"`
	UnsubscribeURL string `json:"unsubscribeUrl"`
	WebViewURL     string `json:"webViewUrl"`
}

// SendNewsletter handles POST /api/email/send-newsletter
func (h *Handler) SendNewsletter(c *gin.Context) {
	var req sendNewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = "Your Weekly Newsletter"
	}

	props := propBag(map[string]string{
		"firstName":      req.FirstName,
		"companyName":    req.CompanyName,
		"unsubscribeUrl": req.UnsubscribeURL,
		"webViewUrl":     req.WebViewURL,
	})
	if req.Articles != nil {
		props["articles"] = req.Articles
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), &Request{
		Channel:       ChannelEmailDirect,
		Email:         req.Email,
		Subject:       subject,
		TemplateName:  "newsletter",
		TemplateProps: props,
	})
	h.respondEmail(c, res, req.Email, "newsletter")
}

type sendTemplateRequest struct {
	Email    string         `json:"email"`
	Template string         `json:"template"`
	Subject  string         `json:"subject"`
	Props    map[string]any `json:"props"`
}

// SendTemplate handles POST /api/email/send-template, the generic
// direct-email endpoint for any registered template.
func (h *Handler) SendTemplate(c *gin.Context) {
	var req sendTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), &Request{
		Channel:       ChannelEmailDirect,
		Email:         req.Email,
		Subject:       req.Subject,
		TemplateName:  req.Template,
		TemplateProps: req.Props,
	})
	h.respondEmail(c, res, req.Email, req.Template)
}

// EmailTemplates handles GET /api/email/templates, the developer
// catalog, including an empty-bag validation example per template.
func (h *Handler) EmailTemplates(c *gin.Context) {
	infos := h.renderer.Templates()
	catalog := make([]gin.H, 0, len(infos))
	for _, info := range infos {
		catalog = append(catalog, gin.H{
			"name":              info.Name,
			"description":       info.Description,
			"validationExample": h.renderer.Validate(info.Name, map[string]any{}),
		})
	}
	common.Success(c, http.StatusOK, gin.H{
		"templates": catalog,
		"provider":  "resend",
	})
}

// EmailHealth handles GET /api/email/health
func (h *Handler) EmailHealth(c *gin.Context) {
	common.Success(c, http.StatusOK, gin.H{
		"service":             "email",
		"provider":            "resend",
		"configured":          h.status.ResendConfigured,
		"from_email":          h.status.FromAddress,
		"available_templates": templateNames(h.renderer.Templates()),
	})
}

// ---- workflow endpoints (/api/notifications) ----

type sendEmailRequest struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// SendEmail handles POST /api/notifications/send-email, literal email
// routed through the workflow provider.
func (h *Handler) SendEmail(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), &Request{
		Channel: ChannelEmailWorkflow,
		UserID:  req.UserID,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Content,
	})
	h.respondWorkflow(c, res, gin.H{"userId": req.UserID, "email": req.Email})
}

type sendTemplateEmailRequest struct {
	UserID        string         `json:"userId"`
	Email         string         `json:"email"`
	Subject       string         `json:"subject"`
	TemplateName  string         `json:"templateName"`
	TemplateProps map[string]any `json:"templateProps"`
}

// SendTemplateEmail handles POST /api/notifications/send-template-email
func (h *Handler) SendTemplateEmail(c *gin.Context) {
	var req sendTemplateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), &Request{
		Channel:       ChannelEmailWorkflow,
		UserID:        req.UserID,
		Email:         req.Email,
		Subject:       req.Subject,
		TemplateName:  req.TemplateName,
		TemplateProps: req.TemplateProps,
	})
	h.respondWorkflow(c, res, gin.H{
		"userId":       req.UserID,
		"email":        req.Email,
		"templateName": req.TemplateName,
	})
}

type sendDelayedEmailRequest struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	DelayAmount any    `json:"delayAmount"`
	DelayUnit   string `json:"delayUnit"`
}

// SendDelayedEmail handles POST /api/notifications/send-delayed-email
func (h *Handler) SendDelayedEmail(c *gin.Context) {
	var req sendDelayedEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	delay, err := ParseDelay(req.DelayAmount, req.DelayUnit)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	if delay == nil {
		common.HandleError(c, common.NewMissingFieldsError("delayAmount", "delayUnit"))
		return
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), &Request{
		Channel: ChannelEmailWorkflow,
		UserID:  req.UserID,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Content,
		Delay:   delay,
	})
	h.respondWorkflow(c, res, gin.H{
		"userId": req.UserID,
		"email":  req.Email,
		"delay":  fmt.Sprintf("%d %s", delay.Amount, delay.Unit),
	})
}

type pushNotificationRequest struct {
	UserID      string         `json:"userId"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data"`
	Token       string         `json:"token"`
	DelayAmount any            `json:"delayAmount"`
	DelayUnit   string         `json:"delayUnit"`
}

// PushNotification handles POST /api/notifications/push-notification.
// The request becomes a delayed push when delay fields are supplied.
func (h *Handler) PushNotification(c *gin.Context) {
	var req pushNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	delay, err := ParseDelay(req.DelayAmount, req.DelayUnit)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	channel := ChannelPushImmediate
	if delay != nil {
		channel = ChannelPushDelayed
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), &Request{
		Channel:     channel,
		UserID:      req.UserID,
		Title:       req.Title,
		Body:        req.Body,
		Data:        req.Data,
		DeviceToken: req.Token,
		Delay:       delay,
	})
	h.respondWorkflow(c, res, gin.H{
		"userId": req.UserID,
		"title":  req.Title,
	})
}

type registerTokenRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// RegisterPushToken handles POST /api/notifications/register-push-token.
// Registration is advisory; the token is also accepted directly on the
// push call for just-in-time binding.
func (h *Handler) RegisterPushToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	var missing []string
	if req.UserID == "" {
		missing = append(missing, "userId")
	}
	if req.Token == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		common.HandleError(c, common.NewMissingFieldsError(missing...))
		return
	}

	ack := h.tokens.Register(req.UserID, req.Token)
	common.Success(c, http.StatusOK, gin.H{
		"userId": ack.UserID,
		"token":  ack.Token,
		"note":   "Token will be used when sending notifications",
	})
}

type previewTemplateRequest struct {
	TemplateName  string         `json:"templateName"`
	TemplateProps map[string]any `json:"templateProps"`
}

// PreviewTemplate handles POST /api/notifications/preview-template:
// rendering without delivery, for development and non-sending clients.
func (h *Handler) PreviewTemplate(c *gin.Context) {
	var req previewTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, common.KindValidationFailed, "invalid request body: "+err.Error())
		return
	}

	if req.TemplateName == "" {
		common.HandleError(c, common.NewMissingFieldsError("templateName"))
		return
	}

	rendered, err := h.renderer.RenderWithValidation(req.TemplateName, req.TemplateProps)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{
		"templateName": req.TemplateName,
		"props":        req.TemplateProps,
		"html":         rendered.HTML,
		"text":         rendered.Text,
	})
}

// ListTemplates handles GET /api/notifications/templates
func (h *Handler) ListTemplates(c *gin.Context) {
	common.Success(c, http.StatusOK, gin.H{
		"templates": h.renderer.Templates(),
	})
}

// NotificationsHealth handles GET /api/notifications/health
func (h *Handler) NotificationsHealth(c *gin.Context) {
	common.Success(c, http.StatusOK, gin.H{
		"service":           "notifications",
		"novu_client_ready": h.status.NovuConfigured,
	})
}

// RegisterRoutes registers the gateway routes on the given groups.
func (h *Handler) RegisterRoutes(email, notifications *gin.RouterGroup) {
	email.POST("/send-welcome", h.SendWelcome)
	email.POST("/send-confirmation", h.SendConfirmation)
	email.POST("/send-newsletter", h.SendNewsletter)
	email.POST("/send-template", h.SendTemplate)
	email.GET("/templates", h.EmailTemplates)
	email.GET("/health", h.EmailHealth)

	notifications.POST("/send-email", h.SendEmail)
	notifications.POST("/send-template-email", h.SendTemplateEmail)
	notifications.POST("/send-delayed-email", h.SendDelayedEmail)
	notifications.POST("/push-notification", h.PushNotification)
	notifications.POST("/register-push-token", h.RegisterPushToken)
	notifications.POST("/preview-template", h.PreviewTemplate)
	notifications.GET("/templates", h.ListTemplates)
	notifications.GET("/health", h.NotificationsHealth)
}

// respondEmail writes the result of a direct email dispatch.
func (h *Handler) respondEmail(c *gin.Context, res Result, email, templateName string) {
	if !res.Success {
		common.HandleError(c, res.Err)
		return
	}

	data := gin.H{
		"email":    email,
		"template": templateName,
		"provider": "resend",
	}
	if res.HasReference {
		data["emailId"] = res.ProviderReference
	}
	common.Success(c, http.StatusOK, data)
}

// respondWorkflow writes the result of a workflow-routed dispatch.
func (h *Handler) respondWorkflow(c *gin.Context, res Result, data gin.H) {
	if !res.Success {
		common.HandleError(c, res.Err)
		return
	}

	if res.HasReference {
		data["transactionId"] = res.ProviderReference
	}
	common.Success(c, http.StatusOK, data)
}

// propBag builds a property bag from string fields, dropping empties so
// template defaults apply.
func propBag(fields map[string]string) map[string]any {
	props := make(map[string]any, len(fields))
	for key, value := range fields {
		if value != "" {
			props[key] = value
		}
	}
	return props
}

func templateNames(infos []TemplateInfo) []string {
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}
