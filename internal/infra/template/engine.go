package template

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"reflect"
	texttemplate "text/template"
	"time"

	"notigate/internal/common"
	"notigate/internal/domain/notification"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var _ notification.TemplateRenderer = (*Engine)(nil)

// definition binds a template name to its required-field schema, shape
// checks, and property defaulting. New templates are added by appending
// one entry to newDefinitions.
type definition struct {
	name           string
	description    string
	requiredFields []string

	// checkShape validates type shapes beyond field presence.
	checkShape func(props map[string]any) []string

	// buildData applies defaults and produces the value both the HTML
	// and text templates execute against. It must not mutate props.
	buildData func(props map[string]any) any
}

// Engine is the template registry and renderer. It is initialized once
// at process start and never mutated afterward, so concurrent reads
// need no synchronization.
type Engine struct {
	html  *template.Template
	text  *texttemplate.Template
	defs  map[string]*definition
	order []string
}

// NewEngine parses the embedded HTML and plain-text templates and
// registers the builtin definitions.
func NewEngine() (*Engine, error) {
	htmlTmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing html templates: %w", err)
	}
	textTmpl, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parsing text templates: %w", err)
	}

	e := &Engine{
		html: htmlTmpl,
		text: textTmpl,
		defs: make(map[string]*definition),
	}
	for _, def := range newDefinitions() {
		e.defs[def.name] = def
		e.order = append(e.order, def.name)
	}
	return e, nil
}

// Names lists registered template names in insertion order.
func (e *Engine) Names() []string {
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Get returns the catalog entry for a registered template name.
func (e *Engine) Get(name string) (notification.TemplateInfo, bool) {
	def, ok := e.defs[name]
	if !ok {
		return notification.TemplateInfo{}, false
	}
	return notification.TemplateInfo{Name: def.name, Description: def.description}, true
}

// Templates lists registered templates with their descriptions.
func (e *Engine) Templates() []notification.TemplateInfo {
	infos := make([]notification.TemplateInfo, 0, len(e.order))
	for _, name := range e.order {
		infos = append(infos, notification.TemplateInfo{
			Name:        name,
			Description: e.defs[name].description,
		})
	}
	return infos
}

// Validate checks a property bag against the template's required-field
// schema and shape rules. It never renders and never mutates the bag.
func (e *Engine) Validate(name string, props map[string]any) notification.ValidationResult {
	def, ok := e.defs[name]
	if !ok {
		return notification.ValidationResult{
			Valid:  false,
			Errors: []string{"Unknown template: " + name},
		}
	}

	errs := []string{}
	for _, field := range def.requiredFields {
		if !fieldPresent(props[field]) {
			errs = append(errs, field+" is required")
		}
	}
	if def.checkShape != nil {
		errs = append(errs, def.checkShape(props)...)
	}

	return notification.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// RenderHTML renders the template's HTML representation.
func (e *Engine) RenderHTML(name string, props map[string]any) (string, error) {
	def, ok := e.defs[name]
	if !ok {
		return "", common.NewUnknownTemplateError(name, e.Names())
	}
	return e.renderHTMLData(def, def.buildData(props))
}

// RenderText renders the template's plain-text representation.
func (e *Engine) RenderText(name string, props map[string]any) (string, error) {
	def, ok := e.defs[name]
	if !ok {
		return "", common.NewUnknownTemplateError(name, e.Names())
	}
	return e.renderTextData(def, def.buildData(props))
}

// RenderBoth renders the HTML and plain-text representations from one
// input snapshot. Neither render depends on the other's output.
func (e *Engine) RenderBoth(name string, props map[string]any) (*notification.RenderedContent, error) {
	def, ok := e.defs[name]
	if !ok {
		return nil, common.NewUnknownTemplateError(name, e.Names())
	}

	data := def.buildData(props)

	html, err := e.renderHTMLData(def, data)
	if err != nil {
		return nil, err
	}
	text, err := e.renderTextData(def, data)
	if err != nil {
		return nil, err
	}
	return &notification.RenderedContent{HTML: html, Text: text}, nil
}

// RenderWithValidation validates the bag first and renders only on
// success. Dispatch and preview surfaces go through here so validation
// cannot be bypassed.
func (e *Engine) RenderWithValidation(name string, props map[string]any) (*notification.RenderedContent, error) {
	if _, ok := e.defs[name]; !ok {
		return nil, common.NewUnknownTemplateError(name, e.Names())
	}

	result := e.Validate(name, props)
	if !result.Valid {
		return nil, common.NewValidationFailedError(result.Errors)
	}

	return e.RenderBoth(name, props)
}

func (e *Engine) renderHTMLData(def *definition, data any) (string, error) {
	var buf bytes.Buffer
	if err := e.html.ExecuteTemplate(&buf, def.name+".html", data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", def.name, err)
	}
	return buf.String(), nil
}

func (e *Engine) renderTextData(def *definition, data any) (string, error) {
	var buf bytes.Buffer
	if err := e.text.ExecuteTemplate(&buf, def.name+".txt", data); err != nil {
		return "", fmt.Errorf("executing text template %s: %w", def.name, err)
	}
	return buf.String(), nil
}

// fieldPresent reports whether a property counts as supplied: nil and
// empty strings are missing, everything else is present.
func fieldPresent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	default:
		return true
	}
}

// isSequence reports whether a supplied value is an ordered sequence.
func isSequence(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array)
}

// copyrightYear is the one wall-clock-derived template field.
func copyrightYear() int {
	return time.Now().Year()
}
