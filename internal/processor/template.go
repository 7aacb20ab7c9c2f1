package processor

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// TemplateProcessor renders a Go template string with the sprig functions.
type TemplateProcessor struct{}

// NewTemplateProcessor creates a new TemplateProcessor.
func NewTemplateProcessor() *TemplateProcessor {
	return &TemplateProcessor{}
}

// Process renders content as a template against data.
func (p *TemplateProcessor) Process(content string, data any) (string, error) {
	t, err := template.New("").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
