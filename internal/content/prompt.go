package content

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/Kamar-Folarin/site-sync/internal/batch"
)

const defaultPromptTemplate = `Write SEO content for a WooCommerce product in a {{ .Style | default "professional" }} tone.
Product name: {{ .Item.Name }}
{{- with .Item.SKU }}
SKU: {{ . }}
{{- end }}
{{- if .Item.Categories }}
Categories: {{ join ", " .Item.Categories }}
{{- end }}
{{- with .Item.Description }}
Current description: {{ . | trunc 500 }}
{{- end }}
Respond with a single JSON object and nothing else. Use the keys title, description,
short_description, meta_title, meta_description, focus_keyword and tags (an array of strings).
The description may contain simple HTML paragraphs. Keep meta_title under 60 characters
and meta_description under 160 characters.`

// PromptBuilder renders the generation prompt for an item
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses a prompt template with the Sprig functions available.
// An empty text selects the built-in template.
func NewPromptBuilder(text string) (*PromptBuilder, error) {
	if text == "" {
		text = defaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt for item in the requested style
func (b *PromptBuilder) Build(item batch.Item, style string) (string, error) {
	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, map[string]interface{}{
		"Item":  item,
		"Style": style,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
