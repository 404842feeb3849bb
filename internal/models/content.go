package models

// GeneratedContent is the SEO content produced for one product
type GeneratedContent struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	MetaTitle        string   `json:"meta_title"`
	MetaDescription  string   `json:"meta_description"`
	FocusKeyword     string   `json:"focus_keyword"`
	Tags             []string `json:"tags,omitempty"`
}
