package models

import "strings"

// Site is a remote WordPress/WooCommerce installation managed by the dashboard
type Site struct {
	ID                   int64  `json:"id" yaml:"id"`
	Name                 string `json:"name" yaml:"name"`
	URL                  string `json:"url" yaml:"url"`
	WordPressUser        string `json:"-" yaml:"wordpress_user"`
	WordPressAppPassword string `json:"-" yaml:"wordpress_app_password"`
	ConsumerKey          string `json:"-" yaml:"consumer_key"`
	ConsumerSecret       string `json:"-" yaml:"consumer_secret"`
	Active               bool   `json:"active" yaml:"active"`
}

// BaseURL returns the site URL without a trailing slash
func (s *Site) BaseURL() string {
	return strings.TrimRight(s.URL, "/")
}

// HasWooCommerceCredentials reports whether the site can be queried through the WooCommerce API
func (s *Site) HasWooCommerceCredentials() bool {
	return s.ConsumerKey != "" && s.ConsumerSecret != ""
}

// HasWordPressCredentials reports whether basic auth is configured for the WordPress API
func (s *Site) HasWordPressCredentials() bool {
	return s.WordPressUser != "" && s.WordPressAppPassword != ""
}
