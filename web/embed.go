// Package web embeds the dashboard templates and static assets.
package web

import "embed"

// TemplatesFS holds the page and its htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds stylesheets and scripts served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
