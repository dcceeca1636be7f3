package floatchat

import "embed"

// TemplateFS contains the embedded HTML templates for the widget demo page and
// its partial views. Templates are split into layouts, pages, and partials.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the embedded widget assets: the floating-button script and
// its stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
