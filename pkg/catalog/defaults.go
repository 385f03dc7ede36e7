package catalog

import (
	"github.com/dshills/pagebuilder/pkg/geometry"
)

// builtinEntries is the catalog used when no catalog file is configured
var builtinEntries = []Entry{
	{
		Kind:        "container",
		Name:        "Container",
		Category:    "layout",
		Description: "Free-form box that holds other components",
		Container:   true,
		Mode:        geometry.ModeAbsolute,
		DefaultSize: geometry.NewSize(400, 300),
		DefaultProperties: map[string]interface{}{
			"padding": "16px",
		},
	},
	{
		Kind:        "section",
		Name:        "Section",
		Category:    "layout",
		Description: "Full-width page section stacking its children",
		Container:   true,
		Mode:        geometry.ModeRelative,
		DefaultSize: geometry.Size{Width: geometry.Auto, Height: geometry.Auto},
		Accepts:     `child.kind != "section" || depth > 0`,
	},
	{
		Kind:            "card",
		Name:            "Card",
		Category:        "layout",
		Description:     "Bordered card with title and body",
		Container:       true,
		Mode:            geometry.ModeAbsolute,
		DefaultPosition: geometry.NewPosition(100, 100),
		DefaultSize:     geometry.NewSize(350, 250),
		DefaultProperties: map[string]interface{}{
			"title": "Card title",
		},
		Accepts: `child.kind != "navbar"`,
	},
	{
		Kind:        "grid",
		Name:        "Grid",
		Category:    "layout",
		Description: "Column grid",
		Container:   true,
		Mode:        geometry.ModeRelative,
		DefaultSize: geometry.Size{Width: geometry.Auto, Height: geometry.Auto},
		DefaultProperties: map[string]interface{}{
			"columns": float64(3),
		},
	},
	{
		Kind:        "form",
		Name:        "Form",
		Category:    "forms",
		Description: "Form wrapper for inputs and buttons",
		Container:   true,
		Mode:        geometry.ModeAbsolute,
		DefaultSize: geometry.NewSize(360, 280),
		Accepts:     `child.category in ["forms", "basic"]`,
	},
	{
		Kind:        "navbar",
		Name:        "Navigation Bar",
		Category:    "navigation",
		Description: "Top navigation bar",
		Container:   true,
		Mode:        geometry.ModeRelative,
		DefaultSize: geometry.Size{Width: geometry.Auto, Height: geometry.Px(64)},
		MinHeight:   40,
		Accepts:     `!child.container`,
	},
	{
		Kind:        "button",
		Name:        "Button",
		Category:    "basic",
		Mode:        geometry.ModeAbsolute,
		DefaultSize: geometry.NewSize(120, 40),
		DefaultProperties: map[string]interface{}{
			"text":    "Button",
			"variant": "primary",
		},
	},
	{
		Kind:        "text",
		Name:        "Text",
		Category:    "basic",
		Mode:        geometry.ModeAbsolute,
		DefaultSize: geometry.NewSize(200, 40),
		DefaultProperties: map[string]interface{}{
			"text": "Text block",
		},
	},
	{
		Kind:        "heading",
		Name:        "Heading",
		Category:    "basic",
		Mode:        geometry.ModeAbsolute,
		DefaultSize: geometry.NewSize(300, 50),
		DefaultProperties: map[string]interface{}{
			"text":  "Heading",
			"level": float64(1),
		},
	},
	{
		Kind:        "image",
		Name:        "Image",
		Category:    "media",
		Mode:        geometry.ModeAbsolute,
		DefaultSize: geometry.NewSize(240, 160),
		DefaultProperties: map[string]interface{}{
			"src": "",
			"alt": "",
		},
	},
	{
		Kind:        "input",
		Name:        "Input",
		Category:    "forms",
		Mode:        geometry.ModeAbsolute,
		DefaultSize: geometry.NewSize(220, 36),
		DefaultProperties: map[string]interface{}{
			"placeholder": "Enter text",
		},
	},
	{
		Kind:        "list",
		Name:        "List",
		Category:    "basic",
		Mode:        geometry.ModeRelative,
		DefaultSize: geometry.Size{Width: geometry.Auto, Height: geometry.Auto},
		DefaultProperties: map[string]interface{}{
			"items": []interface{}{"First", "Second"},
		},
	},
}

// Default returns a registry holding the built-in kinds
func Default() *Registry {
	r := NewRegistry()
	for _, e := range builtinEntries {
		if err := r.Register(e); err != nil {
			// builtin entries are static; a failure here is a programming error
			panic(err)
		}
	}
	return r
}
