package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const describeWidth = 80

// Describe renders the forest as an indented outline a model can read:
// one header line per node followed by its properties, children nested
// two spaces deeper.
func Describe(roots []*tree.Node) string {
	if len(roots) == 0 {
		return "(empty page)\n"
	}
	var b strings.Builder
	for _, n := range roots {
		b.WriteString(describeNode(n))
	}
	return b.String()
}

func describeNode(n *tree.Node) string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(header(n))
	b.WriteString("\n")

	if props := describeProperties(n.Properties); props != "" {
		b.WriteString(indent.String(props, 2))
	}
	if len(n.Children) > 0 {
		var children strings.Builder
		for _, c := range n.Children {
			children.WriteString(describeNode(c))
		}
		b.WriteString(indent.String(children.String(), 2))
	}
	return b.String()
}

func header(n *tree.Node) string {
	g := n.Geometry
	var parts []string
	parts = append(parts, fmt.Sprintf("%s id=%s", n.Kind, n.ID))
	if g.IsAbsolute() {
		parts = append(parts, fmt.Sprintf("at (%g,%g) size %sx%s z=%d", g.X, g.Y, g.Width, g.Height, n.ZOrder))
	} else {
		parts = append(parts, fmt.Sprintf("in flow size %sx%s", g.Width, g.Height))
	}
	if !n.Visible {
		parts = append(parts, "hidden")
	}
	if n.Locked {
		parts = append(parts, "locked")
	}
	return strings.Join(parts, " ")
}

func describeProperties(props map[string]interface{}) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		line := fmt.Sprintf("%s: %s", k, formatValue(props[k]))
		b.WriteString(wordwrap.String(line, describeWidth))
		b.WriteString("\n")
	}
	return b.String()
}

func formatValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
