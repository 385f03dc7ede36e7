package agent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/action.json
var actionSchemaJSON []byte

var (
	schemaOnce   sync.Once
	actionSchema *gojsonschema.Schema
	schemaErr    error
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// Rejected is an action the model emitted that failed validation
type Rejected struct {
	Index  int
	Raw    string
	Errors []string
}

// Response is a parsed model reply
type Response struct {
	Actions     []Action
	Rejected    []Rejected
	Explanation string
}

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		actionSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(actionSchemaJSON))
	})
	return actionSchema, schemaErr
}

// ParseResponse extracts the action batch from free-text model output. The
// JSON may sit in a fenced block or inline; it is either an object with
// "actions" and "explanation", or a bare array of actions. Each action is
// validated on its own, so one malformed entry does not discard the rest.
// Text without any JSON becomes the explanation.
func ParseResponse(text string) (*Response, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("loading action schema: %w", err)
	}

	raw, ok := extractJSON(text)
	if !ok {
		return &Response{Explanation: strings.TrimSpace(text)}, nil
	}

	root := gjson.Parse(raw)
	resp := &Response{}
	actions := root
	if root.IsObject() {
		actions = root.Get("actions")
		resp.Explanation = firstString(root, "explanation", "message", "summary")
	}
	if !actions.IsArray() {
		if resp.Explanation == "" {
			resp.Explanation = strings.TrimSpace(text)
		}
		return resp, nil
	}

	i := 0
	actions.ForEach(func(_, item gjson.Result) bool {
		index := i
		i++

		result, err := schema.Validate(gojsonschema.NewStringLoader(item.Raw))
		if err != nil {
			resp.Rejected = append(resp.Rejected, Rejected{Index: index, Raw: item.Raw, Errors: []string{err.Error()}})
			return true
		}
		if !result.Valid() {
			var msgs []string
			for _, desc := range result.Errors() {
				msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
			}
			resp.Rejected = append(resp.Rejected, Rejected{Index: index, Raw: item.Raw, Errors: msgs})
			return true
		}

		var action Action
		if err := json.Unmarshal([]byte(item.Raw), &action); err != nil {
			resp.Rejected = append(resp.Rejected, Rejected{Index: index, Raw: item.Raw, Errors: []string{err.Error()}})
			return true
		}
		resp.Actions = append(resp.Actions, action)
		return true
	})

	return resp, nil
}

func firstString(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := obj.Get(k); v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

// extractJSON finds the first JSON document in text: a fenced block, the
// whole text, or the first balanced object or array
func extractJSON(text string) (string, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(m[1]); gjson.Valid(body) && isContainer(body) {
			return body, true
		}
	}

	trimmed := strings.TrimSpace(text)
	if gjson.Valid(trimmed) && isContainer(trimmed) {
		return trimmed, true
	}

	for start := 0; start < len(text); start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		if end, ok := balancedEnd(text, start); ok {
			if candidate := text[start : end+1]; gjson.Valid(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

func isContainer(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// balancedEnd returns the index closing the bracket at start, skipping
// brackets inside string literals
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
