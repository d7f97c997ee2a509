package bills

import (
	"encoding/json"
	"strings"
)

// DraftKind tells whether the model output could be decoded.
type DraftKind int

const (
	// DraftParsed means the model returned a JSON object.
	DraftParsed DraftKind = iota
	// DraftUnparsed means the text was kept verbatim under "raw".
	DraftUnparsed
)

// Draft is the best-effort structured result of one extraction.
type Draft struct {
	Kind   DraftKind
	Fields map[string]any
	Raw    string
}

// ParseDraft decodes cleaned model content. Empty content counts as an empty
// object. Anything that is not a JSON object is kept as raw text.
func ParseDraft(content string) Draft {
	if strings.TrimSpace(content) == "" {
		content = "{}"
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(content), &fields); err != nil || fields == nil {
		return Draft{Kind: DraftUnparsed, Raw: content}
	}
	return Draft{Kind: DraftParsed, Fields: fields, Raw: content}
}

// MarshalJSON renders the parsed object, or {"raw": text} when unparsed.
func (d Draft) MarshalJSON() ([]byte, error) {
	if d.Kind == DraftUnparsed {
		return json.Marshal(map[string]string{"raw": d.Raw})
	}
	if d.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.Fields)
}

// Keys returns the top-level keys of a parsed draft.
func (d Draft) Keys() []string {
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	return keys
}
