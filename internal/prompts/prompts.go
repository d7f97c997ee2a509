// Package prompts builds the category-specific extraction instructions sent to
// the vision model. The wording lives in versioned templates; the JSON key
// block is generated from each schema's field list.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

// Version identifies the template wording. Bump it whenever a template changes
// so extraction results can be traced to the prompt that produced them.
const Version = "2024-12-v3"

// Schema names.
const (
	SchemaGold    = "gold"
	SchemaDiamond = "diamond"
)

//go:embed templates/*.txt
var templateFS embed.FS

// FieldKind is the JSON value type the model must emit for a field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindGST
)

// Field is one key of the extraction output.
type Field struct {
	Name string
	Kind FieldKind
}

var goldFields = []Field{
	{"vendor", KindString},
	{"productName", KindString},
	{"purchaseDate", KindString},
	{"netMetalWeight", KindNumber},
	{"stoneWeight", KindNumber},
	{"grossWeight", KindNumber},
	{"goldRatePerGram", KindNumber},
	{"makingChargesPerGram", KindNumber},
	{"hallmarkCharges", KindNumber},
	{"stoneCost", KindNumber},
	{"grossPrice", KindNumber},
	{"gst", KindGST},
	{"discounts", KindNumber},
	{"finalPrice", KindNumber},
	{"goldPurity", KindString},
}

var diamondExtension = []Field{
	{"diamondCarat", KindNumber},
	{"diamondCut", KindString},
	{"diamondClarity", KindString},
	{"diamondColor", KindString},
	{"diamondCertificate", KindString},
}

// Prompt is a rendered extraction instruction.
type Prompt struct {
	Version string
	Schema  string
	Fields  []Field
	Text    string
}

// FieldNames returns the top-level output keys in order.
func (p Prompt) FieldNames() []string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	return names
}

var rendered = map[string]Prompt{}

func init() {
	schemas := map[string][]Field{
		SchemaGold:    goldFields,
		SchemaDiamond: append(append([]Field{}, goldFields...), diamondExtension...),
	}
	for name, fields := range schemas {
		text, err := render(name, fields)
		if err != nil {
			panic(err)
		}
		rendered[name] = Prompt{Version: Version, Schema: name, Fields: fields, Text: text}
	}
}

// IsDiamond reports whether a category uses the diamond schema.
func IsDiamond(category string) bool {
	return category == "diamond" || category == "diamond_jewellery"
}

// ForCategory selects the prompt for a category tag. Anything that is not a
// diamond category, including the empty string, gets the gold schema.
func ForCategory(category string) Prompt {
	if IsDiamond(category) {
		return rendered[SchemaDiamond]
	}
	return rendered[SchemaGold]
}

func render(name string, fields []Field) (string, error) {
	raw, err := templateFS.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("failed to read %s template: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Schema string }{Schema: schemaBlock(fields)}); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}

func schemaBlock(fields []Field) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString(`  "` + f.Name + `": `)
		switch f.Kind {
		case KindNumber:
			b.WriteString("number or null")
		case KindGST:
			b.WriteString(`{ "cgst": number or null, "sgst": number or null, "total": number or null }`)
		default:
			b.WriteString("string or null")
		}
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}
