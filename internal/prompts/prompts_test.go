package prompts

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var keyPattern = regexp.MustCompile(`(?m)^  "([A-Za-z]+)":`)

func declaredKeys(text string) []string {
	var keys []string
	for _, m := range keyPattern.FindAllStringSubmatch(text, -1) {
		keys = append(keys, m[1])
	}
	return keys
}

func TestForCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category string
		want     string
	}{
		{"diamond", SchemaDiamond},
		{"diamond_jewellery", SchemaDiamond},
		{"gold_jewellery", SchemaGold},
		{"", SchemaGold},
		{"Diamond", SchemaGold},
		{"silver", SchemaGold},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			t.Parallel()
			p := ForCategory(tt.category)
			require.Equal(t, tt.want, p.Schema)
			require.Equal(t, Version, p.Version)
		})
	}
}

func TestDiamondSchemaIsSupersetOfGold(t *testing.T) {
	t.Parallel()

	gold := declaredKeys(ForCategory("").Text)
	diamond := declaredKeys(ForCategory("diamond").Text)

	require.Len(t, gold, 15)
	require.Len(t, diamond, 20)
	require.Subset(t, diamond, gold)
	for _, k := range []string{"diamondCarat", "diamondCut", "diamondClarity", "diamondColor", "diamondCertificate"} {
		require.Contains(t, diamond, k)
		require.NotContains(t, gold, k)
	}
	require.Equal(t, ForCategory("diamond").FieldNames(), diamond)
}

func TestPromptText(t *testing.T) {
	t.Parallel()

	t.Run("gold prompt keeps disambiguation rules", func(t *testing.T) {
		t.Parallel()
		text := ForCategory("").Text
		require.Contains(t, text, "Indian GOLD jewellery bill receipts")
		require.Contains(t, text, "goldRatePerGram should ALWAYS be larger than makingChargesPerGram")
		require.Contains(t, text, "NEVER swap or merge these values")
		require.Contains(t, text, `"gst": { "cgst": number or null, "sgst": number or null, "total": number or null },`)
		require.Contains(t, text, "return their SUM")
		require.Contains(t, text, "Do NOT include any text before or after the JSON.")
		require.NotContains(t, text, "{{")
	})

	t.Run("diamond prompt maps dual unit columns", func(t *testing.T) {
		t.Parallel()
		text := ForCategory("diamond_jewellery").Text
		require.Contains(t, text, "Indian DIAMOND jewellery bill receipts")
		require.Contains(t, text, "diamondCarat = 0.159 (first value, in carats)")
		require.Contains(t, text, "stoneWeight = 0.032 (second value, in grams)")
		require.Contains(t, text, `"diamondCertificate": string or null`+"\n}")
		require.Contains(t, text, "return their SUM")
	})
}

func TestSchemaBlock(t *testing.T) {
	t.Parallel()

	got := schemaBlock([]Field{{"a", KindString}, {"b", KindNumber}})
	require.Equal(t, "{\n  \"a\": string or null,\n  \"b\": number or null\n}", got)
}

func TestForCategoryProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		category := rapid.String().Draw(t, "category")
		p := ForCategory(category)
		if category == "diamond" || category == "diamond_jewellery" {
			require.Equal(t, SchemaDiamond, p.Schema)
		} else {
			require.Equal(t, SchemaGold, p.Schema)
		}
		require.NotEmpty(t, p.Text)
	})
}
