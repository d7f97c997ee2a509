package vision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"vendor":"Tanishq"}`, `{"vendor":"Tanishq"}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json {\"a\":1}```  \n", `{"a":1}`},
		{"only trailing fence", "{\"a\":1}```", `{"a":1}`},
		{"prose is kept", "Here you go: {}", "Here you go: {}"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, CleanContent(tt.input))
		})
	}
}

func FuzzCleanContent(f *testing.F) {
	f.Add("```json\n{}\n```")
	f.Add("```")
	f.Add("")
	f.Add("{\"raw\": \"```\"}")

	f.Fuzz(func(t *testing.T, input string) {
		got := CleanContent(input)
		if got != strings.TrimSpace(got) {
			t.Fatalf("result not trimmed: %q", got)
		}
		if len(got) > len(input) {
			t.Fatalf("result longer than input: %q -> %q", input, got)
		}
		if !strings.Contains(input, got) {
			t.Fatalf("result is not a substring of input: %q -> %q", input, got)
		}
	})
}

func TestDataURL(t *testing.T) {
	t.Parallel()

	data := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	url := EncodeDataURL("image/png", data)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	mimeType, decoded, err := DecodeDataURL(url)
	require.NoError(t, err)
	require.Equal(t, "image/png", mimeType)
	require.Equal(t, data, decoded)

	t.Run("rejects malformed urls", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"http://x", "data:image/png;base64", "data:image/png,abc", "data:image/png;base64,***"} {
			_, _, err := DecodeDataURL(bad)
			require.Error(t, err, bad)
		}
	})
}

func TestUnconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIClient(OpenAIConfig{})
	u := Unconfigured{Err: err}
	res, gotErr := u.Extract(t.Context(), "p", "data:image/png;base64,AAAA")
	require.Nil(t, res)
	require.ErrorIs(t, gotErr, ErrMissingCredential)
}
