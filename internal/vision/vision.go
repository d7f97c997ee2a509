// Package vision calls multimodal models to read jewellery bills.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SystemInstruction pins the model to a single bare JSON object.
const SystemInstruction = "You are a JSON extraction expert for Indian jewellery bills. " +
	"You must respond with ONE JSON object only, no prose, no markdown, no backticks."

// Generation settings shared by all providers.
const (
	Temperature     = 0
	MaxOutputTokens = 1200
)

var (
	// ErrMissingCredential is returned by constructors when no API key is configured.
	ErrMissingCredential = errors.New("vision model credential is not configured")
	// ErrTimeout indicates the model call exceeded its deadline.
	ErrTimeout = errors.New("vision model call timed out")
	// ErrUpstream indicates the provider rejected or failed the call.
	ErrUpstream = errors.New("vision model call failed")
)

// Result is the provider response and its cleaned text content.
// Content is not validated as JSON.
type Result struct {
	Raw     json.RawMessage
	Content string
}

// Extractor sends a prompt and an image to a vision model.
type Extractor interface {
	Extract(ctx context.Context, prompt, imageDataURL string) (*Result, error)
}

// CleanContent strips a surrounding markdown code fence and whitespace.
func CleanContent(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// EncodeDataURL builds a base64 data URL for the given bytes.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its MIME type and bytes.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL has no payload")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return mimeType, data, nil
}

// Unconfigured is an Extractor whose construction failed. Every call returns
// the construction error without touching the network.
type Unconfigured struct {
	Err error
}

// Extract implements Extractor.
func (u Unconfigured) Extract(context.Context, string, string) (*Result, error) {
	return nil, u.Err
}
