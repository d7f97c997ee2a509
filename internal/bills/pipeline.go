// Package bills turns an uploaded bill image or PDF into a draft investment
// by prompting a vision model.
package bills

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/jewellery-tracker/internal/filestore"
	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
	"gitlab.com/yelinaung/jewellery-tracker/internal/pdfrender"
	"gitlab.com/yelinaung/jewellery-tracker/internal/prompts"
	"gitlab.com/yelinaung/jewellery-tracker/internal/vision"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	// ErrUnsupportedContentType rejects uploads that are neither images nor PDFs.
	ErrUnsupportedContentType = errors.New("only image or PDF files are supported")
	// ErrUnrenderable rejects PDFs whose first page cannot be rasterized.
	ErrUnrenderable = errors.New("unable to render first page of PDF")
)

// Upload is one submitted bill.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	Category    string
}

// Result is what the caller reviews before confirming an investment.
type Result struct {
	BillID        string  `json:"bill_id"`
	StoredPath    *string `json:"file_path"`
	Draft         Draft   `json:"extracted"`
	PromptVersion string  `json:"prompt_version"`
}

// Pipeline validates, stores and extracts uploaded bills.
type Pipeline struct {
	store       filestore.Store
	renderer    pdfrender.Renderer
	extractor   vision.Extractor
	newID       func() string
	extractions metric.Int64Counter
}

// NewPipeline creates a Pipeline.
func NewPipeline(store filestore.Store, renderer pdfrender.Renderer, extractor vision.Extractor) *Pipeline {
	counter, err := otel.Meter("gitlab.com/yelinaung/jewellery-tracker/internal/bills").
		Int64Counter("bills.extractions", metric.WithDescription("Bill extractions by outcome"))
	if err != nil {
		counter = noop.Int64Counter{}
	}
	return &Pipeline{
		store:       store,
		renderer:    renderer,
		extractor:   extractor,
		newID:       uuid.NewString,
		extractions: counter,
	}
}

// Ingest runs one upload through the pipeline. Storage failures degrade to a
// nil StoredPath; undecodable model output degrades to an unparsed draft.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (*Result, error) {
	mediaType, isPDF, err := classify(up.ContentType)
	if err != nil {
		return nil, err
	}

	billID := p.newID()
	log := logger.Log.With().
		Str("bill_id", billID).
		Str("content_type", mediaType).
		Str("category", up.Category).
		Logger()
	log.Info().
		Str("filename", logger.SanitizeFilename(up.Filename)).
		Int("bytes", len(up.Data)).
		Msg("Received bill upload")

	imageType, imageData := mediaType, up.Data
	if isPDF {
		png, err := p.renderer.FirstPagePNG(up.Data)
		if err != nil {
			log.Warn().Err(err).Msg("PDF first page could not be rendered")
			p.record(ctx, "unrenderable")
			return nil, fmt.Errorf("%w: %w", ErrUnrenderable, err)
		}
		imageType, imageData = "image/png", png
	}

	var storedPath *string
	if path, err := p.store.SaveWorking(ctx, billID, up.Filename, mediaType, up.Data); err != nil {
		log.Error().Err(err).Msg("Failed to save working copy, continuing without it")
	} else {
		storedPath = &path
	}

	prompt := prompts.ForCategory(up.Category)
	res, err := p.extractor.Extract(ctx, prompt.Text, vision.EncodeDataURL(imageType, imageData))
	if err != nil {
		log.Error().Err(err).Msg("Vision extraction failed")
		p.record(ctx, "error")
		return nil, fmt.Errorf("failed to extract bill: %w", err)
	}

	draft := ParseDraft(res.Content)
	if draft.Kind == DraftUnparsed {
		log.Warn().Str("content", logger.SanitizeText(res.Content)).Msg("Model output is not a JSON object, wrapping as raw")
		p.record(ctx, "unparsed")
	} else {
		log.Info().Strs("keys", draft.Keys()).Str("schema", prompt.Schema).Msg("Bill extracted")
		p.record(ctx, "parsed")
	}

	return &Result{
		BillID:        billID,
		StoredPath:    storedPath,
		Draft:         draft,
		PromptVersion: prompt.Version,
	}, nil
}

func (p *Pipeline) record(ctx context.Context, outcome string) {
	p.extractions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// classify returns the bare media type and whether it is a PDF.
func classify(contentType string) (string, bool, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	switch {
	case mediaType == "application/pdf":
		return mediaType, true, nil
	case strings.HasPrefix(mediaType, "image/"):
		return mediaType, false, nil
	default:
		return "", false, fmt.Errorf("%w: %q", ErrUnsupportedContentType, mediaType)
	}
}
