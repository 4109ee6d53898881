// Package chunker provides a fixed-size, overlapping text chunker.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Processor splits loaded documents into segments.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Size returns the configured chunk size.
func (p *Processor) Size() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits a loaded document into segments.
// Paginated documents are chunked page by page; ordinals run across the
// whole document and each segment keeps its page number.
func (p *Processor) Process(ctx context.Context, doc *domain.LoadedDocument) ([]domain.Segment, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	if len(doc.Pages) == 0 {
		texts := Chunk(doc.Text, p.chunkSize, p.overlap)
		segments := make([]domain.Segment, 0, len(texts))
		for i, text := range texts {
			segments = append(segments, domain.Segment{Ordinal: i, Text: text})
		}
		return segments, nil
	}

	var segments []domain.Segment
	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range Chunk(page.Text, p.chunkSize, p.overlap) {
			segments = append(segments, domain.Segment{
				Ordinal: len(segments),
				Page:    domain.IntPtr(page.Number),
				Text:    text,
			})
		}
	}
	return segments, nil
}

// Chunk slides a window of maxSize runes over text and returns the
// trimmed, non-empty windows in order. Consecutive windows share overlap
// runes. The window start always moves forward, so any overlap terminates.
func Chunk(text string, maxSize, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	if n == 0 {
		return nil
	}
	if maxSize <= 0 {
		maxSize = n
	}
	if overlap < 0 {
		overlap = 0
	}

	step := maxSize - overlap
	if step < 1 {
		step = 1
	}
	out := make([]string, 0, n/step+1)

	start := 0
	for start < n {
		end := start + maxSize
		if end > n {
			end = n
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}

		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return out
}
