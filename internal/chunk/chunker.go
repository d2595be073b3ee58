// Package chunk splits assembled document text into overlapping,
// token-bounded segments with deterministic identifiers.
package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/artsmia/miarag/internal/errors"
)

// Encoding is the tokenizer used for size accounting. It must be identical
// across the ingestion and query embedding paths.
const Encoding = "cl100k_base"

// Tokenizer converts text to a token sequence and back. Tokenization only
// needs to be internally consistent; it does not have to match the embedding
// model's internals.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Segment is a single token window of a document's assembled text.
type Segment struct {
	// ID is "{documentID}_chunk_{index}". Stable across re-runs of the same
	// document content, enabling upsert-based replacement.
	ID string
	// Index is the zero-based window position.
	Index int
	// Text is the window decoded back to text.
	Text string
	// Tokens is the window length in tokens.
	Tokens int
}

// Chunker produces sliding token windows of fixed size and overlap.
type Chunker struct {
	tokenizer Tokenizer
	chunkSize int
	overlap   int
}

// New creates a Chunker backed by the tiktoken cl100k_base encoding.
// overlap >= chunkSize would make the window step non-positive and is
// rejected here rather than looping forever downstream.
func New(chunkSize, overlap int) (*Chunker, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("get tiktoken encoding %s: %w", Encoding, err)
	}

	return &Chunker{
		tokenizer: tiktokenAdapter{enc},
		chunkSize: chunkSize,
		overlap:   overlap,
	}, nil
}

// NewWithTokenizer creates a Chunker with a caller-supplied tokenizer.
func NewWithTokenizer(tok Tokenizer, chunkSize, overlap int) (*Chunker, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &Chunker{tokenizer: tok, chunkSize: chunkSize, overlap: overlap}, nil
}

func validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("chunk size must be positive, got %d", chunkSize), nil)
	}
	if overlap < 0 || overlap >= chunkSize {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("overlap must be in [0, chunk size), got %d with chunk size %d",
				overlap, chunkSize), nil)
	}
	return nil
}

// Chunk splits text into windows of chunkSize tokens, stepping by
// chunkSize-overlap. The last window may be shorter than chunkSize. Empty
// text yields zero segments.
func (c *Chunker) Chunk(documentID, text string) []Segment {
	if text == "" {
		return nil
	}

	tokens := c.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	var segments []Segment
	for start, idx := 0, 0; start < len(tokens); start, idx = start+step, idx+1 {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		segments = append(segments, Segment{
			ID:     SegmentID(documentID, idx),
			Index:  idx,
			Text:   c.tokenizer.Decode(window),
			Tokens: len(window),
		})
	}

	return segments
}

// ChunkSize returns the configured window length in tokens.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in tokens.
func (c *Chunker) Overlap() int { return c.overlap }

// SegmentID synthesizes the deterministic chunk identifier for a document
// and window index.
func SegmentID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// tiktokenAdapter adapts tiktoken.Tiktoken to the Tokenizer interface.
type tiktokenAdapter struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenAdapter) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t tiktokenAdapter) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
