package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artsmia/miarag/internal/errors"
	"github.com/artsmia/miarag/internal/search"
)

// Response type values.
const (
	ResponseFull       = "full"
	ResponseAnswerOnly = "answer_only"
)

const (
	systemPrompt     = "You are a helpful assistant. Use only context."
	contextSeparator = "\n---\n"
	noDocsAnswer     = "No docs found."
)

// GenerationParams are passed to the model verbatim on every request.
type GenerationParams struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// DefaultGenerationParams returns the fixed generation knobs.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{MaxTokens: 512, Temperature: 0.7, TopP: 0.9}
}

// Request is one ask invocation. Zero values take defaults: TopK from the
// search engine, ModelID from configuration, ResponseType "full".
type Request struct {
	Query        string
	TopK         int
	ModelID      string
	ResponseType string
}

// Source identifies where a context chunk came from.
type Source struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
}

// FullResponse is the structured body returned for "full" requests.
type FullResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Cached  bool     `json:"cached"`
}

// Result is a rendered ask response. Exactly one of Text and Full is
// populated, matching the request's response type.
type Result struct {
	ResponseType string
	// Text is the plain body for answer_only requests.
	Text string
	// Full is the structured body for full requests.
	Full *FullResponse
}

// Orchestrator runs the ask flow: cache check, retrieval, prompt assembly,
// generation, cache write.
type Orchestrator struct {
	engine         *search.Engine
	generator      Generator
	cache          *Cache
	defaultModelID string
	params         GenerationParams
	logger         *slog.Logger
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(engine *search.Engine, generator Generator, cache *Cache, defaultModelID string, params GenerationParams, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engine:         engine,
		generator:      generator,
		cache:          cache,
		defaultModelID: defaultModelID,
		params:         params,
		logger:         logger,
	}
}

// novaRequest is the InvokeModel payload shape for Nova-family models.
type novaRequest struct {
	System          []novaText      `json:"system"`
	Messages        []novaMessage   `json:"messages"`
	InferenceConfig inferenceConfig `json:"inferenceConfig"`
}

type novaText struct {
	Text string `json:"text"`
}

type novaMessage struct {
	Role    string     `json:"role"`
	Content []novaText `json:"content"`
}

type inferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
}

// novaResponse covers the two response shapes models return: the message
// shape and a flat completion field.
type novaResponse struct {
	Output *struct {
		Message *struct {
			Content []novaText `json:"content"`
		} `json:"message"`
	} `json:"output"`
	Completion string `json:"completion"`
}

// Ask answers a question over the indexed corpus.
//
// The cache is consulted before any retrieval work; a hit in "full" mode is
// re-marked cached=true so callers can tell. On a miss the flow is retrieve,
// build context, generate, cache. An empty retrieval short-circuits to a
// canned answer that is also cached.
func (o *Orchestrator) Ask(ctx context.Context, req Request) (*Result, error) {
	if req.ModelID == "" {
		req.ModelID = o.defaultModelID
	}
	if req.ResponseType == "" {
		req.ResponseType = ResponseFull
	}
	if req.ResponseType != ResponseFull && req.ResponseType != ResponseAnswerOnly {
		return nil, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("response_type must be %q or %q, got %q",
				ResponseFull, ResponseAnswerOnly, req.ResponseType), nil)
	}
	if req.TopK == 0 {
		req.TopK = o.engine.DefaultTopK()
	}

	key := Signature(req.Query, req.TopK, req.ModelID, req.ResponseType)
	if body, ok := o.cache.Get(key); ok {
		o.logger.Info("answer cache hit", "response_type", req.ResponseType)
		return o.renderCached(req.ResponseType, body)
	}
	o.logger.Info("answer cache miss", "response_type", req.ResponseType)

	results, err := o.engine.Search(ctx, req.Query, req.TopK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return o.renderNoDocs(req.ResponseType, key)
	}

	chunks := make([]string, len(results))
	sources := make([]Source, len(results))
	for i, r := range results {
		chunks[i] = r.Text
		sources[i] = Source{ChunkID: r.ChunkID, DocumentID: r.DocumentID}
	}

	answer, err := o.generate(ctx, req, strings.Join(chunks, contextSeparator))
	if err != nil {
		return nil, err
	}

	if req.ResponseType == ResponseAnswerOnly {
		body := answer + "\n\n"
		o.cache.Set(key, body)
		return &Result{ResponseType: ResponseAnswerOnly, Text: body}, nil
	}

	full := &FullResponse{Answer: answer, Sources: sources, Cached: false}
	encoded, err := json.Marshal(full)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err)
	}
	o.cache.Set(key, string(encoded))
	return &Result{ResponseType: ResponseFull, Full: full}, nil
}

func (o *Orchestrator) renderCached(responseType, body string) (*Result, error) {
	if responseType == ResponseAnswerOnly {
		return &Result{ResponseType: ResponseAnswerOnly, Text: body}, nil
	}
	var full FullResponse
	if err := json.Unmarshal([]byte(body), &full); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err)
	}
	full.Cached = true
	return &Result{ResponseType: ResponseFull, Full: &full}, nil
}

func (o *Orchestrator) renderNoDocs(responseType, key string) (*Result, error) {
	if responseType == ResponseAnswerOnly {
		body := noDocsAnswer + "\n\n"
		o.cache.Set(key, body)
		return &Result{ResponseType: ResponseAnswerOnly, Text: body}, nil
	}

	full := &FullResponse{Answer: noDocsAnswer, Sources: []Source{}, Cached: false}
	encoded, err := json.Marshal(full)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err)
	}
	o.cache.Set(key, string(encoded))
	return &Result{ResponseType: ResponseFull, Full: full}, nil
}

func (o *Orchestrator) generate(ctx context.Context, req Request, contextText string) (string, error) {
	payload, err := json.Marshal(novaRequest{
		System: []novaText{{Text: systemPrompt}},
		Messages: []novaMessage{{
			Role:    "user",
			Content: []novaText{{Text: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, req.Query)}},
		}},
		InferenceConfig: inferenceConfig{
			MaxTokens:   o.params.MaxTokens,
			Temperature: o.params.Temperature,
			TopP:        o.params.TopP,
		},
	})
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err)
	}

	raw, err := o.generator.Invoke(ctx, req.ModelID, payload)
	if err != nil {
		return "", errors.Wrap(errors.CodeGenerationFailed, err).WithDetail("model_id", req.ModelID)
	}

	var parsed novaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(errors.CodeGenerationFailed, err).WithDetail("model_id", req.ModelID)
	}
	if parsed.Output != nil && parsed.Output.Message != nil {
		if len(parsed.Output.Message.Content) == 0 {
			return "", nil
		}
		return strings.TrimSpace(parsed.Output.Message.Content[0].Text), nil
	}
	return strings.TrimSpace(parsed.Completion), nil
}
