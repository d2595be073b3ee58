// Package errors provides structured error handling for miarag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Document errors (skippable at ingestion time)
//   - 3XX: Batch write errors (best effort, never rolled back)
//   - 4XX: Client input errors (reported as 4xx over HTTP)
//   - 5XX: Service errors (reported as 5xx over HTTP; abort ingestion runs)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryDocument indicates per-document ingestion errors. These are
	// skippable: the document is recorded in the run report and the run
	// continues with the next document.
	CategoryDocument Category = "DOCUMENT"
	// CategoryBatch indicates a rejected upsert batch. Earlier batches stand.
	CategoryBatch Category = "BATCH"
	// CategoryClient indicates invalid caller input.
	CategoryClient Category = "CLIENT"
	// CategoryService indicates a collaborator failure (vector store,
	// embedder, generation service).
	CategoryService Category = "SERVICE"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	CodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	CodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Document errors (200-299)
	CodeDocumentUnreadable = "ERR_201_DOCUMENT_UNREADABLE"
	CodeDocumentInvalid    = "ERR_202_DOCUMENT_INVALID_JSON"
	CodeDocumentNotObject  = "ERR_203_DOCUMENT_NOT_OBJECT"

	// Batch errors (300-399)
	CodeBatchWrite = "ERR_301_BATCH_WRITE"

	// Client input errors (400-499)
	CodeQueryEmpty     = "ERR_401_QUERY_EMPTY"
	CodeTopKOutOfRange = "ERR_402_TOPK_OUT_OF_RANGE"
	CodeInvalidInput   = "ERR_403_INVALID_INPUT"

	// Service errors (500-599)
	CodeStoreUnavailable = "ERR_501_STORE_UNAVAILABLE"
	CodeEmbeddingFailed  = "ERR_502_EMBEDDING_FAILED"
	CodeGenerationFailed = "ERR_503_GENERATION_FAILED"
	CodeInternal         = "ERR_504_INTERNAL"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryService
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryDocument
	case '3':
		return CategoryBatch
	case '4':
		return CategoryClient
	default:
		return CategoryService
	}
}
