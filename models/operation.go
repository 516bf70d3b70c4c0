package models

import (
	"fmt"
	"time"
)

// Operation selects the prompt templates and the result surface of a request.
type Operation string

const (
	OperationGeneratePrompt      Operation = "generate-prompt"
	OperationAnalyze             Operation = "analyze"
	OperationSuggestOptimization Operation = "suggest-optimization"
	OperationComplete            Operation = "complete"
)

// Operations lists every supported operation kind.
var Operations = []Operation{
	OperationGeneratePrompt,
	OperationAnalyze,
	OperationSuggestOptimization,
	OperationComplete,
}

// ParseOperation maps a wire name onto an Operation.
func ParseOperation(name string) (Operation, error) {
	for _, op := range Operations {
		if string(op) == name {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation '%s'", name)
}

// ResultKind classifies an OperationResult.
type ResultKind string

const (
	KindAnalysis   ResultKind = "analysis"
	KindSuggestion ResultKind = "suggestion"
	KindCompletion ResultKind = "completion"
)

// ResultKind returns the kind of result an operation produces.
func (op Operation) ResultKind() ResultKind {
	switch op {
	case OperationAnalyze:
		return KindAnalysis
	case OperationComplete:
		return KindCompletion
	default:
		return KindSuggestion
	}
}

// Metadata keys reported by transports.
const (
	MetaTokensUsed = "tokensUsed"
	MetaCost       = "cost"
	MetaProvider   = "provider"
	MetaModel      = "model"
)

// OperationResult is produced once by a transport and consumed once by the result dispatcher.
type OperationResult struct {
	Kind      ResultKind
	Content   string
	Language  string
	Timestamp time.Time
	Metadata  map[string]any
}

// TokensUsed returns the reported token count, or 0.
func (r *OperationResult) TokensUsed() int {
	switch v := r.Metadata[MetaTokensUsed].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Cost returns the reported cost and whether one was present.
func (r *OperationResult) Cost() (float64, bool) {
	v, ok := r.Metadata[MetaCost].(float64)
	return v, ok
}
