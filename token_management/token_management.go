package token_management

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/weavecode/weave/embed_data"
	"github.com/weavecode/weave/token_management/contracts"
)

// Request outcomes recorded by RequestFinished.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// TokenManager implementation
type tokenManager struct {
	mu        sync.Mutex
	usedToken int
	usedCost  float64

	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	costTotal       *prometheus.CounterVec
}

type details struct {
	MaxTokens                  int     `json:"max_tokens"`
	InputCostPerMillionTokens  float64 `json:"input_cost_per_million_tokens,omitempty"`
	OutputCostPerMillionTokens float64 `json:"output_cost_per_million_tokens,omitempty"`
	Mode                       string  `json:"mode"`
}

type Models struct {
	ModelDetails map[string]details `json:"models"`
}

var (
	modelsOnce   sync.Once
	parsedModels Models
	modelsErr    error
)

// NewTokenManager creates a new token manager with its own metrics registry
func NewTokenManager() contracts.ITokenManagement {
	tm := &tokenManager{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weave",
			Name:      "requests_total",
			Help:      "Requests sent to the model API by operation and outcome.",
		}, []string{"operation", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weave",
			Name:      "request_duration_seconds",
			Help:      "Latency of model API requests.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"operation"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weave",
			Name:      "tokens_total",
			Help:      "Tokens reported by the model API.",
		}, []string{"provider", "model"}),
		costTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weave",
			Name:      "cost_usd_total",
			Help:      "Cost in USD reported or estimated for model API requests.",
		}, []string{"provider", "model"}),
	}
	tm.registry.MustRegister(tm.requestsTotal, tm.requestDuration, tm.tokensTotal, tm.costTotal)
	return tm
}

// UsedTokens accumulates the token count for the session and returns the cost charged for it.
// The reported cost wins; otherwise it is estimated from the embedded price table.
func (tm *tokenManager) UsedTokens(providerName string, modelName string, tokens int, reportedCost *float64) float64 {
	cost := 0.0
	if reportedCost != nil {
		cost = *reportedCost
	} else {
		cost = tm.CalculateCost(providerName, modelName, tokens)
	}

	tm.mu.Lock()
	tm.usedToken += tokens
	tm.usedCost += cost
	tm.mu.Unlock()

	tm.tokensTotal.WithLabelValues(providerName, modelName).Add(float64(tokens))
	if cost > 0 {
		tm.costTotal.WithLabelValues(providerName, modelName).Add(cost)
	}
	return cost
}

// RequestFinished records the outcome and latency of one request.
func (tm *tokenManager) RequestFinished(operation string, outcome string, elapsed time.Duration) {
	tm.requestsTotal.WithLabelValues(operation, outcome).Inc()
	tm.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (tm *tokenManager) GetCurrentTokenUsage() (tokens int, cost float64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.usedToken, tm.usedCost
}

func (tm *tokenManager) ClearToken() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedToken = 0
	tm.usedCost = 0
}

func (tm *tokenManager) Registry() *prometheus.Registry {
	return tm.registry
}

// CalculateCost estimates the cost of a total token count. The endpoint does not split input and output,
// so the output price is used as the upper bound.
func (tm *tokenManager) CalculateCost(providerName string, modelName string, tokens int) float64 {
	modelDetails, err := getModelDetails(providerName, modelName)
	if err != nil {
		return 0
	}
	return float64(tokens) * modelDetails.OutputCostPerMillionTokens / 1000000.0
}

func getModelDetails(providerName string, modelName string) (details, error) {
	modelsOnce.Do(func() {
		parsedModels = Models{ModelDetails: make(map[string]details)}
		modelsErr = json.Unmarshal(embed_data.ModelDetails, &parsedModels)
		if modelsErr != nil {
			slog.Error("error unmarshaling model details", "error", modelsErr)
		}
	})
	if modelsErr != nil {
		return details{}, modelsErr
	}

	modelName = strings.ToLower(modelName)
	model, exists := parsedModels.ModelDetails[modelName]
	if !exists {
		return details{}, fmt.Errorf("model details price with name '%s' not found for provider '%s'", modelName, strings.ToLower(providerName))
	}

	return model, nil
}
