package contracts

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ITokenManagement interface {
	UsedTokens(providerName string, modelName string, tokens int, reportedCost *float64) float64
	RequestFinished(operation string, outcome string, elapsed time.Duration)
	CalculateCost(providerName string, modelName string, tokens int) float64
	GetCurrentTokenUsage() (tokens int, cost float64)
	ClearToken()
	Registry() *prometheus.Registry
}
