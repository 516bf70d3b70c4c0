package models

// GatewayRequest is the JSON body POSTed to the weave endpoint.
type GatewayRequest struct {
	Prompt       string             `json:"prompt"`
	SystemPrompt string             `json:"systemPrompt"`
	Provider     string             `json:"provider"`
	Model        string             `json:"model"`
	Temperature  float64            `json:"temperature"`
	MaxTokens    int                `json:"maxTokens"`
	CodeContext  GatewayCodeContext `json:"codeContext"`
}

// GatewayCodeContext describes where the prompt came from.
type GatewayCodeContext struct {
	Language string `json:"language"`
	FileName string `json:"fileName"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// GatewayResponse is the expected success body. Content is required.
type GatewayResponse struct {
	Content    *string  `json:"content"`
	TokensUsed *int     `json:"tokensUsed,omitempty"`
	Cost       *float64 `json:"cost,omitempty"`
	Provider   string   `json:"provider,omitempty"`
	Model      string   `json:"model,omitempty"`
}
