// api/models/query_models.go
package models

// --- Query/AI Request Structs ---

// ExecuteQueryRequest defines the structure for the raw SQL execution request body
type ExecuteQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// ChatMessage is one prior turn of an AI conversation, replayed so the model
// keeps context across requests.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content" binding:"required"`
}

// AIGenerateRequest defines the structure for the single-shot generation request body
type AIGenerateRequest struct {
	Prompt  string        `json:"prompt" binding:"required"`
	History []ChatMessage `json:"history" binding:"omitempty,dive"`
}

// AgentRequest defines the structure for the multi-step agent request body
type AgentRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}
