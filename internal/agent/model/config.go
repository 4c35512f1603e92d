package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"24h"`
	NLU struct {
		MaxTurns int `envconfig:"CONVERSATION_NLU_MAX_TURNS" default:"6"`
	}
	Save struct {
		MaxRetries int `envconfig:"CONVERSATION_SAVE_MAX_RETRIES" default:"3"`
	}
}

// ParsedTTL returns the session TTL, or 0 when it is invalid or disabled.
func (c ConversationConfig) ParsedTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

type NLUModelConfig struct {
	Model                 string  `envconfig:"NLU_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens             int     `envconfig:"NLU_MAX_TOKENS" default:"512"`
	Temperature           float32 `envconfig:"NLU_TEMPERATURE" default:"0"`
	ThinkingBudget        int32   `envconfig:"NLU_THINKING_BUDGET" default:"0"`
	FrustrationConfidence float64 `envconfig:"NLU_FRUSTRATION_CONFIDENCE" default:"0.6"`
}

type ResponseModelConfig struct {
	Model          string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"RESPONSE_MAX_TOKENS" default:"1024"`
	Temperature    float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
	ThinkingBudget int32   `envconfig:"RESPONSE_THINKING_BUDGET" default:"0"`
}

type ResponsePromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"online store"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"ShopAssist"`
}

// TimeoutConfig bounds every external call made during a turn.
type TimeoutConfig struct {
	LLM       time.Duration `envconfig:"AGENT_LLM_TIMEOUT" default:"8s"`
	Retrieval time.Duration `envconfig:"AGENT_RETRIEVAL_TIMEOUT" default:"5s"`
	Lookup    time.Duration `envconfig:"AGENT_LOOKUP_TIMEOUT" default:"3s"`
}

type KnowledgeConfig struct {
	TopK           int     `envconfig:"KNOWLEDGE_TOP_K" default:"3"`
	ScoreThreshold float64 `envconfig:"KNOWLEDGE_SCORE_THRESHOLD" default:"0.55"`
	EmbeddingModel string  `envconfig:"KNOWLEDGE_EMBEDDING_MODEL" default:"text-embedding-004"`
}
