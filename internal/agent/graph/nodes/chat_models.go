package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey     string
	BaseURL    string
	NLUConfig  *model.NLUModelConfig
	RespConfig *model.ResponseModelConfig
}

// ChatModels holds both NLU and Response chat models
type ChatModels struct {
	NLU               einomodel.BaseChatModel
	Response          einomodel.BaseChatModel
	NLUModelName      string
	ResponseModelName string
	// Client is shared with the knowledge embedder.
	Client *genai.Client
}

// NewGenaiClient creates the Gemini API client used by chat models and embeddings.
func NewGenaiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModels creates both NLU and Response chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.NLUConfig == nil || config.RespConfig == nil {
		return nil, fmt.Errorf("model configs are required")
	}

	client, err := NewGenaiClient(ctx, config.APIKey, config.BaseURL)
	if err != nil {
		return nil, err
	}

	// Create NLU Chat Model
	chatModelNLU, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.NLUConfig.Model,
		Temperature:    &config.NLUConfig.Temperature,
		MaxTokens:      &config.NLUConfig.MaxTokens,
		ThinkingConfig: thinkingConfig(config.NLUConfig.ThinkingBudget),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating NLU model")
		return nil, fmt.Errorf("error creating NLU model: %w", err)
	}

	// Create Response Chat Model
	chatModelResponse, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.RespConfig.Model,
		Temperature:    &config.RespConfig.Temperature,
		MaxTokens:      &config.RespConfig.MaxTokens,
		ThinkingConfig: thinkingConfig(config.RespConfig.ThinkingBudget),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, fmt.Errorf("error creating Response model: %w", err)
	}

	return &ChatModels{
		NLU:               chatModelNLU,
		Response:          chatModelResponse,
		NLUModelName:      config.NLUConfig.Model,
		ResponseModelName: config.RespConfig.Model,
		Client:            client,
	}, nil
}

// thinkingConfig maps a token budget onto the Gemini thinking config. Zero disables thinking.
func thinkingConfig(budget int32) *genai.ThinkingConfig {
	return &genai.ThinkingConfig{
		IncludeThoughts: false,
		ThinkingBudget:  genai.Ptr(budget),
	}
}
