package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/autoimport-pro/server/internal/agent/model"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey     string
	BaseURL    string
	Extraction *model.ExtractionModelConfig
	Response   *model.ResponseModelConfig
}

// ChatModels holds the extraction and response oracles.
type ChatModels struct {
	Extraction          model.Generator
	Response            model.Generator
	ExtractionModelName string
	ResponseModelName   string
}

// NewChatModels creates both Gemini chat models on one shared client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Extraction == nil || config.Response == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Extraction must answer with bare JSON, so no thinking budget.
	extraction, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Extraction.Model,
		Temperature: &config.Extraction.Temperature,
		MaxTokens:   &config.Extraction.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating extraction model")
		return nil, fmt.Errorf("error creating extraction model: %w", err)
	}

	response, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Response.Model,
		Temperature: &config.Response.Temperature,
		MaxTokens:   &config.Response.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &ChatModels{
		Extraction:          extraction,
		Response:            response,
		ExtractionModelName: config.Extraction.Model,
		ResponseModelName:   config.Response.Model,
	}, nil
}
