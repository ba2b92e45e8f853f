package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/autoimport-pro/server/internal/agent/graph/conversations"
	"github.com/autoimport-pro/server/internal/agent/graph/nodes"
	"github.com/autoimport-pro/server/internal/agent/graph/tools"
	"github.com/autoimport-pro/server/internal/agent/model"
	"github.com/autoimport-pro/server/internal/agent/resilience"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// Config holds everything needed to compose the full turn graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the Gemini chat models.
type Config struct {
	APIKey          string
	BaseURL         string
	ExtractionModel model.ExtractionModelConfig
	ResponseModel   model.ResponseModelConfig
	ResponsePrompt  model.ResponsePromptConfig
	Conversation    model.ConversationConfig
	Qualification   model.QualificationConfig
	Resilience      model.ResilienceConfig
	LeadRepo        model.LeadRepository
	Catalog         model.Catalog
	Knowledge       model.KnowledgeBase
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels           *nodes.ChatModels
	MessagesManager      *conversations.MessagesManager
	Registry             *tools.Registry
	Retrier              *resilience.Retrier
	Trackers             *resilience.TrackerSet
	Knowledge            model.KnowledgeBase
	LeadRepo             model.LeadRepository
	ResponsePromptConfig model.ResponsePromptConfig
	Qualification        model.QualificationConfig
	Conversation         model.ConversationConfig
}

// NewGraphConfig wires the collaborators of a Config around already built chat models.
func NewGraphConfig(cfg Config, cms *nodes.ChatModels) *GraphConfig {
	var history model.HistoryLoader
	if h, ok := cfg.LeadRepo.(model.HistoryLoader); ok {
		history = h
	}
	return &GraphConfig{
		ChatModels:           cms,
		MessagesManager:      conversations.NewMessagesManager(history, cfg.Conversation),
		Registry:             tools.NewRegistry(cfg.Catalog),
		Retrier:              resilience.NewRetrier(cfg.Resilience),
		Trackers:             resilience.NewTrackerSet(cfg.Resilience.FallbackScope, cfg.Resilience.FallbackThreshold),
		Knowledge:            cfg.Knowledge,
		LeadRepo:             cfg.LeadRepo,
		ResponsePromptConfig: cfg.ResponsePrompt,
		Qualification:        cfg.Qualification,
		Conversation:         cfg.Conversation,
	}
}

// BuildResponseGraph creates the chat models, builds the graph, and returns a Runner.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Extraction: &cfg.ExtractionModel,
		Response:   &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	runner, err := NewRunner(ctx, NewGraphConfig(cfg, cms))
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Response graph built successfully")
	return runner, nil
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.ConversationState, *model.ConversationState]
}

// BuildGraph constructs and returns the compiled turn graph:
//
//	SlotExtractor -> StageClassifier -> (Fallback | ResponseAssembler -> ResponseGenerator
//	-> [ToolExecutor -> FollowUpGenerator]) -> Finalizer -> Persist
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.ConversationState, *model.ConversationState], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Extraction == nil || config.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.Registry == nil {
		return nil, fmt.Errorf("tool registry is nil")
	}
	if config.Retrier == nil {
		config.Retrier = resilience.NewRetrier(model.ResilienceConfig{})
	}
	if config.Trackers == nil {
		config.Trackers = resilience.NewTrackerSet(model.ScopeSession, resilience.DefaultFallbackThreshold)
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.ConversationState, *model.ConversationState](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.addNodes(ctx); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes(ctx context.Context) error {
	cfg := b.config
	cms := cfg.ChatModels
	maxToolCalls := cfg.Conversation.Tools.MaxCalls

	extractor := &nodes.SlotExtractor{
		Generator:   cms.Extraction,
		ModelName:   cms.ExtractionModelName,
		Retrier:     cfg.Retrier,
		Prompt:      cfg.ResponsePromptConfig,
		PhoneRegion: cfg.Conversation.PhoneRegion,
	}
	responder := &nodes.Responder{
		Generator: cms.Response,
		ModelName: cms.ResponseModelName,
		Retrier:   cfg.Retrier,
		Trackers:  cfg.Trackers,
	}

	toolsNode, err := nodes.NewToolExecutorNode(ctx, cfg.Registry)
	if err != nil {
		return err
	}

	adds := []error{
		b.graph.AddLambdaNode(nodes.NodeSlotExtractor,
			nodes.NewSlotExtractorNode(extractor),
			compose.WithStatePreHandler(nodes.NewSlotExtractorPreHandler()),
		),
		b.graph.AddLambdaNode(nodes.NodeStageClassifier,
			nodes.NewStageClassifierNode(cfg.Qualification),
		),
		b.graph.AddLambdaNode(nodes.NodeFallback,
			nodes.NewFallbackNode(),
		),
		b.graph.AddLambdaNode(nodes.NodeResponseAssembler,
			nodes.NewResponseAssemblerNode(cfg.MessagesManager, cfg.Knowledge, cfg.ResponsePromptConfig),
		),
		b.graph.AddLambdaNode(nodes.NodeResponseGenerator,
			nodes.NewResponseGeneratorNode(responder, cfg.Registry),
			compose.WithStatePreHandler(nodes.NewResponseGeneratorPreHandler()),
			compose.WithStatePostHandler(nodes.NewResponseGeneratorPostHandler(cms.ResponseModelName)),
		),
		b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
			compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(maxToolCalls)),
		),
		b.graph.AddLambdaNode(nodes.NodeFollowUpGenerator,
			nodes.NewFollowUpGeneratorNode(responder, cfg.Registry),
			compose.WithStatePreHandler(nodes.NewFollowUpGeneratorPreHandler(maxToolCalls)),
			compose.WithStatePostHandler(nodes.NewFollowUpGeneratorPostHandler(cms.ResponseModelName)),
		),
		b.graph.AddLambdaNode(nodes.NodeFinalizer,
			nodes.NewFinalizerNode(),
		),
		b.graph.AddLambdaNode(nodes.NodePersist,
			nodes.NewPersistNode(cfg.LeadRepo, cfg.Conversation.PersistTimeout),
		),
	}
	for _, err := range adds {
		if err != nil {
			logx.Error().Err(err).Msg("Error adding node")
			return fmt.Errorf("error adding node: %w", err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeSlotExtractor},
		{nodes.NodeSlotExtractor, nodes.NodeStageClassifier},
		{nodes.NodeFallback, nodes.NodeFinalizer},
		{nodes.NodeResponseAssembler, nodes.NodeResponseGenerator},
		{nodes.NodeToolExecutor, nodes.NodeFollowUpGenerator},
		{nodes.NodeFollowUpGenerator, nodes.NodeFinalizer},
		{nodes.NodeFinalizer, nodes.NodePersist},
		{nodes.NodePersist, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	fallbackBranch := compose.NewGraphBranch(
		nodes.NewFallbackCondition(b.config.Trackers),
		map[string]bool{
			nodes.NodeFallback:          true,
			nodes.NodeResponseAssembler: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeStageClassifier, fallbackBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding fallback branch")
		return fmt.Errorf("error adding fallback branch: %w", err)
	}

	toolBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			nodes.NodeFinalizer:    true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseGenerator, toolBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding tool branch")
		return fmt.Errorf("error adding tool branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.ConversationState, *model.ConversationState], error) {
	// The graph is acyclic; the step cap only guards against misrouting.
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(20))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
