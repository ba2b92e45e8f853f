package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"

	"github.com/autoimport-pro/server/internal/agent/model"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// Tool names exposed to the response model.
const (
	ToolSearchCars      = "search_cars"
	ToolAvailableBrands = "get_available_brands"
	ToolPriceRange      = "get_price_range"
)

type handler func(ctx context.Context, args string) (string, error)

// catalogTool is one entry of the closed registry. Failures are returned as
// text results so the model can explain them to the customer.
type catalogTool struct {
	info *schema.ToolInfo
	run  handler
}

func (t *catalogTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *catalogTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("tool_name", t.info.Name).Msgf("panic recovered: %v", r)
			out, err = failureResult(t.info.Name, fmt.Errorf("internal error")), nil
		}
	}()

	out, err = t.run(ctx, argumentsInJSON)
	if err != nil {
		logx.Warn().Err(err).Str("tool_name", t.info.Name).Str("arguments", argumentsInJSON).Msg("Tool execution failed")
		return failureResult(t.info.Name, err), nil
	}
	return out, nil
}

func failureResult(name string, err error) string {
	return fmt.Sprintf("Tool %s failed: %v. Tell the customer the catalog is temporarily unavailable and continue the conversation.", name, err)
}

// Registry is the fixed set of catalog tools.
type Registry struct {
	catalog  model.Catalog
	validate *validator.Validate
	tools    map[string]*catalogTool
}

func NewRegistry(catalog model.Catalog) *Registry {
	r := &Registry{
		catalog:  catalog,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	r.tools = map[string]*catalogTool{
		ToolSearchCars:      {info: searchCarsInfo, run: r.searchCars},
		ToolAvailableBrands: {info: availableBrandsInfo, run: r.availableBrands},
		ToolPriceRange:      {info: priceRangeInfo, run: r.priceRange},
	}
	return r
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registry as eino tools for a ToolsNode.
func (r *Registry) Tools() []tool.BaseTool {
	out := make([]tool.BaseTool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}

// Infos returns the tool schemas to offer the model.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, t := range r.Tools() {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// run executes a tool by name. Unknown names get the UnknownTool result.
func (r *Registry) run(ctx context.Context, name, args string) string {
	t, ok := r.tools[name]
	if !ok {
		out, _ := r.UnknownTool(ctx, name, args)
		return out
	}
	out, _ := t.InvokableRun(ctx, args)
	return out
}

// UnknownTool answers calls to tools outside the registry.
func (r *Registry) UnknownTool(_ context.Context, name, input string) (string, error) {
	logx.Warn().
		Str("tool_name", name).
		Str("arguments", input).
		Msg("Unknown or invalid tool call; returning fallback result")
	b, _ := json.Marshal(map[string]any{
		"error":     "unknown_tool",
		"name":      name,
		"available": r.Names(),
		"note":      "this tool does not exist; answer without it",
	})
	return string(b), nil
}
