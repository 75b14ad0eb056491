package tools

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/internal/cache"
	"github.com/brandon/mail-butler/internal/compose"
	"github.com/brandon/mail-butler/internal/triage"
	"github.com/brandon/mail-butler/pkg/types"
)

// JournalReader is the read side of the triage journal
type JournalReader interface {
	Journal(ctx context.Context, opts cache.JournalOptions) ([]types.TriageRecord, error)
	CountByDecision(ctx context.Context) (map[string]int, error)
}

// Deps are the components tools act on. Nil members disable the tools that need them.
type Deps struct {
	Policy   *triage.Policy
	Journal  JournalReader
	Composer compose.Composer
	Sender   compose.Sender
}

// Registry manages MCP tools
type Registry struct {
	logger *logrus.Logger
	tools  map[string]Tool
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a new tool registry
func NewRegistry(deps Deps, logger *logrus.Logger) *Registry {
	reg := &Registry{
		logger: logger,
		tools:  make(map[string]Tool),
	}

	reg.register(NewCheckReplyTool(deps.Policy))
	if deps.Journal != nil {
		reg.register(NewListProcessedTool(deps.Journal))
	}
	if deps.Composer != nil {
		reg.register(NewComposeEmailTool(deps.Composer))
	}
	if deps.Sender != nil {
		reg.register(NewSendEmailTool(deps.Sender, logger))
	}

	logger.WithField("count", len(reg.tools)).Info("Registered tools")
	return reg
}

func (r *Registry) register(tool Tool) {
	r.tools[tool.Name()] = tool
	r.logger.WithField("tool", tool.Name()).Debug("Registered tool")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools sorted by name
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetToolDefinitions returns tool definitions for MCP
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	tools := r.ListTools()
	definitions := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}

// stringParam reads an optional string argument
func stringParam(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}
