package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/brandon/mail-butler/internal/cache"
)

// ListProcessedTool reads recent entries from the triage journal
type ListProcessedTool struct {
	journal JournalReader
}

// NewListProcessedTool creates a new journal listing tool
func NewListProcessedTool(journal JournalReader) *ListProcessedTool {
	return &ListProcessedTool{journal: journal}
}

func (t *ListProcessedTool) Name() string { return "list_processed" }

func (t *ListProcessedTool) Description() string {
	return "List recently triaged messages with the decision taken, newest first"
}

func (t *ListProcessedTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"decision": stringProp("Optional: skip-no-reply-needed, skip-system-sender, generate-and-draft or generate-and-autosend"),
			"sender":   stringProp("Optional: substring of the sender"),
			"since":    stringProp("Optional: RFC3339 timestamp"),
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: maximum rows (default 50)",
			},
		},
	}
}

func (t *ListProcessedTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	var opts cache.JournalOptions

	if d := stringParam(params, "decision"); d != "" {
		opts.Decision = &d
	}
	if s := stringParam(params, "sender"); s != "" {
		opts.Sender = &s
	}
	if s := stringParam(params, "since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid since: %w", err)
		}
		opts.Since = &since
	}
	// JSON numbers arrive as float64
	if l, ok := params["limit"].(float64); ok && l > 0 {
		opts.Limit = int(l)
	}

	records, err := t.journal.Journal(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	counts, err := t.journal.CountByDecision(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}

	return map[string]interface{}{
		"records": records,
		"count":   len(records),
		"totals":  counts,
	}, nil
}
