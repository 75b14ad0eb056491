package tools

import (
	"context"

	"github.com/brandon/mail-butler/internal/compose"
	"github.com/brandon/mail-butler/pkg/types"
)

// ComposeEmailTool generates an outgoing email without sending it
type ComposeEmailTool struct {
	composer compose.Composer
}

// NewComposeEmailTool creates a new compose tool
func NewComposeEmailTool(composer compose.Composer) *ComposeEmailTool {
	return &ComposeEmailTool{composer: composer}
}

func (t *ComposeEmailTool) Name() string { return "compose_email" }

func (t *ComposeEmailTool) Description() string {
	return "Write an email from a short description, relationship and mood. The result is returned, not sent"
}

func (t *ComposeEmailTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"context":         stringProp("What the email should say or achieve"),
			"relationship":    stringProp("Optional: relationship to the recipient (default unknown)"),
			"mood":            stringProp("Optional: professional, casual, happy, sad, loving, romantic (default professional)"),
			"recipient_email": stringProp("Optional: recipient address"),
			"sender_name":     stringProp("Optional: name used in the signature"),
		},
		"required": []string{"context"},
	}
}

func (t *ComposeEmailTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return compose.Draft(ctx, t.composer, types.ComposeRequest{
		Context:        stringParam(params, "context"),
		Relationship:   stringParam(params, "relationship"),
		Mood:           stringParam(params, "mood"),
		RecipientEmail: stringParam(params, "recipient_email"),
		SenderName:     stringParam(params, "sender_name"),
	})
}
