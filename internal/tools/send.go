package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/internal/compose"
)

// SendEmailTool sends a new plain-text email
type SendEmailTool struct {
	sender compose.Sender
	logger *logrus.Logger
}

// NewSendEmailTool creates a new send email tool
func NewSendEmailTool(sender compose.Sender, logger *logrus.Logger) *SendEmailTool {
	return &SendEmailTool{sender: sender, logger: logger}
}

// Name returns the tool name
func (t *SendEmailTool) Name() string {
	return "send_email"
}

// Description returns the tool description
func (t *SendEmailTool) Description() string {
	return "Send a new plain-text email from the configured account"
}

// InputSchema returns the JSON schema for tool inputs
func (t *SendEmailTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"to":      stringProp("Recipient email address"),
			"subject": stringProp("Email subject"),
			"body":    stringProp("Plain text body"),
		},
		"required": []string{"to", "subject", "body"},
	}
}

// Execute executes the tool
func (t *SendEmailTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	to := strings.TrimSpace(stringParam(params, "to"))
	if to == "" {
		return nil, fmt.Errorf("to is required")
	}
	subject := stringParam(params, "subject")
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	body := stringParam(params, "body")
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("body is required")
	}

	id, err := t.sender.SendNew(ctx, to, subject, body)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	t.logger.WithField("to", to).Info("Email sent via tool")

	return map[string]interface{}{
		"success": true,
		"id":      id,
		"message": "Email sent successfully",
	}, nil
}
