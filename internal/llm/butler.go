package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/pkg/types"
)

const (
	triageTemperature  = 0.4
	composeTemperature = 0.6
)

const (
	headClass   = "CLASS:"
	headSummary = "SUMMARY:"
	headDraft   = "DRAFT REPLY:"
	headSubject = "SUBJECT:"
	headBody    = "BODY:"
)

// Butler classifies inbound mail, drafts replies and composes new emails
type Butler struct {
	client Client
	model  string
	logger *logrus.Logger
}

// NewButler wraps an LLM client
func NewButler(client Client, model string, logger *logrus.Logger) *Butler {
	return &Butler{client: client, model: model, logger: logger}
}

// ClassifyAndDraft returns the class, summary and reply draft for an inbound email
func (b *Butler) ClassifyAndDraft(ctx context.Context, subject, sender, body string) (*types.Triage, error) {
	content, err := b.client.Complete(ctx, Request{
		Model:       b.model,
		System:      triageInstruction,
		Prompt:      triagePrompt(subject, sender, body),
		Temperature: triageTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("triage generation failed: %w", err)
	}
	return ParseTriage(content), nil
}

// ParseTriage reads CLASS / SUMMARY / DRAFT REPLY sections. Missing
// sections become empty and an unknown class becomes INFO ONLY.
func ParseTriage(content string) *types.Triage {
	s := sections(content, headClass, headSummary, headDraft)
	return &types.Triage{
		Class:      types.ParseClass(strings.ToUpper(joinWords(s[headClass]))),
		Summary:    joinWords(s[headSummary]),
		DraftReply: joinLines(s[headDraft]),
	}
}

// Compose writes an outgoing email from the user's context, relationship and mood
func (b *Butler) Compose(ctx context.Context, req types.ComposeRequest) (*types.Composition, error) {
	content, err := b.client.Complete(ctx, Request{
		Model:       b.model,
		System:      composeInstruction,
		Prompt:      composePrompt(req),
		Temperature: composeTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("compose generation failed: %w", err)
	}
	c := ParseComposition(content, req.SenderName)
	b.logger.WithFields(logrus.Fields{
		"class":   c.Class,
		"subject": c.Subject,
	}).Debug("Composed email")
	return c, nil
}

// ParseComposition reads CLASS / SUMMARY / SUBJECT / BODY sections,
// substitutes the sender name for placeholders and lays out the body
func ParseComposition(content, senderName string) *types.Composition {
	s := sections(content, headClass, headSummary, headSubject, headBody)

	body := joinLines(s[headBody])
	if senderName != "" {
		body = strings.ReplaceAll(body, "[Your Name]", senderName)
		body = strings.ReplaceAll(body, "Your Name", senderName)
	}

	return &types.Composition{
		Class:   types.ParseClass(strings.ToUpper(joinWords(s[headClass]))),
		Summary: joinWords(s[headSummary]),
		Subject: joinWords(s[headSubject]),
		Body:    FormatEmailBody(body),
	}
}
