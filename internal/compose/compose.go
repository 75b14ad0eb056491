// Package compose drives the interactive "write an email for me" flow:
// collect intent, generate, preview, confirm, send.
package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/pkg/types"
)

const (
	defaultRelationship = "unknown"
	defaultMood         = "professional"
)

var (
	ErrMissingRecipient = errors.New("recipient email is required")
	ErrMissingContext   = errors.New("email context is required")
)

var moods = []string{"professional", "casual", "happy", "sad", "loving", "romantic"}

// Composer generates an outgoing email from a request
type Composer interface {
	Compose(ctx context.Context, req types.ComposeRequest) (*types.Composition, error)
}

// Sender delivers a new message and returns its id
type Sender interface {
	SendNew(ctx context.Context, to, subject, body string) (string, error)
}

// Normalize trims fields and fills the relationship and mood defaults
func Normalize(req types.ComposeRequest) (types.ComposeRequest, error) {
	req.Context = strings.TrimSpace(req.Context)
	req.Relationship = strings.TrimSpace(req.Relationship)
	req.Mood = strings.ToLower(strings.TrimSpace(req.Mood))
	req.RecipientEmail = strings.TrimSpace(req.RecipientEmail)
	req.SenderName = strings.TrimSpace(req.SenderName)

	if req.Context == "" {
		return req, ErrMissingContext
	}
	if req.Relationship == "" {
		req.Relationship = defaultRelationship
	}
	if req.Mood == "" {
		req.Mood = defaultMood
	}
	return req, nil
}

// Draft normalises req and asks gen for a composition. Nothing is sent.
func Draft(ctx context.Context, gen Composer, req types.ComposeRequest) (*types.Composition, error) {
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}
	return gen.Compose(ctx, req)
}

var (
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	labelStyle = lipgloss.NewStyle().Bold(true)
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Preview renders a composition for the terminal
func Preview(to string, c *types.Composition) string {
	var sb strings.Builder
	sb.WriteString(labelStyle.Render("To: ") + to + "\n")
	sb.WriteString(labelStyle.Render("Subject: ") + c.Subject + "\n")
	sb.WriteString(metaStyle.Render(fmt.Sprintf("[%s] %s", c.Class, c.Summary)) + "\n\n")
	sb.WriteString(c.Body)
	return boxStyle.Render(sb.String())
}

// Session is one interactive compose run
type Session struct {
	gen    Composer
	sender Sender
	out    io.Writer
	logger *logrus.Logger
}

// NewSession creates an interactive session writing previews to out
func NewSession(gen Composer, sender Sender, out io.Writer, logger *logrus.Logger) *Session {
	return &Session{gen: gen, sender: sender, out: out, logger: logger}
}

// Run collects the request, previews the generated email and sends it on confirmation
func (s *Session) Run(ctx context.Context) error {
	var req types.ComposeRequest
	mood := defaultMood

	options := make([]huh.Option[string], 0, len(moods))
	for _, m := range moods {
		options = append(options, huh.NewOption(m, m))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Recipient email").
				Value(&req.RecipientEmail).
				Validate(required("Recipient")),
			huh.NewInput().
				Title("Relationship").
				Description("e.g. recruiter, friend, client").
				Placeholder(defaultRelationship).
				Value(&req.Relationship),
			huh.NewSelect[string]().
				Title("Mood").
				Options(options...).
				Value(&mood),
			huh.NewInput().
				Title("Your name").
				Description("Used in the signature").
				Value(&req.SenderName),
			huh.NewText().
				Title("What should the email say?").
				Value(&req.Context).
				Validate(required("Context")),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return fmt.Errorf("compose form: %w", err)
	}
	req.Mood = mood

	if strings.TrimSpace(req.RecipientEmail) == "" {
		return ErrMissingRecipient
	}
	comp, err := Draft(ctx, s.gen, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, Preview(req.RecipientEmail, comp))

	send := false
	confirm := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Send this email?").Affirmative("Send").Negative("Discard").Value(&send),
	))
	if err := confirm.RunWithContext(ctx); err != nil && !errors.Is(err, huh.ErrUserAborted) {
		return fmt.Errorf("confirm form: %w", err)
	}
	if !send {
		s.logger.Info("Email discarded")
		return nil
	}

	return Deliver(ctx, s.sender, strings.TrimSpace(req.RecipientEmail), comp, s.logger)
}

// Deliver sends a confirmed composition
func Deliver(ctx context.Context, sender Sender, to string, c *types.Composition, logger *logrus.Logger) error {
	if to == "" {
		return ErrMissingRecipient
	}
	id, err := sender.SendNew(ctx, to, c.Subject, c.Body)
	if err != nil {
		return fmt.Errorf("failed to send composed email: %w", err)
	}
	logger.WithFields(logrus.Fields{"to": to, "sent_id": id}).Info("Composed email sent")
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
