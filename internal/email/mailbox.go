package email

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/internal/config"
	"github.com/brandon/mail-butler/pkg/types"
)

// Mailbox reads the inbox over IMAP and sends over SMTP. Message ids are
// IMAP UIDs in decimal.
type Mailbox struct {
	imap    *IMAPClient
	smtp    *SMTPClient
	address string
	drafts  string
	logger  *logrus.Logger
	now     func() time.Time
}

// NewMailbox wires the IMAP and SMTP clients for one account
func NewMailbox(cfg *config.Config, logger *logrus.Logger) *Mailbox {
	return &Mailbox{
		imap:    NewIMAPClient(&cfg.IMAP, logger),
		smtp:    NewSMTPClient(&cfg.SMTP, logger),
		address: cfg.SMTP.Username,
		drafts:  cfg.IMAP.DraftsMailbox,
		logger:  logger,
		now:     time.Now,
	}
}

// Validate checks that the IMAP credentials work
func (m *Mailbox) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.imap.Ping()
}

// Address is the account's own address
func (m *Mailbox) Address() string { return m.address }

// ListCandidates returns up to max unread messages received today, oldest first
func (m *Mailbox) ListCandidates(ctx context.Context, max int) ([]types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	uids, err := m.imap.SearchUnseenSince(today)
	if err != nil {
		return nil, err
	}
	if max > 0 && len(uids) > max {
		uids = uids[len(uids)-max:]
	}

	out := make([]types.Candidate, 0, len(uids))
	for _, uid := range uids {
		out = append(out, types.Candidate{ID: strconv.FormatUint(uint64(uid), 10)})
	}
	return out, nil
}

// GetDetail fetches and parses one message
func (m *Mailbox) GetDetail(ctx context.Context, id string) (*types.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}
	raw, err := m.imap.FetchRaw(uid)
	if err != nil {
		return nil, err
	}
	msg, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	msg.ID = id
	return msg, nil
}

// ParseMessage turns RFC 822 bytes into a Message. HTML-only bodies are
// flattened to text.
func ParseMessage(raw []byte) (*types.Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	messageID := strings.Trim(strings.TrimSpace(env.GetHeader("Message-ID")), "<>")
	references := env.GetHeader("References")
	return &types.Message{
		ThreadID:   ThreadKey(messageID, env.GetHeader("In-Reply-To"), references),
		From:       env.GetHeader("From"),
		Subject:    env.GetHeader("Subject"),
		Body:       strings.TrimSpace(env.Text),
		MessageID:  messageID,
		References: references,
	}, nil
}

// MarkRead sets \Seen on the message
func (m *Mailbox) MarkRead(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uid, err := parseUID(id)
	if err != nil {
		return err
	}
	return m.imap.AddFlags(uid, imap.SeenFlag)
}

// CreateDraftReply stores a threaded reply in the drafts mailbox and
// returns its Message-ID
func (m *Mailbox) CreateDraftReply(ctx context.Context, msg *types.Message, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	built, err := Build(NewReply(m.address, msg, text))
	if err != nil {
		return "", err
	}
	if err := m.imap.Append(m.drafts, []string{imap.DraftFlag, imap.SeenFlag}, built.Raw); err != nil {
		return "", err
	}
	return built.MessageID, nil
}

// SendReply sends a threaded reply and returns its Message-ID
func (m *Mailbox) SendReply(ctx context.Context, msg *types.Message, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	built, err := Build(NewReply(m.address, msg, text))
	if err != nil {
		return "", err
	}
	if err := m.smtp.Send(ctx, []string{built.To}, built.Raw); err != nil {
		return "", fmt.Errorf("failed to send reply: %w", err)
	}
	return built.MessageID, nil
}

// SendNew sends a fresh message outside any thread
func (m *Mailbox) SendNew(ctx context.Context, to, subject, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	built, err := Build(Outgoing{From: m.address, To: to, Subject: subject, Body: body})
	if err != nil {
		return "", err
	}
	if err := m.smtp.Send(ctx, []string{built.To}, built.Raw); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.WithField("to", built.To).Info("Email sent")
	return built.MessageID, nil
}

// Close closes the IMAP connection
func (m *Mailbox) Close() error {
	return m.imap.Close()
}

func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid message id %q", id)
	}
	return uint32(uid), nil
}
