// Package gmail implements the mailbox over the Gmail REST API. Message and
// thread ids are Gmail's own.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/brandon/mail-butler/internal/config"
	"github.com/brandon/mail-butler/internal/email"
	"github.com/brandon/mail-butler/pkg/types"
)

const user = "me"

// Client is a Gmail-backed mailbox
type Client struct {
	srv     *gmail.Service
	address string
	logger  *logrus.Logger
	now     func() time.Time
}

// NewClient authorises against Gmail. Without a cached token it prints the
// consent URL and reads the authorisation code from stdin.
func NewClient(ctx context.Context, cfg *config.GmailConfig, logger *logrus.Logger) (*Client, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailModifyScope, gmail.GmailComposeScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	httpClient, err := oauthClient(ctx, oauthConfig, cfg.TokenFile, logger)
	if err != nil {
		return nil, err
	}
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &Client{srv: srv, logger: logger, now: time.Now}, nil
}

func oauthClient(ctx context.Context, cfg *oauth2.Config, tokenFile string, logger *logrus.Logger) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		if tok, err = tokenFromWeb(ctx, cfg); err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
		logger.WithField("path", tokenFile).Info("Saved Gmail token")
	}
	return cfg.Client(context.Background(), tok), nil
}

func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(os.Stderr, "Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}
	tok, err := cfg.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to save oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Validate resolves the account address, which proves the token works
func (c *Client) Validate(ctx context.Context) error {
	profile, err := c.srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return &email.AuthError{Server: "gmail", Message: err.Error()}
	}
	c.address = profile.EmailAddress
	c.logger.WithField("account", c.address).Info("Connected to Gmail")
	return nil
}

// Address is the authorised account's address
func (c *Client) Address() string { return c.address }

// ListCandidates lists unread inbox messages from today, newest first
func (c *Client) ListCandidates(ctx context.Context, max int) ([]types.Candidate, error) {
	call := c.srv.Users.Messages.List(user).
		LabelIds("INBOX", "UNREAD").
		Q("after:" + c.now().Format("2006/01/02")).
		Context(ctx)
	if max > 0 {
		call = call.MaxResults(int64(max))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	out := make([]types.Candidate, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, types.Candidate{ID: m.Id, ThreadID: m.ThreadId})
	}
	return out, nil
}

// GetDetail fetches one message in full format
func (c *Client) GetDetail(ctx context.Context, id string) (*types.Message, error) {
	msg, err := c.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get message %s: %w", id, err)
	}
	return parseMessage(msg), nil
}

func parseMessage(msg *gmail.Message) *types.Message {
	out := &types.Message{ID: msg.Id, ThreadID: msg.ThreadId}
	if msg.Payload == nil {
		return out
	}
	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			out.From = h.Value
		case "subject":
			out.Subject = h.Value
		case "message-id":
			out.MessageID = strings.Trim(strings.TrimSpace(h.Value), "<>")
		case "references":
			out.References = h.Value
		}
	}
	// Without a text/plain part the body stays empty
	out.Body = strings.TrimSpace(getPlainTextBody(msg.Payload))
	return out
}

func getPlainTextBody(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodeBase64URL(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mt := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mt, "text/") || strings.HasPrefix(mt, "multipart/") {
			if body := getPlainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

// decodeBase64URL accepts both padded and unpadded bodies
func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// MarkRead removes the UNREAD label
func (c *Client) MarkRead(ctx context.Context, id string) error {
	_, err := c.srv.Users.Messages.Modify(user, id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to mark %s read: %w", id, err)
	}
	return nil
}

func (c *Client) rawReply(msg *types.Message, text string) (*gmail.Message, error) {
	built, err := email.Build(email.NewReply(c.address, msg, text))
	if err != nil {
		return nil, err
	}
	return &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(built.Raw),
		ThreadId: msg.ThreadID,
	}, nil
}

// CreateDraftReply creates a draft in the message's thread and returns the draft id
func (c *Client) CreateDraftReply(ctx context.Context, msg *types.Message, text string) (string, error) {
	raw, err := c.rawReply(msg, text)
	if err != nil {
		return "", err
	}
	draft, err := c.srv.Users.Drafts.Create(user, &gmail.Draft{Message: raw}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create draft: %w", err)
	}
	return draft.Id, nil
}

// SendReply sends a reply in the message's thread and returns the sent id
func (c *Client) SendReply(ctx context.Context, msg *types.Message, text string) (string, error) {
	raw, err := c.rawReply(msg, text)
	if err != nil {
		return "", err
	}
	sent, err := c.srv.Users.Messages.Send(user, raw).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to send reply: %w", err)
	}
	return sent.Id, nil
}

// SendNew sends a message outside any thread
func (c *Client) SendNew(ctx context.Context, to, subject, body string) (string, error) {
	built, err := email.Build(email.Outgoing{From: c.address, To: to, Subject: subject, Body: body})
	if err != nil {
		return "", err
	}
	sent, err := c.srv.Users.Messages.Send(user, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(built.Raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to send email: %w", err)
	}
	c.logger.WithField("to", built.To).Info("Email sent")
	return sent.Id, nil
}

// Close is a no-op; the HTTP client holds no session
func (c *Client) Close() error { return nil }
