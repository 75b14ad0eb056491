package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/internal/config"
)

const commandTimeout = 60 * time.Second

// IMAPClient wraps an IMAP client connection. The connection is opened
// lazily and re-dialled after the server drops it.
type IMAPClient struct {
	config *config.IMAPConfig
	logger *logrus.Logger

	mu     sync.Mutex
	client *client.Client
}

// NewIMAPClient creates a new IMAP client (does not connect immediately)
func NewIMAPClient(cfg *config.IMAPConfig, logger *logrus.Logger) *IMAPClient {
	return &IMAPClient{config: cfg, logger: logger}
}

// connect must be called with c.mu held
func (c *IMAPClient) connect() error {
	if c.client != nil {
		if c.client.State() != imap.LogoutState {
			return nil
		}
		c.client = nil
	}

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)

	cl, err := client.DialTLS(addr, &tls.Config{
		ServerName: c.config.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	cl.Timeout = commandTimeout

	if err := cl.Login(c.config.Username, c.config.Password); err != nil {
		c.logger.WithError(err).Error("Failed to login to IMAP server")
		cl.Logout() //nolint:errcheck
		return &AuthError{
			Server:  c.config.Host,
			Message: fmt.Sprintf("login failed for %s: %v", c.config.Username, err),
		}
	}

	c.client = cl
	c.logger.WithField("host", c.config.Host).Info("Connected to IMAP server")
	return nil
}

// withMailbox connects, selects mailbox and runs fn
func (c *IMAPClient) withMailbox(mailbox string, readOnly bool, fn func(cl *client.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return err
	}
	if _, err := c.client.Select(mailbox, readOnly); err != nil {
		// A dead connection surfaces here first; drop it so the next call redials
		c.dropLocked()
		return fmt.Errorf("failed to select %s: %w", mailbox, err)
	}
	return fn(c.client)
}

func (c *IMAPClient) dropLocked() {
	if c.client != nil {
		c.client.Logout() //nolint:errcheck
		c.client = nil
	}
}

// Close closes the IMAP connection
func (c *IMAPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Logout()
	c.client = nil
	return err
}

// Ping logs in and selects the inbox
func (c *IMAPClient) Ping() error {
	return c.withMailbox(c.config.Mailbox, true, func(*client.Client) error { return nil })
}

// SearchUnseenSince returns UIDs of unread messages received on or after since, ascending
func (c *IMAPClient) SearchUnseenSince(since time.Time) ([]uint32, error) {
	var uids []uint32
	err := c.withMailbox(c.config.Mailbox, true, func(cl *client.Client) error {
		criteria := imap.NewSearchCriteria()
		criteria.WithoutFlags = []string{imap.SeenFlag}
		criteria.Since = since

		var err error
		uids, err = cl.UidSearch(criteria)
		if err != nil {
			return fmt.Errorf("failed to search emails: %w", err)
		}
		return nil
	})
	return uids, err
}

// FetchRaw returns the full RFC 822 message without setting \Seen
func (c *IMAPClient) FetchRaw(uid uint32) ([]byte, error) {
	var raw []byte
	err := c.withMailbox(c.config.Mailbox, true, func(cl *client.Client) error {
		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uid)

		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

		messages := make(chan *imap.Message, 1)
		done := make(chan error, 1)
		go func() {
			done <- cl.UidFetch(seqSet, items, messages)
		}()

		for msg := range messages {
			if literal := msg.GetBody(section); literal != nil {
				b, err := io.ReadAll(literal)
				if err != nil {
					c.logger.WithError(err).Error("Error reading literal")
					continue
				}
				raw = b
			}
		}

		if err := <-done; err != nil {
			return fmt.Errorf("failed to fetch message: %w", err)
		}
		if raw == nil {
			return fmt.Errorf("message UID %d not found", uid)
		}
		return nil
	})
	return raw, err
}

// AddFlags sets flags on a message without echoing the new flag list
func (c *IMAPClient) AddFlags(uid uint32, flags ...string) error {
	return c.withMailbox(c.config.Mailbox, false, func(cl *client.Client) error {
		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uid)

		values := make([]interface{}, len(flags))
		for i, f := range flags {
			values[i] = f
		}
		if err := cl.UidStore(seqSet, imap.FormatFlagsOp(imap.AddFlags, true), values, nil); err != nil {
			return fmt.Errorf("failed to store flags: %w", err)
		}
		return nil
	})
}

// Append stores a raw message in mailbox
func (c *IMAPClient) Append(mailbox string, flags []string, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return err
	}
	if err := c.client.Append(mailbox, flags, time.Now(), bytes.NewBuffer(raw)); err != nil {
		c.dropLocked()
		return fmt.Errorf("failed to append to %s: %w", mailbox, err)
	}
	return nil
}
