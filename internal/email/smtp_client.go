package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/internal/config"
)

const (
	dialTimeout = 30 * time.Second
	sendTimeout = 2 * time.Minute
)

// SMTPClient submits prebuilt messages
type SMTPClient struct {
	config *config.SMTPConfig
	logger *logrus.Logger
}

// NewSMTPClient creates a new SMTP client
func NewSMTPClient(cfg *config.SMTPConfig, logger *logrus.Logger) *SMTPClient {
	return &SMTPClient{config: cfg, logger: logger}
}

// Send submits raw to the recipients. Port 465 uses implicit TLS, anything
// else STARTTLS. The whole exchange is bounded by ctx, or by sendTimeout
// when ctx has no deadline.
func (c *SMTPClient) Send(ctx context.Context, recipients []string, raw []byte) error {
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	tlsConfig := &tls.Config{ServerName: c.config.Host, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: dialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if c.config.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(sendTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set SMTP deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, c.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if c.config.Port != 465 {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if c.config.Password != "" {
		auth := smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
		if err := client.Auth(auth); err != nil {
			return &AuthError{Server: c.config.Host, Message: err.Error()}
		}
	}

	if err := client.Mail(c.config.Username); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, to := range recipients {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to send data command: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	c.logger.WithField("recipients", len(recipients)).Debug("Message submitted")
	return client.Quit()
}
