package email

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/brandon/mail-butler/pkg/types"
)

// Outgoing is a plain-text message ready to be serialised
type Outgoing struct {
	From      string
	To        string
	Subject   string
	Body      string
	InReplyTo string
	// References holds bare message ids, oldest first
	References []string
}

// Built is a serialised message and the Message-ID it was given
type Built struct {
	MessageID string
	Raw       []byte
	To        string
}

// ReplySubject prefixes "Re: " unless the subject already carries it
func ReplySubject(subject string) string {
	s := strings.TrimSpace(subject)
	if len(s) >= 3 && strings.EqualFold(s[:3], "re:") {
		return s
	}
	return "Re: " + s
}

// ParseMsgIDs splits a References or In-Reply-To header into bare ids
func ParseMsgIDs(header string) []string {
	var ids []string
	for _, f := range strings.Fields(header) {
		f = strings.Trim(f, "<>,")
		if f != "" {
			ids = append(ids, f)
		}
	}
	return ids
}

// ThreadKey picks the conversation root: first References entry, then
// In-Reply-To, then the message's own id
func ThreadKey(messageID, inReplyTo, references string) string {
	if refs := ParseMsgIDs(references); len(refs) > 0 {
		return refs[0]
	}
	if irt := ParseMsgIDs(inReplyTo); len(irt) > 0 {
		return irt[0]
	}
	return strings.Trim(strings.TrimSpace(messageID), "<>")
}

// NewReply builds a reply to msg from the account address
func NewReply(from string, msg *types.Message, text string) Outgoing {
	refs := ParseMsgIDs(msg.References)
	if msg.MessageID != "" {
		refs = append(refs, msg.MessageID)
	}
	return Outgoing{
		From:       from,
		To:         msg.From,
		Subject:    ReplySubject(msg.Subject),
		Body:       text,
		InReplyTo:  msg.MessageID,
		References: refs,
	}
}

// Build serialises o as a single text/plain utf-8 part
func Build(o Outgoing) (*Built, error) {
	from, err := mail.ParseAddress(o.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", o.From, err)
	}
	to, err := mail.ParseAddress(o.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", o.To, err)
	}

	domain := "mail-butler.local"
	if at := strings.LastIndex(from.Address, "@"); at != -1 {
		domain = from.Address[at+1:]
	}
	id := uuid.NewString() + "@" + domain

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(o.Subject)
	h.SetMessageID(id)
	if o.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{o.InReplyTo})
	}
	if len(o.References) > 0 {
		h.SetMsgIDList("References", o.References)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if _, err := io.WriteString(w, o.Body); err != nil {
		return nil, fmt.Errorf("failed to write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}

	return &Built{MessageID: id, Raw: buf.Bytes(), To: to.Address}, nil
}
