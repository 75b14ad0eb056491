package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/gmail/v1"

	"github.com/brandon/mail-butler/internal/triage"
)

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func TestParseMessageMultipart(t *testing.T) {
	msg := &gmail.Message{
		Id:       "18c1",
		ThreadId: "18c0",
		Snippet:  "snippet text",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Alice <alice@example.com>"},
				{Name: "Subject", Value: "Contract"},
				{Name: "Message-Id", Value: "<abc@mail.example.com>"},
				{Name: "References", Value: "<root@mail.example.com>"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("Can you send it?\r\n")}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>Can you send it?</p>")}},
			},
		},
	}

	out := parseMessage(msg)
	assert.Equal(t, "18c1", out.ID)
	assert.Equal(t, "18c0", out.ThreadID)
	assert.Equal(t, "Alice <alice@example.com>", out.From)
	assert.Equal(t, "Contract", out.Subject)
	assert.Equal(t, "abc@mail.example.com", out.MessageID)
	assert.Equal(t, "<root@mail.example.com>", out.References)
	assert.Equal(t, "Can you send it?", out.Body)
}

func TestParseMessageWithoutPlainTextHasEmptyBody(t *testing.T) {
	msg := &gmail.Message{
		Id:      "1",
		Snippet: "I&#39;ll get back to you",
		Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: b64("<p>I'll get back to you</p>")},
		},
	}
	assert.Empty(t, parseMessage(msg).Body)
	assert.Empty(t, parseMessage(&gmail.Message{Snippet: "x"}).Body)
	assert.False(t, triage.NeedsReply("Re: plan", parseMessage(msg).Body), "empty body is guarded")
}

func TestDecodeBase64URLUnpadded(t *testing.T) {
	raw := base64.RawURLEncoding.EncodeToString([]byte("hi there"))
	data, err := decodeBase64URL(raw)
	assert.NoError(t, err)
	assert.Equal(t, "hi there", string(data))
}
