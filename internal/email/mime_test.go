package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mail-butler/pkg/types"
)

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: Contract", ReplySubject("Contract"))
	assert.Equal(t, "Re: Contract", ReplySubject("Re: Contract"))
	assert.Equal(t, "RE: Contract", ReplySubject("  RE: Contract "))
	assert.Equal(t, "Re: ", ReplySubject(""))
}

func TestThreadKey(t *testing.T) {
	assert.Equal(t, "root@x", ThreadKey("<self@x>", "<parent@x>", "<root@x> <parent@x>"))
	assert.Equal(t, "parent@x", ThreadKey("<self@x>", "<parent@x>", ""))
	assert.Equal(t, "self@x", ThreadKey("<self@x>", "", ""))
}

func TestParseMessageAndBuildReply(t *testing.T) {
	raw := "From: Alice <alice@example.com>\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Contract\r\n" +
		"Message-ID: <m2@example.com>\r\n" +
		"In-Reply-To: <m1@example.com>\r\n" +
		"References: <m1@example.com>\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Can you send the updated contract by Friday?\r\n"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Alice <alice@example.com>", msg.From)
	assert.Equal(t, "Contract", msg.Subject)
	assert.Equal(t, "m2@example.com", msg.MessageID)
	assert.Equal(t, "m1@example.com", msg.ThreadID)
	assert.Equal(t, "Can you send the updated contract by Friday?", msg.Body)

	out := NewReply("me@example.com", msg, "Sure, by Friday.")
	assert.Equal(t, "Re: Contract", out.Subject)
	assert.Equal(t, "m2@example.com", out.InReplyTo)
	assert.Equal(t, []string{"m1@example.com", "m2@example.com"}, out.References)

	built, err := Build(out)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", built.To)
	assert.Contains(t, built.MessageID, "@example.com")

	back, err := ParseMessage(built.Raw)
	require.NoError(t, err)
	assert.Equal(t, "Re: Contract", back.Subject)
	assert.Equal(t, built.MessageID, back.MessageID)
	assert.Equal(t, "m1@example.com", back.ThreadID, "reply stays in the original thread")
	assert.Equal(t, "Sure, by Friday.", back.Body)
}

func TestParseHTMLOnlyMessage(t *testing.T) {
	raw := "From: news@example.com\r\n" +
		"Subject: Hi\r\n" +
		"Message-ID: <h1@example.com>\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Can we meet <b>tomorrow</b>?</p>\r\n"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "tomorrow")
	assert.NotContains(t, msg.Body, "<b>")
	assert.Equal(t, "h1@example.com", msg.ThreadID)
}

func TestBuildRejectsBadRecipient(t *testing.T) {
	_, err := Build(Outgoing{From: "me@example.com", To: "not an address", Subject: "x", Body: "y"})
	assert.Error(t, err)

	_, err = Build(NewReply("me@example.com", &types.Message{From: ""}, "hi"))
	assert.Error(t, err)
}

func TestParseUID(t *testing.T) {
	uid, err := parseUID("42")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), uid)

	for _, bad := range []string{"", "0", "abc", "-1", "99999999999"} {
		_, err := parseUID(bad)
		assert.Error(t, err, bad)
	}
}
