package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mail-butler/pkg/types"
)

func TestParseTriage(t *testing.T) {
	content := `CLASS:
IMPORTANT

SUMMARY:
Alice asks for the updated contract.
She needs it by Friday.

DRAFT REPLY:
Hi Alice,

I will send the updated contract by Friday.

Best,
Sam`

	got := ParseTriage(content)
	assert.Equal(t, types.ClassImportant, got.Class)
	assert.Equal(t, "Alice asks for the updated contract. She needs it by Friday.", got.Summary)
	assert.Equal(t, "Hi Alice,\n\nI will send the updated contract by Friday.\n\nBest,\nSam", got.DraftReply)
}

func TestParseTriageDefaults(t *testing.T) {
	got := ParseTriage("I could not follow the format, sorry.")
	assert.Equal(t, types.ClassInfoOnly, got.Class)
	assert.Empty(t, got.Summary)
	assert.Empty(t, got.DraftReply)

	got = ParseTriage("CLASS: definitely urgent-ish\nSUMMARY: x")
	assert.Equal(t, types.ClassInfoOnly, got.Class)
	assert.Equal(t, "x", got.Summary)

	got = ParseTriage("CLASS:\nspam / marketing\nDRAFT REPLY:\n")
	assert.Equal(t, types.ClassSpam, got.Class)
	assert.Empty(t, got.DraftReply)
}

func TestParseComposition(t *testing.T) {
	content := `CLASS:
IMPORTANT
SUMMARY:
Follow up with the recruiter.
SUBJECT:
Following up on my application
BODY:
Dear Recruiter,
I wanted to follow up on my application.
I remain very interested in the role.
Thank you for your time.
Best regards,
[Your Name]`

	got := ParseComposition(content, "Pat")
	assert.Equal(t, types.ClassImportant, got.Class)
	assert.Equal(t, "Following up on my application", got.Subject)
	assert.Equal(t, "Dear Recruiter,\n\n"+
		"I wanted to follow up on my application. I remain very interested in the role.\n\n"+
		"Thank you for your time.\n\n"+
		"Best regards,\nPat", got.Body)
}

func TestFormatEmailBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "\n \n", ""},
		{"greeting only", "Hi Sam,", "Hi Sam,"},
		{"no thanks line", "Hi Sam,\nLunch on Friday works.\nSee you there.\nCheers,\nPat",
			"Hi Sam,\n\nLunch on Friday works. See you there.\n\nCheers,\nPat"},
		{"short", "Hi Sam,\nSee you.", "Hi Sam,\n\nSee you."},
		{"crlf and padding", "\r\nDear Team,\r\nThanks for the help.\r\nBest,\r\nPat\r\n\r\n",
			"Dear Team,\n\nThanks for the help.\n\nBest,\nPat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEmailBody(tt.in))
		})
	}
}

func TestButlerOverOpenAI(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"CLASS:\nURGENT\nSUMMARY:\nServer down.\nDRAFT REPLY:\nOn it."}}]}`)
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	b := NewButler(NewOpenAIClient("sk-test", srv.URL), "gpt-4.1-mini", logger)

	res, err := b.ClassifyAndDraft(context.Background(), "Outage", "ops@example.com", "Server is down, can you look?")
	require.NoError(t, err)
	assert.Equal(t, types.ClassUrgent, res.Class)
	assert.Equal(t, "On it.", res.DraftReply)

	assert.Equal(t, "gpt-4.1-mini", got["model"])
	assert.InDelta(t, 0.4, got["temperature"], 1e-9)
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Contains(t, msgs[1].(map[string]any)["content"], "SUBJECT: Outage")
}

func TestAnthropicClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "be brief", body["system"])
		assert.EqualValues(t, anthropicMaxTokens, body["max_tokens"])

		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}`)
	}))
	defer srv.Close()

	out, err := NewAnthropicClient("key", srv.URL).Complete(context.Background(), Request{
		Model: "claude", System: "be brief", Prompt: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"slow down"}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("k", srv.URL).Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimit())
	assert.False(t, apiErr.IsAuth())
	assert.Contains(t, apiErr.Error(), "slow down")
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("bard", "k", "")
	assert.Error(t, err)
}
