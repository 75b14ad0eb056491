package tools

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mail-butler/internal/cache"
	"github.com/brandon/mail-butler/internal/triage"
	"github.com/brandon/mail-butler/pkg/types"
)

func TestCheck(t *testing.T) {
	p := triage.NewPolicy([]string{"boss@corp.example"}, nil)

	tests := []struct {
		name, sender, subject, body string
		want                        CheckResult
	}{
		{"system sender", "Jane <no-reply@service.com>", "Receipt", "Can you rate us?",
			CheckResult{Decision: "skip-system-sender", SystemSender: true}},
		{"closing ack", "alice@example.com", "Re: help", "Thanks, appreciate it!",
			CheckResult{Decision: "skip-no-reply-needed", Rule: triage.RuleClosingAck}},
		{"draft", "alice@example.com", "Contract", "Can you send the updated contract by Friday?",
			CheckResult{Decision: "generate-and-draft", NeedsReply: true, SendMode: "draft-only"}},
		{"auto send", "Boss <boss@corp.example>", "Contract", "Can you send the updated contract by Friday?",
			CheckResult{Decision: "generate-and-autosend", NeedsReply: true, SendMode: "auto-send"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(p, tt.sender, tt.subject, tt.body))
		})
	}
}

type fakeJournal struct {
	opts cache.JournalOptions
}

func (f *fakeJournal) Journal(_ context.Context, opts cache.JournalOptions) ([]types.TriageRecord, error) {
	f.opts = opts
	return []types.TriageRecord{{MessageID: "1", Decision: "generate-and-draft"}}, nil
}

func (f *fakeJournal) CountByDecision(_ context.Context) (map[string]int, error) {
	return map[string]int{"generate-and-draft": 1}, nil
}

func TestListProcessedParsesFilters(t *testing.T) {
	j := &fakeJournal{}
	tool := NewListProcessedTool(j)

	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"decision": "generate-and-draft",
		"sender":   "alice",
		"since":    "2026-03-01T09:00:00Z",
		"limit":    float64(5),
	})
	require.NoError(t, err)

	require.NotNil(t, j.opts.Decision)
	assert.Equal(t, "generate-and-draft", *j.opts.Decision)
	assert.Equal(t, "alice", *j.opts.Sender)
	assert.True(t, j.opts.Since.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, j.opts.Limit)
	assert.Equal(t, 1, out.(map[string]interface{})["count"])

	_, err = tool.Execute(context.Background(), map[string]interface{}{"since": "yesterday"})
	assert.Error(t, err)
}

type stubSender struct{ to string }

func (s *stubSender) SendNew(_ context.Context, to, _, _ string) (string, error) {
	s.to = to
	return "id-1", nil
}

func TestSendEmailValidates(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := &stubSender{}
	tool := NewSendEmailTool(s, logger)

	_, err := tool.Execute(context.Background(), map[string]interface{}{"to": "bob@example.com", "subject": "Hi"})
	assert.Error(t, err, "body required")

	_, err = tool.Execute(context.Background(), map[string]interface{}{"to": " bob@example.com ", "subject": "Hi", "body": "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", s.to)
}

func TestRegistryOnlyExposesWiredTools(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := NewRegistry(Deps{Journal: &fakeJournal{}, Sender: &stubSender{}}, logger)
	var names []string
	for _, tool := range reg.ListTools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"check_reply_needed", "list_processed", "send_email"}, names)
}
