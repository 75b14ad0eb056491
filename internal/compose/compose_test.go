package compose

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mail-butler/pkg/types"
)

type recordingComposer struct {
	got types.ComposeRequest
}

func (r *recordingComposer) Compose(_ context.Context, req types.ComposeRequest) (*types.Composition, error) {
	r.got = req
	return &types.Composition{Class: types.ClassImportant, Summary: "s", Subject: "Hello", Body: "Hi,\n\nBody\n\nBest,\nPat"}, nil
}

type recordingSender struct {
	to, subject, body string
	err               error
}

func (r *recordingSender) SendNew(_ context.Context, to, subject, body string) (string, error) {
	r.to, r.subject, r.body = to, subject, body
	return "sent-1", r.err
}

func TestDraftAppliesDefaults(t *testing.T) {
	gen := &recordingComposer{}
	comp, err := Draft(context.Background(), gen, types.ComposeRequest{
		Context:    "  follow up on the interview ",
		SenderName: " Pat ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", comp.Subject)

	assert.Equal(t, "follow up on the interview", gen.got.Context)
	assert.Equal(t, "unknown", gen.got.Relationship)
	assert.Equal(t, "professional", gen.got.Mood)
	assert.Equal(t, "Pat", gen.got.SenderName)
}

func TestDraftRequiresContext(t *testing.T) {
	gen := &recordingComposer{}
	_, err := Draft(context.Background(), gen, types.ComposeRequest{Context: "   "})
	assert.ErrorIs(t, err, ErrMissingContext)
	assert.Empty(t, gen.got.Mood, "generator not called")
}

func TestDeliver(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	comp := &types.Composition{Subject: "Hello", Body: "Hi"}

	s := &recordingSender{}
	require.NoError(t, Deliver(context.Background(), s, "bob@example.com", comp, logger))
	assert.Equal(t, "bob@example.com", s.to)
	assert.Equal(t, "Hello", s.subject)

	assert.ErrorIs(t, Deliver(context.Background(), s, "", comp, logger), ErrMissingRecipient)

	s.err = errors.New("smtp down")
	assert.Error(t, Deliver(context.Background(), s, "bob@example.com", comp, logger))
}

func TestPreviewShowsEnvelope(t *testing.T) {
	out := Preview("bob@example.com", &types.Composition{
		Class: types.ClassInfoOnly, Summary: "quick hello", Subject: "Hello", Body: "Hi Bob",
	})
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "quick hello")
	assert.Contains(t, out, "Hi Bob")
}
