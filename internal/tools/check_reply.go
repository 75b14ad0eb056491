package tools

import (
	"context"
	"fmt"

	"github.com/brandon/mail-butler/internal/triage"
	"github.com/brandon/mail-butler/pkg/types"
)

// CheckReplyTool runs the sender and content guards and the send policy on
// an arbitrary message without touching any mailbox
type CheckReplyTool struct {
	policy *triage.Policy
}

// NewCheckReplyTool creates the dry-run triage tool
func NewCheckReplyTool(policy *triage.Policy) *CheckReplyTool {
	return &CheckReplyTool{policy: policy}
}

func (t *CheckReplyTool) Name() string { return "check_reply_needed" }

func (t *CheckReplyTool) Description() string {
	return "Report whether a message would get a generated reply, and whether that reply would be auto-sent or drafted"
}

func (t *CheckReplyTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sender":  stringProp("From header, e.g. \"Alice <alice@example.com>\""),
			"subject": stringProp("Message subject"),
			"body":    stringProp("Plain text body"),
		},
		"required": []string{"sender", "body"},
	}
}

// CheckResult is the dry-run verdict for one message
type CheckResult struct {
	Decision     string `json:"decision"`
	NeedsReply   bool   `json:"needs_reply"`
	Rule         string `json:"rule,omitempty"`
	SystemSender bool   `json:"system_sender"`
	SendMode     string `json:"send_mode,omitempty"`
}

func (t *CheckReplyTool) Execute(_ context.Context, params map[string]interface{}) (interface{}, error) {
	sender := stringParam(params, "sender")
	if sender == "" {
		return nil, fmt.Errorf("sender is required")
	}
	subject := stringParam(params, "subject")
	body := stringParam(params, "body")

	return Check(t.policy, sender, subject, body), nil
}

// Check mirrors the order the watcher applies: sender first, then content, then policy
func Check(policy *triage.Policy, sender, subject, body string) CheckResult {
	if triage.IsSystemSender(sender) {
		return CheckResult{Decision: types.DecisionSkipSystemSender.String(), SystemSender: true}
	}
	if v := triage.EvaluateContent(subject, body); !v.NeedsReply {
		return CheckResult{Decision: types.DecisionSkipNoReplyNeeded.String(), Rule: v.Rule}
	}

	mode := policy.Resolve(sender)
	decision := types.DecisionGenerateAndDraft
	if mode == types.SendAuto {
		decision = types.DecisionGenerateAndAutoSend
	}
	return CheckResult{Decision: decision.String(), NeedsReply: true, SendMode: mode.String()}
}
