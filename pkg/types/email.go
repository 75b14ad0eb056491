package types

import "time"

// Message is a fetched inbound message. It is read-only for the triage core.
type Message struct {
	ID         string `json:"id"`
	ThreadID   string `json:"thread_id"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	MessageID  string `json:"message_id,omitempty"`
	References string `json:"references,omitempty"`
}

// Candidate is a listing entry returned before the detail fetch
type Candidate struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// Class is the importance classification produced by the generation service
type Class string

const (
	ClassUrgent    Class = "URGENT"
	ClassImportant Class = "IMPORTANT"
	ClassInfoOnly  Class = "INFO ONLY"
	ClassSpam      Class = "SPAM / MARKETING"
)

// ParseClass maps model output onto a known class. Anything unrecognised is INFO ONLY.
func ParseClass(s string) Class {
	switch Class(s) {
	case ClassUrgent, ClassImportant, ClassInfoOnly, ClassSpam:
		return Class(s)
	case "SPAM", "MARKETING", "SPAM/MARKETING":
		return ClassSpam
	}
	return ClassInfoOnly
}

// Triage is the generation result for an inbound message
type Triage struct {
	Class      Class  `json:"class"`
	Summary    string `json:"summary"`
	DraftReply string `json:"draft_reply"`
}

// ComposeRequest describes a user initiated outgoing email
type ComposeRequest struct {
	Context        string `json:"context"`
	Relationship   string `json:"relationship"`
	Mood           string `json:"mood"`
	RecipientEmail string `json:"recipient_email,omitempty"`
	SenderName     string `json:"sender_name,omitempty"`
}

// Composition is the generation result for an outgoing email
type Composition struct {
	Class   Class  `json:"class"`
	Summary string `json:"summary"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Decision is the per-message triage outcome. It is never persisted as state.
type Decision int

const (
	DecisionSkipNoReplyNeeded Decision = iota
	DecisionSkipSystemSender
	DecisionGenerateAndDraft
	DecisionGenerateAndAutoSend
)

func (d Decision) String() string {
	switch d {
	case DecisionSkipNoReplyNeeded:
		return "skip-no-reply-needed"
	case DecisionSkipSystemSender:
		return "skip-system-sender"
	case DecisionGenerateAndDraft:
		return "generate-and-draft"
	case DecisionGenerateAndAutoSend:
		return "generate-and-autosend"
	}
	return "unknown"
}

// SendMode is the result of send policy resolution
type SendMode int

const (
	SendDraftOnly SendMode = iota
	SendAuto
)

func (m SendMode) String() string {
	if m == SendAuto {
		return "auto-send"
	}
	return "draft-only"
}

// TriageRecord is one row of the triage journal
type TriageRecord struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	ThreadID  string    `json:"thread_id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Decision  string    `json:"decision"`
	Rule      string    `json:"rule,omitempty"`
	Class     string    `json:"class,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	ActionID  string    `json:"action_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
