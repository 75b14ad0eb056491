// Package triage decides, per inbound message, whether a reply is
// generated and whether it is sent or staged as a draft, and runs the
// polling loop that applies those decisions.
//
// Delivery is at-least-once per message identifier. An identifier enters
// the processed set only after its action (mark read, draft or send)
// completed. If generation and dispatch succeed but persisting the set
// fails, the next cycle handles the message again and a duplicate draft or
// reply is possible.
package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/internal/metrics"
	"github.com/brandon/mail-butler/internal/state"
	"github.com/brandon/mail-butler/pkg/types"
)

const (
	defaultPollInterval   = 10 * time.Second
	defaultBatchSize      = 10
	defaultMessageTimeout = 2 * time.Minute
)

// Mailbox is the subset of the mailbox provider the loop needs
type Mailbox interface {
	ListCandidates(ctx context.Context, max int) ([]types.Candidate, error)
	GetDetail(ctx context.Context, id string) (*types.Message, error)
	MarkRead(ctx context.Context, id string) error
	CreateDraftReply(ctx context.Context, msg *types.Message, text string) (string, error)
	SendReply(ctx context.Context, msg *types.Message, text string) (string, error)
}

// Generator produces a classification, summary and reply draft
type Generator interface {
	ClassifyAndDraft(ctx context.Context, subject, sender, body string) (*types.Triage, error)
}

// Journal receives one record per decided message
type Journal interface {
	RecordTriage(ctx context.Context, rec types.TriageRecord) error
}

// Options tunes the polling loop
type Options struct {
	PollInterval   time.Duration
	BatchSize      int
	MessageTimeout time.Duration
}

// CycleStats summarises one polling cycle
type CycleStats struct {
	Cycle      int64         `json:"cycle"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Candidates int           `json:"candidates"`
	Skipped    int           `json:"already_processed"`
	Guarded    int           `json:"guarded"`
	Drafted    int           `json:"drafted"`
	Sent       int           `json:"sent"`
	Failed     int           `json:"failed"`
	Error      string        `json:"error,omitempty"`
}

// Status is a point-in-time view of the loop
type Status struct {
	LastCycle    *CycleStats `json:"last_cycle,omitempty"`
	ProcessedIDs int         `json:"processed_ids"`
}

// Orchestrator is the triage control loop. It processes one message at a
// time and is the only writer of the processed set.
type Orchestrator struct {
	opts      Options
	mailbox   Mailbox
	generator Generator
	tracker   *state.Tracker
	policy    *Policy
	journal   Journal
	logger    *logrus.Logger

	mu     sync.Mutex
	cycles int64
	last   *CycleStats
}

// New creates an orchestrator. The tracker must already be loaded.
func New(opts Options, mailbox Mailbox, generator Generator, tracker *state.Tracker, policy *Policy, logger *logrus.Logger) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MessageTimeout <= 0 {
		opts.MessageTimeout = defaultMessageTimeout
	}
	return &Orchestrator{
		opts:      opts,
		mailbox:   mailbox,
		generator: generator,
		tracker:   tracker,
		policy:    policy,
		logger:    logger,
	}
}

// WithJournal attaches a triage journal
func (o *Orchestrator) WithJournal(j Journal) *Orchestrator {
	o.journal = j
	return o
}

// Run polls until ctx is cancelled. Cycle failures are logged and never stop the loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.WithFields(logrus.Fields{
		"interval":   o.opts.PollInterval.String(),
		"batch_size": o.opts.BatchSize,
		"processed":  o.tracker.Len(),
	}).Info("Watching inbox")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Watcher stopped")
			return nil
		case <-timer.C:
		}

		o.safeCycle(ctx)
		timer.Reset(o.opts.PollInterval)
	}
}

// safeCycle runs one cycle and contains both errors and panics
func (o *Orchestrator) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CyclesTotal.WithLabelValues("error").Inc()
			o.logger.WithField("panic", fmt.Sprint(r)).Error("Recovered from panic in polling cycle")
		}
	}()

	if _, err := o.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.WithError(err).Error("Polling cycle failed")
	}
}

// RunCycle fetches one batch of candidates and handles each in order.
// Per-message failures are logged and leave the message for the next
// cycle; only a listing failure is returned.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleStats, error) {
	o.mu.Lock()
	o.cycles++
	stats := CycleStats{Cycle: o.cycles, StartedAt: time.Now()}
	o.mu.Unlock()

	log := o.logger.WithField("cycle", stats.Cycle)

	err := o.cycle(ctx, log, &stats)

	stats.Duration = time.Since(stats.StartedAt)
	metrics.CycleDuration.Observe(stats.Duration.Seconds())
	metrics.ProcessedIDs.Set(float64(o.tracker.Len()))
	if err != nil {
		stats.Error = err.Error()
		metrics.CyclesTotal.WithLabelValues("error").Inc()
	} else {
		metrics.CyclesTotal.WithLabelValues("ok").Inc()
	}

	o.mu.Lock()
	last := stats
	o.last = &last
	o.mu.Unlock()

	if stats.Drafted+stats.Sent+stats.Guarded+stats.Failed > 0 {
		log.WithFields(logrus.Fields{
			"candidates": stats.Candidates,
			"guarded":    stats.Guarded,
			"drafted":    stats.Drafted,
			"sent":       stats.Sent,
			"failed":     stats.Failed,
		}).Info("Cycle complete")
	}
	return stats, err
}

func (o *Orchestrator) cycle(ctx context.Context, log *logrus.Entry, stats *CycleStats) error {
	candidates, err := o.mailbox.ListCandidates(ctx, o.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}
	stats.Candidates = len(candidates)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.tracker.Contains(c.ID) {
			stats.Skipped++
			continue
		}

		// The message in flight finishes even if shutdown was requested.
		msgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.MessageTimeout)
		decision, err := o.safeHandle(msgCtx, log.WithField("message_id", c.ID), c)
		cancel()

		if err != nil {
			stats.Failed++
			log.WithError(err).WithField("message_id", c.ID).Warn("Message processing failed, will retry next cycle")
			continue
		}
		switch decision {
		case types.DecisionSkipNoReplyNeeded, types.DecisionSkipSystemSender:
			stats.Guarded++
		case types.DecisionGenerateAndDraft:
			stats.Drafted++
		case types.DecisionGenerateAndAutoSend:
			stats.Sent++
		}
	}
	return nil
}

// stageError tags a failure with the step it happened in
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failAt(stage string, err error) error {
	metrics.MessageFailures.WithLabelValues(stage).Inc()
	return &stageError{stage: stage, err: err}
}

// safeHandle turns a panic while handling one message into a failure of
// that message so later candidates in the batch still run
func (o *Orchestrator) safeHandle(ctx context.Context, log *logrus.Entry, c types.Candidate) (decision types.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			decision, err = 0, failAt("panic", fmt.Errorf("recovered: %v", r))
		}
	}()
	return o.handle(ctx, log, c)
}

// handle takes one unseen message from detail fetch to recording
func (o *Orchestrator) handle(ctx context.Context, log *logrus.Entry, c types.Candidate) (types.Decision, error) {
	msg, err := o.mailbox.GetDetail(ctx, c.ID)
	if err != nil {
		return 0, failAt("detail", err)
	}
	if msg.ThreadID == "" {
		msg.ThreadID = c.ThreadID
	}

	log = log.WithFields(logrus.Fields{
		"thread_id": msg.ThreadID,
		"sender":    msg.From,
		"subject":   msg.Subject,
	})
	rec := types.TriageRecord{
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Sender:    msg.From,
		Subject:   msg.Subject,
	}
	if rec.MessageID == "" {
		rec.MessageID = c.ID
	}

	if IsSystemSender(msg.From) {
		log.Info("System sender, no reply")
		return o.finish(ctx, log, c.ID, types.DecisionSkipSystemSender, rec)
	}

	if verdict := EvaluateContent(msg.Subject, msg.Body); !verdict.NeedsReply {
		rec.Rule = verdict.Rule
		log.WithField("rule", verdict.Rule).Info("No reply needed based on content")
		return o.finish(ctx, log, c.ID, types.DecisionSkipNoReplyNeeded, rec)
	}

	result, err := o.generator.ClassifyAndDraft(ctx, msg.Subject, msg.From, msg.Body)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("error").Inc()
		return 0, failAt("generate", err)
	}
	metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	rec.Class = string(result.Class)
	rec.Summary = result.Summary

	log = log.WithField("class", result.Class)
	log.WithField("summary", result.Summary).Debug("Generated reply")

	mode := o.policy.Resolve(msg.From)
	if mode == types.SendAuto && result.DraftReply == "" {
		log.Warn("Generated reply is empty, drafting instead of sending")
		mode = types.SendDraftOnly
	}

	var decision types.Decision
	if mode == types.SendAuto {
		id, err := o.mailbox.SendReply(ctx, msg, result.DraftReply)
		if err != nil {
			return 0, failAt("dispatch", err)
		}
		rec.ActionID = id
		decision = types.DecisionGenerateAndAutoSend
		log.WithField("sent_id", id).Info("Auto-sent reply")
	} else {
		id, err := o.mailbox.CreateDraftReply(ctx, msg, result.DraftReply)
		if err != nil {
			return 0, failAt("dispatch", err)
		}
		rec.ActionID = id
		decision = types.DecisionGenerateAndDraft
		log.WithField("draft_id", id).Info("Draft created")
	}

	return o.finish(ctx, log, c.ID, decision, rec)
}

// finish marks the message read, records it as processed and journals the decision
func (o *Orchestrator) finish(ctx context.Context, log *logrus.Entry, id string, decision types.Decision, rec types.TriageRecord) (types.Decision, error) {
	if err := o.mailbox.MarkRead(ctx, id); err != nil {
		return 0, failAt("mark_read", err)
	}
	if err := o.tracker.Record(ctx, id); err != nil {
		return 0, failAt("record", err)
	}
	metrics.DecisionsTotal.WithLabelValues(decision.String()).Inc()

	if o.journal != nil {
		rec.Decision = decision.String()
		if err := o.journal.RecordTriage(ctx, rec); err != nil {
			log.WithError(err).Warn("Failed to write triage journal")
		}
	}
	log.WithField("decision", decision.String()).Debug("Message recorded")
	return decision, nil
}

// Status returns the last cycle summary and processed set size
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{ProcessedIDs: o.tracker.Len()}
	if o.last != nil {
		last := *o.last
		st.LastCycle = &last
	}
	return st
}
