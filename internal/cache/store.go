package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/pkg/types"
)

// Store provides methods for storing and retrieving data from the cache
type Store struct {
	cache  *Cache
	logger *logrus.Logger
}

// NewStore creates a new store instance
func NewStore(cache *Cache, logger *logrus.Logger) *Store {
	return &Store{
		cache:  cache,
		logger: logger,
	}
}

// Load returns every processed message identifier
func (s *Store) Load(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.cache.DB().SelectContext(ctx, &ids, "SELECT message_id FROM processed_messages ORDER BY message_id"); err != nil {
		return nil, fmt.Errorf("failed to load processed messages: %w", err)
	}
	return ids, nil
}

// Save writes the full processed set. Identifiers already stored keep their
// original processed_at.
func (s *Store) Save(ctx context.Context, ids []string) error {
	tx, err := s.cache.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PreparexContext(ctx, "INSERT INTO processed_messages (message_id) VALUES (?) ON CONFLICT(message_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to store processed message %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit processed messages: %w", err)
	}
	return nil
}

// RecordTriage appends a decision to the triage journal
func (s *Store) RecordTriage(ctx context.Context, rec types.TriageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO triage_log (message_id, thread_id, sender, subject, decision, rule, class, summary, action_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.cache.DB().ExecContext(ctx, query,
		rec.MessageID,
		rec.ThreadID,
		rec.Sender,
		rec.Subject,
		rec.Decision,
		rec.Rule,
		rec.Class,
		rec.Summary,
		rec.ActionID,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record triage for %s: %w", rec.MessageID, err)
	}
	return nil
}

// timeLayout is fixed width so journal timestamps compare correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// JournalOptions filters journal queries
type JournalOptions struct {
	Decision *string
	Sender   *string
	Since    *time.Time
	Limit    int
}

type journalRow struct {
	ID        int64  `db:"id"`
	MessageID string `db:"message_id"`
	ThreadID  string `db:"thread_id"`
	Sender    string `db:"sender"`
	Subject   string `db:"subject"`
	Decision  string `db:"decision"`
	Rule      string `db:"rule"`
	Class     string `db:"class"`
	Summary   string `db:"summary"`
	ActionID  string `db:"action_id"`
	CreatedAt string `db:"created_at"`
}

// Journal returns triage records, newest first
func (s *Store) Journal(ctx context.Context, opts JournalOptions) ([]types.TriageRecord, error) {
	var conditions []string
	var args []interface{}

	if opts.Decision != nil {
		conditions = append(conditions, "decision = ?")
		args = append(args, *opts.Decision)
	}
	if opts.Sender != nil {
		conditions = append(conditions, "sender LIKE ?")
		args = append(args, "%"+*opts.Sender+"%")
	}
	if opts.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, formatTime(*opts.Since))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, message_id, thread_id, sender, subject, decision, rule, class, summary, action_id, created_at
		FROM triage_log
		%s
		ORDER BY id DESC
		LIMIT ?
	`, whereClause)

	var rows []journalRow
	if err := s.cache.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query triage journal: %w", err)
	}

	records := make([]types.TriageRecord, 0, len(rows))
	for _, r := range rows {
		createdAt, err := parseTime(r.CreatedAt)
		if err != nil {
			s.logger.WithError(err).WithField("id", r.ID).Warn("Unparseable journal timestamp")
		}
		records = append(records, types.TriageRecord{
			ID:        r.ID,
			MessageID: r.MessageID,
			ThreadID:  r.ThreadID,
			Sender:    r.Sender,
			Subject:   r.Subject,
			Decision:  r.Decision,
			Rule:      r.Rule,
			Class:     r.Class,
			Summary:   r.Summary,
			ActionID:  r.ActionID,
			CreatedAt: createdAt,
		})
	}
	return records, nil
}

// CountByDecision returns how many journal rows exist per decision
func (s *Store) CountByDecision(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Decision string `db:"decision"`
		Count    int    `db:"n"`
	}
	if err := s.cache.DB().SelectContext(ctx, &rows, "SELECT decision, COUNT(*) AS n FROM triage_log GROUP BY decision"); err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Decision] = r.Count
	}
	return counts, nil
}
