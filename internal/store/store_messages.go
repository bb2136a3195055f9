package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AppendMessage stores one conversation turn with any cited sources and
// returns the assigned message id.
func (s *Store) AppendMessage(ctx context.Context, msg *Message) (int64, error) {
	ctx = ensureContext(ctx)
	if msg == nil {
		return 0, errors.New("message is nil")
	}
	timestamp := time.Now().UTC()
	if !msg.CreatedAt.IsZero() {
		timestamp = msg.CreatedAt.UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin message tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO ai_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		msg.SessionID,
		string(msg.Role),
		msg.Content,
		timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}
	messageID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, source := range msg.Sources {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO ai_message_sources (message_id, source_id, kind, label, snippet, session_name, source_json)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			messageID,
			source.SourceID,
			source.Kind,
			source.Label,
			nullableString(source.Snippet),
			nullableString(source.SessionName),
			nullableString(source.SourceJSON),
		); err != nil {
			return 0, fmt.Errorf("insert message source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit message: %w", err)
	}
	msg.ID = messageID
	msg.CreatedAt = timestamp
	return messageID, nil
}

// ListMessages returns the conversation history of a session in order, with
// sources attached to each assistant turn.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, role, content, created_at FROM ai_messages WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	byID := make(map[int64]*Message)
	for rows.Next() {
		var (
			id         int64
			sessID     string
			role       string
			content    string
			createdRaw string
		)
		if err := rows.Scan(&id, &sessID, &role, &content, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg := &Message{ID: id, SessionID: sessID, Role: MessageRole(role), Content: content}
		if created, err := parseTimeString(createdRaw); err == nil {
			msg.CreatedAt = created
		}
		messages = append(messages, msg)
		byID[id] = msg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	sourceRows, err := s.db.QueryContext(
		ctx,
		`SELECT s.id, s.message_id, s.source_id, s.kind, s.label, s.snippet, s.session_name, s.source_json
         FROM ai_message_sources s
         JOIN ai_messages m ON m.id = s.message_id
         WHERE m.session_id = ?
         ORDER BY s.id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list message sources: %w", err)
	}
	defer sourceRows.Close()

	for sourceRows.Next() {
		var (
			id          int64
			messageID   int64
			sourceID    string
			kind        string
			label       string
			snippet     sql.NullString
			sessionName sql.NullString
			sourceJSON  sql.NullString
		)
		if err := sourceRows.Scan(&id, &messageID, &sourceID, &kind, &label, &snippet, &sessionName, &sourceJSON); err != nil {
			return nil, fmt.Errorf("scan message source: %w", err)
		}
		msg, ok := byID[messageID]
		if !ok {
			continue
		}
		msg.Sources = append(msg.Sources, MessageSource{
			ID:          id,
			MessageID:   messageID,
			SourceID:    sourceID,
			Kind:        kind,
			Label:       label,
			Snippet:     snippet.String,
			SessionName: sessionName.String,
			SourceJSON:  sourceJSON.String,
		})
	}
	return messages, sourceRows.Err()
}

// UpsertSessionSummary caches generated session notes keyed by content hash.
func (s *Store) UpsertSessionSummary(ctx context.Context, sessionID, contentHash, summary string) error {
	return s.upsertSummary(ctx, "session_summaries", "session_id", sessionID, contentHash, summary)
}

// GetSessionSummary returns cached session notes, or nil when absent.
func (s *Store) GetSessionSummary(ctx context.Context, sessionID string) (*Summary, error) {
	return s.getSummary(ctx, "session_summaries", "session_id", sessionID)
}

// UpsertModuleSummary caches generated module notes keyed by content hash.
func (s *Store) UpsertModuleSummary(ctx context.Context, moduleID, contentHash, summary string) error {
	return s.upsertSummary(ctx, "module_summaries", "module_id", moduleID, contentHash, summary)
}

// GetModuleSummary returns cached module notes, or nil when absent.
func (s *Store) GetModuleSummary(ctx context.Context, moduleID string) (*Summary, error) {
	return s.getSummary(ctx, "module_summaries", "module_id", moduleID)
}

func (s *Store) upsertSummary(ctx context.Context, table, keyColumn, key, contentHash, summary string) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO `+table+` (`+keyColumn+`, content_hash, summary, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(`+keyColumn+`) DO UPDATE SET content_hash = excluded.content_hash,
             summary = excluded.summary, updated_at = excluded.updated_at`,
		key, contentHash, summary, timestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (s *Store) getSummary(ctx context.Context, table, keyColumn, key string) (*Summary, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT content_hash, summary, updated_at FROM `+table+` WHERE `+keyColumn+` = ?`,
		key,
	)
	var (
		contentHash string
		summary     string
		updatedRaw  string
	)
	if err := row.Scan(&contentHash, &summary, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	result := &Summary{ContentHash: contentHash, Summary: summary}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		result.UpdatedAt = updated
	}
	return result, nil
}
