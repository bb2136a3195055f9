package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateModule inserts a module and returns it.
func (s *Store) CreateModule(ctx context.Context, name string) (*Module, error) {
	ctx = ensureContext(ctx)
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO modules (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert module: %w", err)
	}
	return s.GetModule(ctx, id)
}

// GetModule fetches a module by identifier. Returns nil when no module exists.
func (s *Store) GetModule(ctx context.Context, id string) (*Module, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM modules WHERE id = ?`, id)
	module, err := scanModule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}
	return module, nil
}

// ListModules returns all modules ordered by creation time.
func (s *Store) ListModules(ctx context.Context) ([]*Module, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM modules ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var modules []*Module
	for rows.Next() {
		module, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, module)
	}
	return modules, rows.Err()
}

// CreateSession inserts a session under a module and returns it.
func (s *Store) CreateSession(ctx context.Context, moduleID, name string) (*Session, error) {
	ctx = ensureContext(ctx)
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO sessions (id, module_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, moduleID, name, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetSession(ctx, id)
}

// GetSession fetches a session by identifier. Returns nil when no session exists.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT id, module_id, name, created_at FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns the sessions of a module ordered by creation time.
func (s *Store) ListSessions(ctx context.Context, moduleID string) ([]*Session, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, module_id, name, created_at FROM sessions WHERE module_id = ? ORDER BY created_at`,
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// RenameSession updates a session's display name.
func (s *Store) RenameSession(ctx context.Context, id, name string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `UPDATE sessions SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

func scanModule(scanner interface{ Scan(dest ...any) error }) (*Module, error) {
	var (
		id         string
		name       string
		createdRaw string
	)
	if err := scanner.Scan(&id, &name, &createdRaw); err != nil {
		return nil, err
	}
	module := &Module{ID: id, Name: name}
	if created, err := parseTimeString(createdRaw); err == nil {
		module.CreatedAt = created
	}
	return module, nil
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id         string
		moduleID   string
		name       string
		createdRaw string
	)
	if err := scanner.Scan(&id, &moduleID, &name, &createdRaw); err != nil {
		return nil, err
	}
	session := &Session{ID: id, ModuleID: moduleID, Name: name}
	if created, err := parseTimeString(createdRaw); err == nil {
		session.CreatedAt = created
	}
	return session, nil
}
