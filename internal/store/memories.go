package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mp3index/internal/models"
)

const memoryColumns = "id, file_name, blob_key, media_type, memory_text, recipient_name, label_color, created_at, file_size, sha256"

// InsertMemory inserts one memory row in a transaction and assigns its id.
func (s *Store) InsertMemory(ctx context.Context, m *models.Memory) (_ int64, err error) {
	if m == nil {
		return 0, fmt.Errorf("memory is required")
	}
	if err := validateForInsert(m); err != nil {
		return 0, err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memories (
			file_name, blob_key, media_type, memory_text, recipient_name,
			label_color, created_at, file_size, sha256
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.FileName,
		m.BlobKey,
		m.MediaType,
		m.MemoryText,
		m.RecipientName,
		string(m.LabelColor),
		formatTime(m.Timestamp),
		m.FileSize,
		nullIfEmpty(m.SHA256),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}

	m.ID = id
	return id, nil
}

// ListMemories lists all memories ordered by id descending.
func (s *Store) ListMemories(ctx context.Context) ([]models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memoryColumns+` FROM memories ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := []models.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		if m != nil {
			memories = append(memories, *m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return memories, nil
}

// GetMemory returns one memory by id, or nil if it does not exist.
func (s *Store) GetMemory(ctx context.Context, id int64) (*models.Memory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	return scanMemory(row)
}

// AdjacentMemories returns the neighbouring ids in insertion order.
func (s *Store) AdjacentMemories(ctx context.Context, id int64) (*int64, *int64, error) {
	newer, err := s.neighbourID(ctx, "SELECT MIN(id) FROM memories WHERE id > ?", id)
	if err != nil {
		return nil, nil, err
	}
	older, err := s.neighbourID(ctx, "SELECT MAX(id) FROM memories WHERE id < ?", id)
	if err != nil {
		return nil, nil, err
	}
	return newer, older, nil
}

// CountMemories returns the number of stored memories.
func (s *Store) CountMemories(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Backend implements MemoryStore.
func (s *Store) Backend() string {
	return "sqlite"
}

func (s *Store) neighbourID(ctx context.Context, query string, id int64) (*int64, error) {
	var value sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&value); err != nil {
		return nil, err
	}
	if !value.Valid {
		return nil, nil
	}
	out := value.Int64
	return &out, nil
}

func scanMemory(scanner interface {
	Scan(dest ...any) error
}) (*models.Memory, error) {
	m := models.Memory{}
	var labelColor, createdAt string
	var sha sql.NullString

	err := scanner.Scan(
		&m.ID,
		&m.FileName,
		&m.BlobKey,
		&m.MediaType,
		&m.MemoryText,
		&m.RecipientName,
		&labelColor,
		&createdAt,
		&m.FileSize,
		&sha,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse memory created_at: %w", err)
	}
	m.Timestamp = parsed
	m.LabelColor = models.LabelColor(labelColor)
	m.SHA256 = sha.String
	return &m, nil
}

func validateForInsert(m *models.Memory) error {
	if strings.TrimSpace(m.BlobKey) == "" {
		return fmt.Errorf("blob_key is required")
	}
	if strings.TrimSpace(m.RecipientName) == "" {
		return fmt.Errorf("recipient_name is required")
	}
	if strings.TrimSpace(m.MemoryText) == "" {
		return fmt.Errorf("memory_text is required")
	}
	if !models.IsValidLabelColor(m.LabelColor) {
		return fmt.Errorf("invalid label_color: %s", m.LabelColor)
	}
	if m.FileSize <= 0 {
		return fmt.Errorf("file_size must be > 0")
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
