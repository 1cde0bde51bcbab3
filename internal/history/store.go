package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

var ErrNotFound = errors.New("history record not found")

// timeLayout is fixed width so created_at sorts as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id             TEXT PRIMARY KEY,
	created_at     TEXT NOT NULL,
	recorded_at    TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	recommendation TEXT NOT NULL DEFAULT '',
	payload        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS history_created_at ON history (created_at);
`

type Entry struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"created_at"`
	Record    advisor.HistoryRecord `json:"record"`
}

type row struct {
	ID             string `db:"id"`
	CreatedAt      string `db:"created_at"`
	RecordedAt     string `db:"recorded_at"`
	Name           string `db:"name"`
	Location       string `db:"location"`
	Recommendation string `db:"recommendation"`
	Payload        string `db:"payload"`
}

// Store persists saved recommendations in SQLite.
type Store struct {
	db    *sqlx.DB
	clock func() time.Time
	newID func() string
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{
		db:    db,
		clock: time.Now,
		newID: uuid.NewString,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, rec advisor.HistoryRecord) (Entry, error) {
	if strings.TrimSpace(rec.Recommendation) == "" {
		return Entry{}, &advisor.ValidationError{Missing: []string{"recommendation"}}
	}
	if rec.GrowingTips == nil {
		rec.GrowingTips = []string{}
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return Entry{}, fmt.Errorf("encode record: %w", err)
	}
	entry := Entry{
		ID:        s.newID(),
		CreatedAt: s.clock().UTC(),
		Record:    rec,
	}
	recordedAt := ""
	if !rec.Timestamp.IsZero() {
		recordedAt = rec.Timestamp.UTC().Format(timeLayout)
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO history (id, created_at, recorded_at, name, location, recommendation, payload)
		VALUES (:id, :created_at, :recorded_at, :name, :location, :recommendation, :payload)`,
		row{
			ID:             entry.ID,
			CreatedAt:      entry.CreatedAt.Format(timeLayout),
			RecordedAt:     recordedAt,
			Name:           rec.Name,
			Location:       rec.Location,
			Recommendation: rec.Recommendation,
			Payload:        string(payload),
		})
	if err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT * FROM history WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get history %s: %w", id, err)
	}
	return r.entry()
}

func (r row) entry() (Entry, error) {
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("history %s: bad created_at: %w", r.ID, err)
	}
	var rec advisor.HistoryRecord
	if err := json.Unmarshal([]byte(r.Payload), &rec); err != nil {
		return Entry{}, fmt.Errorf("history %s: bad payload: %w", r.ID, err)
	}
	return Entry{ID: r.ID, CreatedAt: created, Record: rec}, nil
}
