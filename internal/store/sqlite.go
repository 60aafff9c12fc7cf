package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/lossaudit/internal/lossengine"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already registered")
	ErrUnknownOwner  = errors.New("owner is not a registered user")
)

const (
	RoleAdmin      = "admin"
	RoleConsultant = "consultant"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	username        TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT 'consultant',
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS workflows (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	input_data  TEXT NOT NULL,
	result_data TEXT NOT NULL,
	owner_id    INTEGER REFERENCES users(id)
);
`

// Record is one analyzed workflow as stored. Result.ID is always set.
type Record struct {
	ID          int64                    `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	CreatedAt   time.Time                `json:"created_at"`
	OwnerID     *int64                   `json:"owner_id,omitempty"`
	Input       lossengine.WorkflowInput `json:"input"`
	Result      lossengine.LossAnalysis  `json:"result"`
}

type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

type workflowRow struct {
	ID          int64         `db:"id"`
	Name        string        `db:"name"`
	Description string        `db:"description"`
	CreatedAt   string        `db:"created_at"`
	InputData   string        `db:"input_data"`
	ResultData  string        `db:"result_data"`
	OwnerID     sql.NullInt64 `db:"owner_id"`
}

type userRow struct {
	ID             int64  `db:"id"`
	Username       string `db:"username"`
	HashedPassword string `db:"hashed_password"`
	Role           string `db:"role"`
	CreatedAt      string `db:"created_at"`
}

// SQLiteStore persists analyzed workflows and user accounts.
type SQLiteStore struct {
	db    *sqlx.DB
	clock func() time.Time
}

type Option func(*SQLiteStore)

func WithClock(clock func() time.Time) Option {
	return func(s *SQLiteStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLiteStore{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create stores an input and its analysis together and returns the new id.
// The stored analysis never carries an id of its own; Get adds it on read.
func (s *SQLiteStore) Create(ctx context.Context, in lossengine.WorkflowInput, result lossengine.LossAnalysis, ownerID *int64) (int64, error) {
	result.ID = nil
	inputJSON, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode input: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("encode result: %w", err)
	}

	var owner sql.NullInt64
	if ownerID != nil {
		owner = sql.NullInt64{Int64: *ownerID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (name, description, created_at, input_data, result_data, owner_id) VALUES (?, ?, ?, ?, ?, ?)`,
		in.Name, in.Description, s.clock().UTC().Format(time.RFC3339Nano), string(inputJSON), string(resultJSON), owner)
	if err != nil && ownerID != nil && isForeignKeyViolation(err) {
		return 0, fmt.Errorf("%w: user %d", ErrUnknownOwner, *ownerID)
	}
	if err != nil {
		return 0, fmt.Errorf("insert workflow: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("workflow id: %w", err)
	}
	return id, nil
}

// List returns every stored workflow in creation order.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	var rows []workflowRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, description, created_at, input_data, result_data, owner_id FROM workflows ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (Record, error) {
	var row workflowRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, description, created_at, input_data, result_data, owner_id FROM workflows WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get workflow %d: %w", id, err)
	}
	return row.record()
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workflow %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workflow %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r workflowRow) record() (Record, error) {
	rec := Record{ID: r.ID, Name: r.Name, Description: r.Description}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, r.CreatedAt)
	if r.OwnerID.Valid {
		owner := r.OwnerID.Int64
		rec.OwnerID = &owner
	}
	if err := json.Unmarshal([]byte(r.InputData), &rec.Input); err != nil {
		return Record{}, fmt.Errorf("decode workflow %d input: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.ResultData), &rec.Result); err != nil {
		return Record{}, fmt.Errorf("decode workflow %d result: %w", r.ID, err)
	}
	id := r.ID
	rec.Result.ID = &id
	return rec, nil
}

// CreateUser registers a user. The first account becomes the admin; every
// later one is a consultant.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, hashedPassword string) (User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return User{}, fmt.Errorf("count users: %w", err)
	}
	role := RoleConsultant
	if count == 0 {
		role = RoleAdmin
	}

	now := s.clock().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, hashed_password, role, created_at) VALUES (?, ?, ?, ?)`,
		username, hashedPassword, role, now.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("user id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("commit: %w", err)
	}
	return User{ID: id, Username: username, HashedPassword: hashedPassword, Role: role, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT id, username, hashed_password, role, created_at FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	u := User{ID: row.ID, Username: row.Username, HashedPassword: row.HashedPassword, Role: row.Role}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, row.CreatedAt)
	return u, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
