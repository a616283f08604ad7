package handoff

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// LibSQL stores sessions in an embedded libSQL database.
type LibSQL struct {
	db       *sql.DB
	maxBytes int
}

// NewLibSQL opens the database at dbPath (a file URI such as
// "file:/var/lib/reqbot/sessions.db") and applies pending migrations.
func NewLibSQL(ctx context.Context, dbPath string, opts ...Option) (*LibSQL, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, storageError("open libsql", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows, hence QueryRow.
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		var result string
		_ = db.QueryRowContext(ctx, p).Scan(&result)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, storageError("migrate libsql", err)
	}
	return &LibSQL{db: db, maxBytes: buildOptions(opts).maxBytes}, nil
}

func (l *LibSQL) Save(ctx context.Context, s *Session) error {
	data, err := encode(s, l.maxBytes)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO sessions (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		s.ID, string(data), s.CreatedAt.UnixNano(), s.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return storageError("save session", err)
	}
	return nil
}

func (l *LibSQL) Load(ctx context.Context, id string) (*Session, error) {
	var data string
	err := l.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageError("load session", err)
	}
	return decode([]byte(data))
}

func (l *LibSQL) Delete(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return storageError("delete session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("delete session", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (l *LibSQL) List(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, storageError("list sessions", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageError("scan session id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list sessions", err)
	}
	return ids, nil
}

func (l *LibSQL) Purge(ctx context.Context, before time.Time) (int, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.UnixNano())
	if err != nil {
		return 0, storageError("purge sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("purge sessions", err)
	}
	return int(n), nil
}

// Vacuum reclaims space after large purges.
func (l *LibSQL) Vacuum(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, "VACUUM"); err != nil {
		return storageError("vacuum", err)
	}
	return nil
}

func (l *LibSQL) Close() error { return l.db.Close() }
