package bunstore

import (
	"context"
	"database/sql"
	"sort"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Entry is the Bun model for a stored key
type Entry struct {
	bun.BaseModel `bun:"table:auth_storage,alias:ast"`

	Key       string    `bun:"entry_key,pk"`
	Value     string    `bun:"entry_value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Storage implements authclient.Storage on top of a SQL table
type Storage struct {
	db *bun.DB
}

var _ authclient.Storage = &Storage{}

// New creates a storage over an existing Bun DB
func New(db *bun.DB) *Storage {
	return &Storage{db: db}
}

// Open opens (or creates) a SQLite database file and makes sure the table
// exists. The returned close function closes the database.
func Open(ctx context.Context, path string) (*Storage, func() error, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to open session database").
			WithMetadata(map[string]any{"path": path})
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	s := New(db)
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, db.Close, nil
}

// CreateSchema creates the storage table if needed
func (s *Storage) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Entry)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create session storage table")
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var entry Entry
	err := s.db.NewSelect().
		Model(&entry).
		Where("entry_key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

// SetAll upserts every entry in a single transaction
func (s *Storage) SetAll(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, k := range keys {
			entry := &Entry{Key: k, Value: entries[k], UpdatedAt: now}
			_, err := tx.NewInsert().
				Model(entry).
				On("CONFLICT (entry_key) DO UPDATE").
				Set("entry_value = EXCLUDED.entry_value").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the keys in one statement
func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*Entry)(nil)).
		Where("entry_key IN (?)", bun.In(keys)).
		Exec(ctx)
	return err
}
