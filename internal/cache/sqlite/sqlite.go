// Package sqlite is a cache store kept in a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dekarrin/parselet/internal/cache"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// NewStore opens the database in file, creating it and its table if needed.
func NewStore(file string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = cache.NopLogger()
	}
	st := &Store{file: file, log: log}

	var err error
	st.db, err = sql.Open("sqlite", file)
	if err != nil {
		return nil, wrapDBError(err)
	}

	if err := st.init(); err != nil {
		st.db.Close()
		return nil, err
	}
	return st, nil
}

type Store struct {
	file string
	db   *sql.DB
	log  logrus.FieldLogger
}

func (st *Store) init() error {
	_, err := st.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		id TEXT NOT NULL PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		language TEXT NOT NULL,
		kind INTEGER NOT NULL,
		checksum TEXT NOT NULL,
		created INTEGER NOT NULL,
		format INTEGER NOT NULL,
		compressed INTEGER NOT NULL,
		data BLOB NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (st *Store) Create(ctx context.Context, e cache.Entry) (cache.Entry, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return cache.Entry{}, fmt.Errorf("could not generate ID: %w", err)
	}

	stmt, err := st.db.Prepare(`INSERT INTO entries (id, path, language, kind, checksum, created, format, compressed, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}
	defer stmt.Close()

	data := e.Data
	if data == nil {
		data = []byte{}
	}

	now := time.Now()
	_, err = stmt.ExecContext(ctx,
		convertToDB_UUID(newUUID),
		e.Path,
		e.Language,
		int(e.Kind),
		e.Checksum,
		convertToDB_Time(now),
		e.Format,
		convertToDB_Bool(e.Compressed),
		data,
	)
	if err != nil {
		return cache.Entry{}, wrapDBError(err)
	}
	st.log.WithField("path", e.Path).Debug("entry created")

	return st.GetByID(ctx, newUUID)
}

const selectColumns = `SELECT id, path, language, kind, checksum, created, format, compressed, data FROM entries`

func (st *Store) GetAll(ctx context.Context) ([]cache.Entry, error) {
	rows, err := st.db.QueryContext(ctx, selectColumns+` ORDER BY path;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []cache.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return all, err
		}
		all = append(all, e)
	}

	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func (st *Store) GetByID(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	row := st.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?;`, convertToDB_UUID(id))
	return scanEntry(row)
}

func (st *Store) GetByPath(ctx context.Context, path string) (cache.Entry, error) {
	row := st.db.QueryRowContext(ctx, selectColumns+` WHERE path = ?;`, path)
	return scanEntry(row)
}

func (st *Store) Delete(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	curVal, err := st.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	res, err := st.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, convertToDB_UUID(id))
	if err != nil {
		return curVal, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return curVal, wrapDBError(err)
	}
	if rowsAff < 1 {
		return curVal, cache.ErrNotFound
	}
	st.log.WithField("path", curVal.Path).Debug("entry deleted")

	return curVal, nil
}

func (st *Store) Close() error {
	if err := st.db.Close(); err != nil {
		return fmt.Errorf("%s: %w", st.file, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (cache.Entry, error) {
	var e cache.Entry
	var id string
	var kind int
	var created int64
	var compressed int

	err := row.Scan(
		&id,
		&e.Path,
		&e.Language,
		&kind,
		&e.Checksum,
		&created,
		&e.Format,
		&compressed,
		&e.Data,
	)
	if err != nil {
		return e, wrapDBError(err)
	}

	e.ID, err = uuid.Parse(id)
	if err != nil {
		return e, fmt.Errorf("stored UUID %q is invalid", id)
	}
	e.Kind = cache.Kind(kind)
	e.Created = convertFromDB_Time(created)
	e.Compressed = compressed != 0

	return e, nil
}

func convertToDB_UUID(u uuid.UUID) string {
	return u.String()
}

func convertToDB_Time(t time.Time) int64 {
	return t.Unix()
}

func convertFromDB_Time(i int64) time.Time {
	return time.Unix(i, 0)
}

func convertToDB_Bool(b bool) int {
	if b {
		return 1
	}
	return 0
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		// extended result codes keep the primary code in the low byte.
		if sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return cache.ErrConstraintViolation
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return cache.ErrNotFound
	}
	return err
}
