// Package cache keeps encoded parse results so that a file that has not
// changed since it was last parsed can be restored without parsing it again.
// Entries are looked up by the path of the source they were parsed from and
// are only used while the source's checksum still matches.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dekarrin/parselet/internal/version"
	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrConstraintViolation = errors.New("a uniqueness constraint was violated")
	ErrNotFound            = errors.New("the requested entry was not found")
	ErrStale               = errors.New("the cached entry is out of date")
	ErrCorrupt             = errors.New("the cached entry is corrupt")
)

// Kind is what an Entry's data holds.
type Kind int

const (
	// KindParse entries hold a full parse tree, formatting included.
	KindParse Kind = iota

	// KindModel entries hold only the semantic value.
	KindModel
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindModel:
		return "model"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses the name of a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case KindParse.String():
		return KindParse, nil
	case KindModel.String():
		return KindModel, nil
	default:
		return KindParse, fmt.Errorf("kind not one of 'parse' or 'model': %q", s)
	}
}

// Entry is one cached parse result.
type Entry struct {
	ID uuid.UUID

	// Path is the path of the source file the entry was made from. It is
	// unique within a store.
	Path string

	// Language is the extension of the language the source was parsed with.
	Language string

	Kind Kind

	// Checksum is the Checksum of the source text.
	Checksum string

	Created time.Time

	// Format is the version of the cache layout the entry was written with.
	Format int

	// Compressed is whether Data is zstd-compressed.
	Compressed bool

	// Data is the binf encoding of the parse result.
	Data []byte
}

func (e Entry) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncBinary(e.ID)...)
	data = append(data, rezi.EncString(e.Path)...)
	data = append(data, rezi.EncString(e.Language)...)
	data = append(data, rezi.EncInt(int(e.Kind))...)
	data = append(data, rezi.EncString(e.Checksum)...)
	data = append(data, rezi.EncInt(int(e.Created.Unix()))...)
	data = append(data, rezi.EncInt(e.Format)...)
	data = append(data, rezi.EncBool(e.Compressed)...)
	data = append(data, rezi.EncInt(len(e.Data))...)
	data = append(data, e.Data...)

	return data, nil
}

func (e *Entry) UnmarshalBinary(data []byte) error {
	var err error
	var n int

	n, err = rezi.DecBinary(data, &e.ID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	data = data[n:]

	e.Path, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("path: %w", err)
	}
	data = data[n:]

	e.Language, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("language: %w", err)
	}
	data = data[n:]

	var kind int
	kind, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("kind: %w", err)
	}
	e.Kind = Kind(kind)
	data = data[n:]

	e.Checksum, n, err = rezi.DecString(data)
	if err != nil {
		return fmt.Errorf("checksum: %w", err)
	}
	data = data[n:]

	var created int
	created, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("created: %w", err)
	}
	e.Created = time.Unix(int64(created), 0)
	data = data[n:]

	e.Format, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	data = data[n:]

	e.Compressed, n, err = rezi.DecBool(data)
	if err != nil {
		return fmt.Errorf("compressed: %w", err)
	}
	data = data[n:]

	var dataLen int
	dataLen, n, err = rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	data = data[n:]
	if dataLen < 0 || dataLen > len(data) {
		return fmt.Errorf("data: %w", io.ErrUnexpectedEOF)
	}
	e.Data = make([]byte, dataLen)
	copy(e.Data, data)

	return nil
}

// Payload returns the entry's data, decompressed if needed.
func (e Entry) Payload() ([]byte, error) {
	if !e.Compressed {
		return e.Data, nil
	}
	return Decompress(e.Data)
}

// Store holds cache entries.
type Store interface {
	// Create adds a new entry. Its ID and Created time are assigned by the
	// store. ErrConstraintViolation is returned if there is already an entry
	// for the path.
	Create(ctx context.Context, e Entry) (Entry, error)

	GetByID(ctx context.Context, id uuid.UUID) (Entry, error)
	GetByPath(ctx context.Context, path string) (Entry, error)

	// GetAll returns every entry ordered by path.
	GetAll(ctx context.Context) ([]Entry, error)

	// Delete removes the entry with the given ID and returns it.
	Delete(ctx context.Context, id uuid.UUID) (Entry, error)

	Close() error
}

// Checksum gives the checksum recorded for a source text.
func Checksum(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Compress zstd-compresses data.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

// Replace stores e in s, first removing any entry already kept for its path.
func Replace(ctx context.Context, s Store, e Entry) (Entry, error) {
	existing, err := s.GetByPath(ctx, e.Path)
	if err == nil {
		if _, err := s.Delete(ctx, existing.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return Entry{}, fmt.Errorf("remove old entry: %w", err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return Entry{}, err
	}

	return s.Create(ctx, e)
}

// Lookup returns the entry for path if it was made from a source with the
// given checksum by this version of the cache. An entry that does not match is
// removed and ErrStale is returned. ErrNotFound is returned if there is no
// entry at all.
func Lookup(ctx context.Context, s Store, path, checksum string, log logrus.FieldLogger) (Entry, error) {
	log = orNop(log).WithField("path", path)

	e, err := s.GetByPath(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug("cache miss")
		}
		return Entry{}, err
	}

	var reason string
	if e.Format != version.CacheFormat {
		reason = fmt.Sprintf("written by cache format %d", e.Format)
	} else if e.Checksum != checksum {
		reason = "source changed"
	}
	if reason != "" {
		log.WithField("reason", reason).Debug("evicting cache entry")
		if _, err := s.Delete(ctx, e.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return Entry{}, fmt.Errorf("evict: %w", err)
		}
		return Entry{}, ErrStale
	}

	log.WithField("id", e.ID.String()).Debug("cache hit")
	return e, nil
}

// NopLogger returns a logger that discards everything.
func NopLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func orNop(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return NopLogger()
	}
	return log
}
