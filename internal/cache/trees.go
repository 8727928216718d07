package cache

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dekarrin/parselet"
	"github.com/dekarrin/parselet/binf"
	"github.com/dekarrin/parselet/internal/version"
	"github.com/sirupsen/logrus"
)

// file trees.go has the functions that move parse results in and out of a
// Store.

// Saver writes parse results to a Store.
type Saver struct {
	Store Store

	// Compress makes saved entries hold compressed data.
	Compress bool

	Log logrus.FieldLogger
}

// SaveParse stores the parse tree of text, which was read from path.
func (sv Saver) SaveParse(ctx context.Context, path string, lang *parselet.Language, text string, pn parselet.ParseNode) (Entry, error) {
	var buf bytes.Buffer
	if err := binf.EncodeParse(&buf, lang, pn); err != nil {
		return Entry{}, fmt.Errorf("encode parse tree: %w", err)
	}
	return sv.save(ctx, path, lang, KindParse, text, buf.Bytes())
}

// SaveModel stores the semantic value parsed from text, which was read from
// path.
func (sv Saver) SaveModel(ctx context.Context, path string, lang *parselet.Language, text string, v any) (Entry, error) {
	var buf bytes.Buffer
	if err := binf.EncodeModel(&buf, lang, v); err != nil {
		return Entry{}, fmt.Errorf("encode value: %w", err)
	}
	return sv.save(ctx, path, lang, KindModel, text, buf.Bytes())
}

func (sv Saver) save(ctx context.Context, path string, lang *parselet.Language, kind Kind, text string, data []byte) (Entry, error) {
	e := Entry{
		Path:     path,
		Language: lang.Extension,
		Kind:     kind,
		Checksum: Checksum(text),
		Format:   version.CacheFormat,
		Data:     data,
	}
	if sv.Compress {
		compressed, err := Compress(data)
		if err != nil {
			return Entry{}, fmt.Errorf("compress: %w", err)
		}
		e.Data = compressed
		e.Compressed = true
	}

	e, err := Replace(ctx, sv.Store, e)
	if err != nil {
		return Entry{}, err
	}
	orNop(sv.Log).WithFields(logrus.Fields{
		"path": path,
		"kind": kind.String(),
		"size": len(e.Data),
	}).Debug("cached")
	return e, nil
}

// LoadParse restores the parse tree cached for path. text must be the current
// content of the file; ErrStale is returned if it is not what the tree was
// made from. Problems found while restoring are returned alongside the tree.
func LoadParse(ctx context.Context, s Store, path string, text string, log logrus.FieldLogger) (parselet.ParseNode, []string, error) {
	e, err := Lookup(ctx, s, path, Checksum(text), log)
	if err != nil {
		return nil, nil, err
	}
	if e.Kind != KindParse {
		return nil, nil, fmt.Errorf("entry holds a %s, not a parse tree", e.Kind)
	}
	lang, err := parselet.LookupLanguage(e.Language)
	if err != nil {
		return nil, nil, err
	}

	data, err := e.Payload()
	if err != nil {
		return nil, nil, err
	}
	pn, problems, err := binf.DecodeParse(bytes.NewReader(data), lang, parselet.NewStringInput(text))
	if err != nil {
		orNop(log).WithField("path", path).Warnf("cache entry unreadable: %v", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return pn, problems, nil
}

// LoadModel restores the semantic value cached for path. text must be the
// current content of the file.
func LoadModel(ctx context.Context, s Store, path string, text string, log logrus.FieldLogger) (any, error) {
	e, err := Lookup(ctx, s, path, Checksum(text), log)
	if err != nil {
		return nil, err
	}
	if e.Kind != KindModel {
		return nil, fmt.Errorf("entry holds a %s, not a value", e.Kind)
	}

	data, err := e.Payload()
	if err != nil {
		return nil, err
	}
	v, _, err := binf.DecodeModel(bytes.NewReader(data), nil)
	if err != nil {
		orNop(log).WithField("path", path).Warnf("cache entry unreadable: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return v, nil
}
