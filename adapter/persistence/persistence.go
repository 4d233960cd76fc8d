// Package persistence contains the default [domain.Archive] implementation.
// Documents are kept as newline-delimited canonical Extended JSON, so an
// archive can be imported by any tool that reads that format.
package persistence

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/dolmen-go/contextio"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

// Archive implements [domain.Archive].
type Archive struct {
	corruptAlertThreshold float64
	fileMode              os.FileMode
	dirMode               os.FileMode
	logger                logrus.FieldLogger
}

// NewArchive returns a new implementation of [domain.Archive].
func NewArchive(options ...Option) domain.Archive {
	a := Archive{
		corruptAlertThreshold: 0.1,
		fileMode:              DefaultFileMode,
		dirMode:               DefaultDirMode,
	}
	for _, option := range options {
		option(&a)
	}
	if a.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		a.logger = discard
	}
	return &a
}

// Write implements [domain.Archive].
func (a *Archive) Write(ctx context.Context, w io.Writer, docs ...domain.EncodedDocument) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	wr := bufio.NewWriter(contextio.NewWriter(ctx, w))
	for _, doc := range docs {
		b, err := bson.MarshalExtJSON(doc, true, false)
		if err != nil {
			return err
		}
		if _, err = wr.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return wr.Flush()
}

// Read implements [domain.Archive].
func (a *Archive) Read(ctx context.Context, r io.Reader) ([]domain.EncodedDocument, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var docs []domain.EncodedDocument
	corruptItems := 0
	dataLength := 0

	lineStream := bufio.NewScanner(contextio.NewReader(ctx, r))
	lineStream.Buffer(nil, 64*1024*1024)
	for lineStream.Scan() {
		line := bytes.TrimSpace(lineStream.Bytes())
		if len(line) == 0 {
			continue
		}
		dataLength++
		var doc domain.EncodedDocument
		if err := bson.UnmarshalExtJSON(line, true, &doc); err != nil {
			corruptItems++
			a.logger.WithError(err).WithField("line", dataLength).Warn("skipping corrupt archive line")
			continue
		}
		docs = append(docs, doc)
	}
	if err := lineStream.Err(); err != nil {
		return nil, err
	}
	if dataLength > 0 {
		corruptionRate := float64(corruptItems) / float64(dataLength)
		if corruptionRate > a.corruptAlertThreshold {
			return nil, domain.ErrCorruptFiles{
				CorruptionRate:        corruptionRate,
				CorruptItems:          corruptItems,
				DataLength:            dataLength,
				CorruptAlertThreshold: a.corruptAlertThreshold,
			}
		}
	}
	return docs, nil
}

// WriteFile replaces the contents of filename with docs. The archive is
// written to a temporary file next to it first, so a failed write never
// leaves a truncated archive behind.
func (a *Archive) WriteFile(ctx context.Context, filename string, docs ...domain.EncodedDocument) (err error) {
	if err := os.MkdirAll(filepath.Dir(filename), a.dirMode); err != nil {
		return err
	}
	tempFilename := filename + "~"
	f, err := os.OpenFile(tempFilename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, a.fileMode)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tempFilename))
		}
	}()

	if err = a.Write(ctx, f, docs...); err != nil {
		return errors.Join(err, f.Close())
	}
	if err = f.Sync(); err != nil {
		return errors.Join(err, f.Close())
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tempFilename, filename)
}

// ReadFile loads every document stored in filename. A missing file is an
// empty archive.
func (a *Archive) ReadFile(ctx context.Context, filename string) ([]domain.EncodedDocument, error) {
	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return a.Read(ctx, f)
}
