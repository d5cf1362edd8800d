// Package artifact stores finished reports as CSV files.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"storepulse/internal/model"
	"storepulse/pkg/interfaces"
)

// ErrArtifactNotFound is returned when a handle does not name a committed artifact
var ErrArtifactNotFound = errors.New("artifact not found")

// FileStore filesystem-backed ArtifactStore, one CSV file per report
type FileStore struct {
	baseDir string
	places  int
}

// NewFileStore creates the base directory if needed; places is the number of decimals written per figure
func NewFileStore(baseDir string, places int) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure artifact dir: %w", err)
	}
	if places < 0 {
		return nil, fmt.Errorf("decimal places must not be negative, got %d", places)
	}
	return &FileStore{baseDir: baseDir, places: places}, nil
}

// HandleFor file name of a report's artifact
func HandleFor(reportID string) string {
	return "report_" + reportID + ".csv"
}

// Create opens a temporary file and writes the header row
func (s *FileStore) Create(ctx context.Context, reportID string) (interfaces.ArtifactWriter, error) {
	handle := HandleFor(reportID)
	if err := validateHandle(handle); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.baseDir, handle+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}

	digest := sha256.New()
	counter := &countingWriter{}
	w := &fileWriter{
		store:   s,
		handle:  handle,
		tmp:     tmp,
		digest:  digest,
		counter: counter,
		csv:     csv.NewWriter(io.MultiWriter(tmp, digest, counter)),
	}
	if err := w.csv.Write(model.ReportColumns); err != nil {
		w.Abort()
		return nil, fmt.Errorf("failed to write artifact header: %w", err)
	}
	return w, nil
}

// Open opens a committed artifact
func (s *FileStore) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, handle)
		}
		return nil, err
	}
	return f, nil
}

// Delete removes a committed artifact
func (s *FileStore) Delete(ctx context.Context, handle string) error {
	if err := validateHandle(handle); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.baseDir, handle))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

func validateHandle(handle string) error {
	if handle == "" || handle != filepath.Base(handle) || strings.HasPrefix(handle, ".") {
		return fmt.Errorf("invalid artifact handle %q", handle)
	}
	return nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// fileWriter appends CSV rows to a temp file that is renamed into place on Commit
type fileWriter struct {
	store    *FileStore
	handle   string
	tmp      *os.File
	digest   hash.Hash
	counter  *countingWriter
	csv      *csv.Writer
	rowCount int
	closed   bool
}

// WriteRows appends one batch
func (w *fileWriter) WriteRows(rows []model.ReportRow) error {
	if w.closed {
		return fmt.Errorf("artifact %s already closed", w.handle)
	}
	for _, row := range rows {
		if err := w.csv.Write(w.record(row)); err != nil {
			return fmt.Errorf("failed to write artifact row: %w", err)
		}
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush artifact rows: %w", err)
	}
	w.rowCount += len(rows)
	return nil
}

func (w *fileWriter) record(row model.ReportRow) []string {
	format := func(v float64) string {
		return strconv.FormatFloat(v, 'f', w.store.places, 64)
	}
	return []string{
		row.StoreID,
		format(row.UptimeLastHour),
		format(row.UptimeLastDay),
		format(row.UptimeLastWeek),
		format(row.DowntimeLastHour),
		format(row.DowntimeLastDay),
		format(row.DowntimeLastWeek),
	}
}

// Commit syncs the file and makes it visible under its handle
func (w *fileWriter) Commit() (*model.ArtifactDescriptor, error) {
	if w.closed {
		return nil, fmt.Errorf("artifact %s already closed", w.handle)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.Abort()
		return nil, fmt.Errorf("failed to flush artifact: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.Abort()
		return nil, fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		w.Abort()
		return nil, fmt.Errorf("failed to close artifact: %w", err)
	}
	w.closed = true

	path := filepath.Join(w.store.baseDir, w.handle)
	if err := os.Rename(w.tmp.Name(), path); err != nil {
		os.Remove(w.tmp.Name())
		return nil, fmt.Errorf("failed to commit artifact: %w", err)
	}

	return &model.ArtifactDescriptor{
		Handle:   w.handle,
		RowCount: w.rowCount,
		ByteSize: w.counter.n,
		Checksum: hex.EncodeToString(w.digest.Sum(nil)),
	}, nil
}

// Abort discards the temp file
func (w *fileWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.tmp.Close()
	if err := os.Remove(w.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
