package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"storepulse/internal/model"
	"storepulse/pkg/ingest"
	"storepulse/pkg/interfaces"
	"storepulse/pkg/logger"
)

// ingestOrder tables in load order
var ingestOrder = []ingest.Table{ingest.TableStoreStatus, ingest.TableMenuHours, ingest.TableTimezones}

// IngestService replaces the input tables with the content of CSV exports
type IngestService struct {
	sink   interfaces.IngestSink
	reader *ingest.Reader
}

// NewIngestService creates a new ingest service
func NewIngestService(sink interfaces.IngestSink, chunkSize int, defaultTimezone string) *IngestService {
	return &IngestService{
		sink:   sink,
		reader: ingest.NewReader(chunkSize, defaultTimezone),
	}
}

// LoadDirectory loads store_status.csv, menu_hours.csv and timezones.csv from dir.
// Missing files leave their table empty.
func (s *IngestService) LoadDirectory(ctx context.Context, dir string) ([]ingest.Stats, error) {
	files := make(map[ingest.Table]io.Reader, len(ingestOrder))
	for _, table := range ingestOrder {
		path := filepath.Join(dir, table.FileName())
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.WarnCtx(ctx, "csv file not found: %s", path)
				continue
			}
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		files[table] = f
	}
	return s.Load(ctx, files)
}

// Load resets the input tables and loads every provided file
func (s *IngestService) Load(ctx context.Context, files map[ingest.Table]io.Reader) ([]ingest.Stats, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no csv files to load")
	}
	if err := s.sink.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset tables: %w", err)
	}

	var all []ingest.Stats
	for _, table := range ingestOrder {
		in, ok := files[table]
		if !ok {
			continue
		}
		stats, err := s.loadTable(ctx, table, in)
		if err != nil {
			return all, err
		}
		logger.InfoCtx(ctx, "loaded %s: read %d, kept %d, dropped %d", table, stats.Read, stats.Kept, stats.Dropped)
		all = append(all, stats)
	}
	return all, nil
}

func (s *IngestService) loadTable(ctx context.Context, table ingest.Table, in io.Reader) (ingest.Stats, error) {
	switch table {
	case ingest.TableStoreStatus:
		return s.reader.ReadObservations(in, func(chunk []model.Observation) error {
			return s.sink.SaveObservations(ctx, chunk)
		})
	case ingest.TableMenuHours:
		return s.reader.ReadBusinessHours(in, func(chunk []model.BusinessHourRule) error {
			return s.sink.SaveBusinessHourRules(ctx, chunk)
		})
	case ingest.TableTimezones:
		return s.reader.ReadTimezones(in, func(chunk []model.TimezoneMapping) error {
			return s.sink.SaveTimezones(ctx, chunk)
		})
	default:
		return ingest.Stats{}, fmt.Errorf("unknown table %s", table)
	}
}
