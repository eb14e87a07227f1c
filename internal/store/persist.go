package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"IndicatorMaster/internal/model"
	"IndicatorMaster/internal/series"
)

const backupStamp = "20060102T150405Z"

// Save applies retention, sanitizes every number, copies the current file
// (if any) to a timestamped backup and then replaces the file atomically.
// It returns the backup path, empty when there was no previous file. Every
// failure wraps model.ErrPersistenceFailure; the previous file stays valid.
func (s *Store) Save() (string, error) {
	doc := s.Document()
	s.applyRetention()
	for _, rec := range doc.Indicators {
		series.SanitizeRecord(rec)
	}
	if doc.Metadata.SchemaVersion == "" {
		doc.Metadata.SchemaVersion = model.SchemaVersion
	}
	doc.Metadata.LastUpdatedAt = s.opts.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode: %w", model.ErrPersistenceFailure, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.opts.Path), 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrPersistenceFailure, err)
	}

	backup, err := s.backup()
	if err != nil {
		return "", fmt.Errorf("%w: backup: %w", model.ErrPersistenceFailure, err)
	}
	if err := writeAtomic(s.opts.Path, data); err != nil {
		return backup, fmt.Errorf("%w: %w", model.ErrPersistenceFailure, err)
	}
	log.Info().Str("path", s.opts.Path).Str("backup", backup).Int("bytes", len(data)).Msg("master file saved")
	return backup, nil
}

// applyRetention drops the oldest points beyond each indicator's cap and
// keeps signal_history no longer than raw_series.
func (s *Store) applyRetention() {
	for name, max := range s.opts.Retention {
		rec, ok := s.doc.Indicators[name]
		if !ok || max <= 0 || len(rec.RawSeries) <= max {
			continue
		}
		dropped := len(rec.RawSeries) - max
		rec.RawSeries = series.Truncate(rec.RawSeries, max)
		rec.Points = len(rec.RawSeries)
		if len(rec.SignalHistory) > max {
			rec.SignalHistory = rec.SignalHistory[len(rec.SignalHistory)-max:]
		}
		log.Info().Str("indicator", name).Int("dropped", dropped).Int("kept", max).Msg("retention applied")
	}
}

// backup copies the current file byte for byte to a sibling path carrying a
// timestamp. It never overwrites an earlier backup.
func (s *Store) backup() (string, error) {
	src, err := os.Open(s.opts.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer src.Close()

	dir := s.opts.BackupDir
	if dir == "" {
		dir = filepath.Dir(s.opts.Path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := filepath.Base(s.opts.Path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := s.opts.Now().UTC().Format(backupStamp)

	var dst *os.File
	var path string
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s.backup-%s%s", stem, stamp, ext)
		if i > 0 {
			name = fmt.Sprintf("%s.backup-%s-%d%s", stem, stamp, i, ext)
		}
		path = filepath.Join(dir, name)
		dst, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path, so readers see either the old or the new file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(name)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
