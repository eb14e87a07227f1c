// Package store is the persistence boundary of the master dataset: it loads
// the JSON document, merges fetched observations into it and writes it back
// with a backup of the previous file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"IndicatorMaster/internal/model"
	"IndicatorMaster/internal/series"
	"IndicatorMaster/internal/signal"
)

// Options configures a Store.
type Options struct {
	// Path of the master JSON file.
	Path string
	// BackupDir receives timestamped copies; empty means next to Path.
	BackupDir string
	// Retention caps the number of points per indicator at save time.
	Retention map[string]int
	// MinHistory is the point count an indicator needs to be GARCH-ready.
	MinHistory map[string]int
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

// Store holds the master document in memory between Load and Save.
// It is not safe for concurrent use.
type Store struct {
	opts      Options
	registry  signal.Registry
	doc       *model.Document
	loadIssue error
	lock      *flock.Flock
	apply     func(signal.Spec, model.Series, signal.Lookup) (signal.Output, error)
}

// New creates a Store. Nothing is read until Load.
func New(opts Options, registry signal.Registry) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Retention == nil {
		opts.Retention = make(map[string]int)
	}
	if registry == nil {
		registry = signal.Registry{}
	}
	return &Store{
		opts:     opts,
		registry: registry,
		lock:     flock.New(opts.Path + ".lock"),
		apply:    signal.Apply,
	}
}

// Path returns the master file path.
func (s *Store) Path() string { return s.opts.Path }

// Load reads the master file. A missing file yields an empty document. An
// unreadable, undecodable or incompatible file is logged, left untouched on
// disk, and also yields an empty document; LoadIssue reports it.
func (s *Store) Load() *model.Document {
	now := s.opts.Now()
	s.loadIssue = nil

	data, err := os.ReadFile(s.opts.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.loadIssue = fmt.Errorf("%w: read %s: %w", model.ErrCorruptStore, s.opts.Path, err)
			log.Error().Err(err).Str("path", s.opts.Path).Msg("cannot read master file, starting empty")
		} else {
			log.Info().Str("path", s.opts.Path).Msg("no master file yet, starting empty")
		}
		s.doc = model.NewDocument(now)
		return s.doc
	}

	doc, err := decode(data)
	if err != nil {
		s.loadIssue = fmt.Errorf("%w: %s: %w", model.ErrCorruptStore, s.opts.Path, err)
		log.Error().Err(err).Str("path", s.opts.Path).Msg("master file is corrupt, keeping it on disk and starting empty")
		s.doc = model.NewDocument(now)
		return s.doc
	}
	s.doc = doc
	log.Info().Str("path", s.opts.Path).Int("indicators", len(doc.Indicators)).Msg("master file loaded")
	return s.doc
}

func decode(data []byte) (*model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := checkSchema(doc.Metadata.SchemaVersion); err != nil {
		return nil, err
	}
	if doc.Indicators == nil {
		doc.Indicators = make(map[string]*model.IndicatorRecord)
	}
	for name, rec := range doc.Indicators {
		if rec == nil {
			delete(doc.Indicators, name)
			continue
		}
		rec.Name = name
		rec.RawSeries.Sort()
		if freq, err := model.ParseFrequency(string(rec.Frequency)); err == nil {
			var collapsed int
			rec.Frequency = freq
			rec.RawSeries, collapsed = series.Normalize(rec.RawSeries, rec.Frequency)
			if collapsed > 0 {
				log.Warn().Str("indicator", name).Str("frequency", string(rec.Frequency)).Int("collapsed", collapsed).Msg("stored keys rebucketed")
			}
		}
		rec.CurrentValue = rec.RawSeries.Latest()
		rec.Points = len(rec.RawSeries)
	}
	doc.Metadata.SchemaVersion = model.SchemaVersion
	return &doc, nil
}

// checkSchema accepts documents without a version (first generation files)
// and any version whose major is not newer than ours.
func checkSchema(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("schema_version %q: %w", version, err)
	}
	ours := semver.MustParse(model.SchemaVersion)
	if v.Major() > ours.Major() {
		return fmt.Errorf("schema_version %s is newer than supported %s", v, ours)
	}
	return nil
}

// LoadIssue returns the reason the last Load started from an empty document
// despite a file being present, or nil.
func (s *Store) LoadIssue() error { return s.loadIssue }

// Document returns the in-memory document, loading it first if needed.
func (s *Store) Document() *model.Document {
	if s.doc == nil {
		s.Load()
	}
	return s.doc
}

// Record returns the stored record of name.
func (s *Store) Record(name string) (*model.IndicatorRecord, bool) {
	rec, ok := s.Document().Indicators[name]
	return rec, ok
}

// Names returns the stored indicator names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.Document().Indicators))
	for name := range s.doc.Indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetRetention caps name at max points, oldest dropped first, applied by Save.
func (s *Store) SetRetention(name string, max int) {
	s.opts.Retention[name] = max
}

// Merge carries one fetch result into MergeIndicator.
func (s *Store) Merge(res *model.FetchResult) (*model.IndicatorRecord, error) {
	return s.MergeIndicator(res.Name, res.Observations, res.Frequency, res.Source, res.Quality, res.Extras)
}

// MergeIndicator merges obs into the indicator name, refreshes its derived
// fields and re-runs its registered transform. The record is replaced only
// when every step succeeds; any failure, panics included, leaves the stored
// record as it was and returns an error wrapping model.ErrMergeFailure.
// When obs holds no valid point the record is left untouched and
// model.ErrNoObservations is returned.
func (s *Store) MergeIndicator(name string, obs model.Observations, freq model.Frequency, source string, quality model.DataQuality, extras map[string]any) (rec *model.IndicatorRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w: %s: panic: %v", model.ErrMergeFailure, name, r)
		}
	}()

	doc := s.Document()
	if name == "" {
		return nil, fmt.Errorf("%w: empty indicator name", model.ErrMergeFailure)
	}
	if _, err := model.ParseFrequency(string(freq)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrMergeFailure, name, err)
	}
	if _, err := model.ParseDataQuality(string(quality)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrMergeFailure, name, err)
	}

	prev := doc.Indicators[name]
	work := prev.Clone()
	if work == nil {
		work = &model.IndicatorRecord{Name: name, Frequency: freq}
	}
	if work.Frequency == "" {
		// Records written before unit_frequency was stored take the fetched one.
		work.Frequency = freq
		work.RawSeries, _ = series.Normalize(work.RawSeries, freq)
	}
	if work.Frequency != freq {
		return nil, fmt.Errorf("%w: %s: frequency %s does not match stored %s", model.ErrMergeFailure, name, freq, work.Frequency)
	}

	merged, stats, err := series.Merge(work.RawSeries, obs, freq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := stats.Err(); err != nil {
		log.Warn().Err(err).Str("indicator", name).Msg("dropped non-finite observations")
	}
	if stats.Applied == 0 {
		return prev, fmt.Errorf("%s: %w", name, model.ErrNoObservations)
	}
	if source == "" {
		return nil, fmt.Errorf("%w: %s: empty source", model.ErrMergeFailure, name)
	}

	now := s.opts.Now().UTC()
	work.RawSeries = merged
	work.CurrentValue = merged.Latest()
	work.Source = source
	work.DataQuality = quality
	work.LastUpdated = now
	if extras != nil {
		clean, _ := series.Sanitize(extras).(map[string]any)
		if _, err := json.Marshal(clean); err != nil {
			return nil, fmt.Errorf("%w: %s: extras: %w", model.ErrMergeFailure, name, err)
		}
		work.Extras = clean
	}
	if err := s.derive(work); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrMergeFailure, name, err)
	}

	doc.Indicators[name] = work
	doc.Metadata.LastUpdatedAt = now
	return work, nil
}

// derive recomputes everything a record holds beyond its raw series.
func (s *Store) derive(rec *model.IndicatorRecord) error {
	rec.Points = len(rec.RawSeries)
	min := s.opts.MinHistory[rec.Name]
	rec.GarchReady = min > 0 && rec.Points >= min

	spec, ok := s.registry[rec.Name]
	if !ok {
		return nil
	}
	out, err := s.apply(spec, rec.RawSeries, s.lookup)
	if err != nil {
		return err
	}
	if out.Insufficient {
		log.Info().Str("indicator", rec.Name).Str("transform", string(spec.Kind)).Int("points", rec.Points).Msg("not enough history for a signal")
	}
	rec.SignalValue = out.Value
	rec.SignalHistory = out.History
	rec.Trend = out.Trend
	return nil
}

func (s *Store) lookup(name string) (model.Series, bool) {
	rec, ok := s.doc.Indicators[name]
	if !ok {
		return nil, false
	}
	return rec.RawSeries, true
}
