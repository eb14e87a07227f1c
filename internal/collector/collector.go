package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"IndicatorMaster/internal/config"
	"IndicatorMaster/internal/metrics"
	"IndicatorMaster/internal/model"
	"IndicatorMaster/internal/recorder"
	"IndicatorMaster/internal/store"
)

// Collector runs one collection pass: fetch every configured indicator,
// merge what arrived into the master store and save it.
type Collector struct {
	Store       *store.Store
	Indicators  []config.Indicator
	Fetchers    map[string]Fetcher // keyed by source kind
	Recorder    recorder.Recorder
	Metrics     *metrics.Metrics
	LockTimeout time.Duration
	// MetricsPath, when set, receives a textfile dump after each run.
	MetricsPath string

	now func() time.Time
}

// NewCollector wires a Collector from config with the live fetchers.
func NewCollector(cfg *config.Config, st *store.Store, rec recorder.Recorder, m *metrics.Metrics) *Collector {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Collector{
		Store:      st,
		Indicators: cfg.Indicators,
		Fetchers: map[string]Fetcher{
			"yahoo":  NewYahooFetcher(cfg.Proxy),
			"fred":   NewFREDFetcher(cfg.FRED.BaseURL, cfg.FRED.APIKey, cfg.Proxy),
			"file":   FileFetcher{},
			"static": StaticFetcher{},
		},
		Recorder:    rec,
		Metrics:     m,
		LockTimeout: cfg.Store.LockTimeout,
		MetricsPath: cfg.Metrics.TextfilePath,
	}
}

// Run fetches and merges every configured indicator. One indicator's fetch
// or merge failure never stops the others.
func (c *Collector) Run(ctx context.Context) *model.RunResult {
	return c.session(ctx, func(res *model.RunResult) {
		for _, ind := range ordered(c.Indicators) {
			if err := ctx.Err(); err != nil {
				c.note(res, ind.Name, model.StatusSkipped, fmt.Sprintf("run cancelled: %v", err), nil)
				continue
			}
			fr, err := c.fetch(ctx, ind)
			if err != nil {
				log.Warn().Err(err).Str("indicator", ind.Name).Msg("fetch failed, keeping stored history")
				c.note(res, ind.Name, model.StatusSkipped, fmt.Sprintf("fetch: %v", err), nil)
				continue
			}
			c.merge(res, fr)
		}
	})
}

// Ingest merges results produced outside the fetch loop, such as a manual
// import, under the same lock, load and save cycle as Run.
func (c *Collector) Ingest(ctx context.Context, results ...*model.FetchResult) *model.RunResult {
	return c.session(ctx, func(res *model.RunResult) {
		for _, fr := range results {
			if fr.Err != nil {
				c.note(res, fr.Name, model.StatusSkipped, fmt.Sprintf("fetch: %v", fr.Err), nil)
				continue
			}
			c.merge(res, fr)
		}
	})
}

func (c *Collector) session(ctx context.Context, body func(res *model.RunResult)) *model.RunResult {
	now := c.clock()
	res := &model.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: now(),
		Path:      c.Store.Path(),
	}
	logger := log.With().Str("run_id", res.RunID).Logger()
	logger.Info().Str("path", res.Path).Msg("run started")

	defer func() {
		res.FinishedAt = now()
		c.finish(res)
	}()

	lockCtx := ctx
	if c.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, c.LockTimeout)
		defer cancel()
	}
	if err := c.Store.Lock(lockCtx); err != nil {
		res.Err = err
		logger.Error().Err(err).Msg("cannot lock master file")
		return res
	}
	defer func() {
		if err := c.Store.Unlock(); err != nil {
			logger.Warn().Err(err).Msg("unlock master file")
		}
	}()

	c.Store.Load()
	if issue := c.Store.LoadIssue(); issue != nil {
		res.Warnings = append(res.Warnings, issue.Error())
	}

	body(res)

	backup, err := c.Store.Save()
	res.BackupPath = backup
	if err != nil {
		res.Err = err
		logger.Error().Err(err).Msg("save failed, previous master file left in place")
	}
	return res
}

func (c *Collector) fetch(ctx context.Context, ind config.Indicator) (*model.FetchResult, error) {
	f, ok := c.Fetchers[ind.Source.Kind]
	if !ok {
		return nil, fmt.Errorf("no fetcher for source kind %q", ind.Source.Kind)
	}
	fr, err := f.Fetch(ctx, ind)
	if err == nil {
		err = fr.Err
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	log.Debug().Str("indicator", ind.Name).Str("fetcher", f.Name()).Int("observations", len(fr.Observations)).Msg("fetched")
	return fr, nil
}

func (c *Collector) merge(res *model.RunResult, fr *model.FetchResult) {
	rec, err := c.Store.Merge(fr)
	switch {
	case errors.Is(err, model.ErrNoObservations):
		log.Info().Str("indicator", fr.Name).Msg("no new observations")
		c.note(res, fr.Name, model.StatusSkipped, "no valid observations", rec)
	case err != nil:
		log.Error().Err(err).Str("indicator", fr.Name).Msg("merge failed, indicator left unchanged")
		c.note(res, fr.Name, model.StatusFailed, err.Error(), nil)
	default:
		log.Debug().Str("indicator", fr.Name).Int("points", rec.Points).Msg("merged")
		c.note(res, fr.Name, model.StatusMerged, "", rec)
	}
}

func (c *Collector) note(res *model.RunResult, name string, status model.Status, msg string, rec *model.IndicatorRecord) {
	st := model.IndicatorStatus{Name: name, Status: status, Message: msg}
	if rec != nil {
		st.Points = rec.Points
		st.CurrentValue = rec.CurrentValue
		st.SignalValue = rec.SignalValue
	}
	res.Statuses = append(res.Statuses, st)
}

func (c *Collector) finish(res *model.RunResult) {
	if c.Recorder != nil {
		if err := c.Recorder.RecordRun(res); err != nil {
			log.Warn().Err(err).Str("run_id", res.RunID).Msg("record run")
		}
	}
	if c.Metrics != nil {
		c.Metrics.Observe(res)
		if c.MetricsPath != "" {
			if err := c.Metrics.WriteTextfile(c.MetricsPath); err != nil {
				log.Warn().Err(err).Str("path", c.MetricsPath).Msg("write metrics textfile")
			}
		}
	}

	ev := log.Info()
	if !res.OK() {
		ev = log.Warn().AnErr("error", res.Err)
	}
	ev.Str("run_id", res.RunID).
		Int("merged", res.Count(model.StatusMerged)).
		Int("skipped", res.Count(model.StatusSkipped)).
		Int("failed", res.Count(model.StatusFailed)).
		Dur("took", res.FinishedAt.Sub(res.StartedAt)).
		Msg("run finished")
}

func (c *Collector) clock() func() time.Time {
	if c.now != nil {
		return c.now
	}
	return time.Now
}

// ordered moves indicators that read another indicator's series behind the
// rest, so the series they read is already merged.
func ordered(inds []config.Indicator) []config.Indicator {
	out := make([]config.Indicator, len(inds))
	copy(out, inds)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Transform.Against == "" && out[j].Transform.Against != ""
	})
	return out
}
