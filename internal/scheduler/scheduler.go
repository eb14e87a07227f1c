package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"IndicatorMaster/internal/model"
	"IndicatorMaster/internal/notifier"
)

// Runner performs one collection run.
type Runner interface {
	Run(ctx context.Context) *model.RunResult
}

// Viewer reads the current master document.
type Viewer interface {
	Load() *model.Document
}

// Sender delivers a message to the operator.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler triggers collection runs on a cron schedule and on command.
// Runs never overlap: the store behind the runner is single-writer.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Store    Viewer
	Notifier Sender
	Ctx      context.Context

	mu   sync.Mutex
	last *model.RunResult
}

// NewScheduler creates a new Scheduler. sender may be nil.
func NewScheduler(ctx context.Context, runner Runner, store Viewer, sender Sender) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Runner:   runner,
		Store:    store,
		Notifier: sender,
		Ctx:      ctx,
	}
}

// Register adds the collection task under spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.runTask); err != nil {
		return fmt.Errorf("register collection task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes a collection run immediately and reports it.
func (s *Scheduler) RunNow() *model.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.Runner.Run(s.Ctx)
	s.last = res
	s.trySend(notifier.FormatRunReport(res))
	return res
}

// Last returns the most recent run, nil before the first one.
func (s *Scheduler) Last() *model.RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) runTask() {
	log.Info().Msg("running scheduled collection")
	s.RunNow()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help
	}
	switch fields[0] {
	case "/run":
		// RunNow already sent the report.
		s.RunNow()
		return ""
	case "/status":
		s.mu.Lock()
		doc := s.Store.Load()
		s.mu.Unlock()
		return notifier.FormatSignals(doc)
	case "/last":
		if last := s.Last(); last != nil {
			return notifier.FormatRunReport(last)
		}
		return "no run yet"
	default:
		return help
	}
}

const help = "Commands:\n• /run collect now\n• /status latest signals\n• /last last run report"

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
