package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IndicatorMaster/internal/model"
)

type fakeRunner struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (f *fakeRunner) Run(context.Context) *model.RunResult {
	f.calls.Add(1)
	if f.running.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.running.Add(-1)
	time.Sleep(f.delay)
	now := time.Now()
	return &model.RunResult{
		RunID: "r", StartedAt: now, FinishedAt: now,
		Statuses: []model.IndicatorStatus{{Name: "dxy", Status: model.StatusMerged}},
	}
}

type fakeViewer struct{ doc *model.Document }

func (f fakeViewer) Load() *model.Document { return f.doc }

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func TestRunNow_SendsReport(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), &fakeRunner{}, fakeViewer{}, sender)

	res := s.RunNow()
	require.NotNil(t, res)
	assert.Same(t, res, s.Last())
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "merged 1")
}

func TestRunNow_NeverOverlaps(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	s := NewScheduler(context.Background(), runner, fakeViewer{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RunNow()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(4), runner.calls.Load())
	assert.False(t, runner.overlap.Load())
}

func TestHandleCommand(t *testing.T) {
	doc := model.NewDocument(time.Now())
	doc.Indicators["us10y"] = &model.IndicatorRecord{CurrentValue: model.Float(4.2), DataQuality: model.QualityReal}
	runner := &fakeRunner{}
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), runner, fakeViewer{doc: doc}, sender)
	ctx := context.Background()

	assert.Equal(t, "no run yet", s.HandleCommand(ctx, "/last"))
	assert.Contains(t, s.HandleCommand(ctx, "/status"), "us10y: 4.2")
	assert.Equal(t, "", s.HandleCommand(ctx, "/run"))
	assert.Equal(t, int32(1), runner.calls.Load())
	assert.Contains(t, s.HandleCommand(ctx, "/last"), "IndicatorMaster run")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/run")
	assert.Contains(t, s.HandleCommand(ctx, "  "), "/status")
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, fakeViewer{}, nil)
	require.NoError(t, s.Register("0 0 7 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))
}
