package recorder

import "IndicatorMaster/internal/model"

// Recorder persists the outcome of every collection run for later analysis.
type Recorder interface {
	RecordRun(res *model.RunResult) error
	Close() error
}
