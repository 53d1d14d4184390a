package state

import (
	"errors"
	"fmt"
	"time"
)

// Recorder writes the run records of a site's compilations.
type Recorder struct {
	Store *Store

	// Keep is how many runs survive pruning; zero keeps all.
	Keep int

	now func() time.Time
}

func (r *Recorder) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}

// StartRun persists run as running. It links run to the latest recorded
// run and, when that run failed, counts this one as a retry of it.
func (r *Recorder) StartRun(run Run) (Run, error) {
	if r == nil || r.Store == nil {
		return Run{}, errors.New("Store is required")
	}
	if run.StartTime.IsZero() {
		run.StartTime = r.clock()
	}
	run.Status = RunStatusRunning
	prev, ok, err := r.Store.Latest()
	if err != nil {
		return Run{}, fmt.Errorf("load previous run: %w", err)
	}
	if ok {
		id := prev.RunID
		run.PreviousRunID = &id
		if prev.Status != RunStatusSucceeded {
			run.RetryCount = prev.RetryCount + 1
		}
	}
	if err := r.Store.SaveRun(run); err != nil {
		return Run{}, err
	}
	return run, nil
}

// FinishRun marks run as succeeded or, when runErr is set, failed with a
// classified failure record.
func (r *Recorder) FinishRun(run Run, runErr error) (Run, error) {
	if r == nil || r.Store == nil {
		return Run{}, errors.New("Store is required")
	}
	run.EndTime = r.clock()
	run.Status = RunStatusSucceeded
	if runErr != nil {
		run.Status = RunStatusFailed
		if err := r.Store.SaveFailure(run.RunID, failureFromError(runErr)); err != nil {
			return Run{}, err
		}
	}
	if err := r.Store.SaveRun(run); err != nil {
		return Run{}, err
	}
	if r.Keep > 0 {
		if err := r.Store.Prune(r.Keep); err != nil {
			return run, fmt.Errorf("prune runs: %w", err)
		}
	}
	return run, nil
}
