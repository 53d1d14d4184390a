package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted metadata of one compilation run.
//
// PreviousRunID links a run to the run before it and is serialized as null
// for the first run of a site.
type Run struct {
	RunID         string    `json:"run_id"`
	SiteChecksum  string    `json:"site_checksum"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time,omitempty"`
	RetryCount    int       `json:"retry_count"`
	Status        RunStatus `json:"status"`
	PreviousRunID *string   `json:"previous_run_id"`
	Outdated      int       `json:"outdated"`
	Modified      int       `json:"modified"`
}

func (r Run) Validate() error {
	var errs []error
	if strings.TrimSpace(r.RunID) == "" {
		errs = append(errs, errors.New("run_id is required"))
	}
	if strings.TrimSpace(r.SiteChecksum) == "" {
		errs = append(errs, errors.New("site_checksum is required"))
	}
	if r.StartTime.IsZero() {
		errs = append(errs, errors.New("start_time is required"))
	}
	if r.RetryCount < 0 {
		errs = append(errs, errors.New("retry_count must be >= 0"))
	}
	switch r.Status {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
	default:
		errs = append(errs, fmt.Errorf("invalid status %q", r.Status))
	}
	if r.PreviousRunID != nil && strings.TrimSpace(*r.PreviousRunID) == "" {
		errs = append(errs, errors.New("previous_run_id must not be empty when provided"))
	}
	return errors.Join(errs...)
}

type FailureClass string

const (
	FailureClassConfig      FailureClass = "config"
	FailureClassSite        FailureClass = "site"
	FailureClassCompilation FailureClass = "compilation"
	FailureClassSystem      FailureClass = "system"
)

// Failure is the recorded reason a run stopped.
//
// Resumable failures leave unfinished reps in the outdated store, so the
// next run picks them up without any input change.
type Failure struct {
	FailureClass FailureClass `json:"failure_class"`
	Rep          *string      `json:"rep,omitempty"`
	ErrorCode    string       `json:"error_code"`
	ErrorMessage string       `json:"error_message"`
	Resumable    bool         `json:"resumable"`
}

func (f Failure) Validate() error {
	var errs []error
	switch f.FailureClass {
	case FailureClassConfig, FailureClassSite, FailureClassCompilation, FailureClassSystem:
	default:
		errs = append(errs, fmt.Errorf("invalid failure_class %q", f.FailureClass))
	}
	if f.Rep != nil && strings.TrimSpace(*f.Rep) == "" {
		errs = append(errs, errors.New("rep must not be empty when provided"))
	}
	if strings.TrimSpace(f.ErrorCode) == "" {
		errs = append(errs, errors.New("error_code is required"))
	}
	if strings.TrimSpace(f.ErrorMessage) == "" {
		errs = append(errs, errors.New("error_message is required"))
	}
	return errors.Join(errs...)
}
