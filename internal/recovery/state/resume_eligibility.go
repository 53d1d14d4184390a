package state

import "fmt"

// Resume describes a failed run whose unfinished reps the next run will
// pick up.
type Resume struct {
	PreviousRunID string
	RetryCount    int
	Failure       Failure

	// SiteChanged reports whether the site inputs changed since the failed
	// run. Unfinished reps are recompiled either way.
	SiteChanged bool
}

// CheckResume reports whether the latest run failed in a resumable way.
// Runs that are still marked running were interrupted before they could
// record a failure and count as resumable.
func CheckResume(s *Store, siteChecksum string) (*Resume, error) {
	prev, ok, err := s.Latest()
	if err != nil {
		return nil, err
	}
	if !ok || prev.Status == RunStatusSucceeded {
		return nil, nil
	}
	res := &Resume{
		PreviousRunID: prev.RunID,
		RetryCount:    prev.RetryCount,
		SiteChanged:   prev.SiteChecksum != siteChecksum,
	}
	if prev.Status == RunStatusRunning {
		res.Failure = Failure{FailureClass: FailureClassSystem, ErrorCode: "Interrupted", ErrorMessage: "run did not finish", Resumable: true}
		return res, nil
	}
	f, ok, err := s.LoadFailure(prev.RunID)
	if err != nil {
		return nil, fmt.Errorf("load failure of run %s: %w", prev.RunID, err)
	}
	if !ok || !f.Resumable {
		return nil, nil
	}
	res.Failure = f
	return res, nil
}
