package state

import (
	"context"
	"errors"

	"sitebuild/internal/compile"
	"sitebuild/internal/config"
	"sitebuild/internal/filters"
	"sitebuild/internal/site"
)

// failureFromError classifies err. Configuration and site errors need an
// input change before a retry can succeed; a failed rep, an interruption or
// an unknown error may succeed as is.
func failureFromError(err error) Failure {
	var (
		cfgErr    *config.Error
		dsErr     *site.UnknownDataSourceError
		ruleErr   *site.NoMatchingRuleError
		filterErr *filters.UnknownFilterError
		dupErr    *compile.DuplicateOutputPathError
		cycleErr  *compile.DependencyCycleError
		compErr   *compile.CompilationError
	)
	switch {
	case errors.As(err, &cfgErr):
		return Failure{FailureClass: FailureClassConfig, ErrorCode: "InvalidConfig", ErrorMessage: err.Error()}
	case errors.As(err, &dsErr):
		return Failure{FailureClass: FailureClassConfig, ErrorCode: "UnknownDataSource", ErrorMessage: err.Error()}
	case errors.As(err, &ruleErr):
		return Failure{FailureClass: FailureClassSite, ErrorCode: "NoMatchingRule", ErrorMessage: err.Error()}
	case errors.As(err, &dupErr):
		return Failure{FailureClass: FailureClassSite, ErrorCode: "DuplicateOutputPath", ErrorMessage: err.Error()}
	case errors.Is(err, compile.ErrInvalidRoute):
		return Failure{FailureClass: FailureClassSite, ErrorCode: "InvalidRoute", ErrorMessage: err.Error()}
	case errors.As(err, &cycleErr):
		f := Failure{FailureClass: FailureClassCompilation, ErrorCode: "DependencyCycle", ErrorMessage: err.Error()}
		if len(cycleErr.Cycle) > 0 {
			f.Rep = repRef(cycleErr.Cycle[0].Reference().String())
		}
		return f
	case errors.As(err, &compErr):
		code := "CompilationFailed"
		if errors.As(err, &filterErr) {
			code = "UnknownFilter"
		}
		var kind *compile.Error
		if errors.As(err, &kind) {
			code = compileErrorCode(kind.Kind)
		}
		return Failure{
			FailureClass: FailureClassCompilation,
			Rep:          repRef(compErr.Rep.Reference().String()),
			ErrorCode:    code,
			ErrorMessage: err.Error(),
			Resumable:    true,
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Failure{FailureClass: FailureClassSystem, ErrorCode: "Interrupted", ErrorMessage: err.Error(), Resumable: true}
	default:
		return Failure{FailureClass: FailureClassSystem, ErrorCode: "UnknownError", ErrorMessage: err.Error(), Resumable: true}
	}
}

var compileErrorCodes = map[error]string{
	compile.ErrCannotUseBinaryFilter:    "CannotUseBinaryFilter",
	compile.ErrCannotUseTextualFilter:   "CannotUseTextualFilter",
	compile.ErrCannotLayoutBinaryItem:   "CannotLayoutBinaryItem",
	compile.ErrOutputNotWritten:         "OutputNotWritten",
	compile.ErrUnknownLayout:            "UnknownLayout",
	compile.ErrUndefinedFilterForLayout: "UndefinedFilterForLayout",
}

func compileErrorCode(kind error) string {
	if code, ok := compileErrorCodes[kind]; ok {
		return code
	}
	return "CompilationFailed"
}

func repRef(s string) *string { return &s }
