package events

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type panickingSink struct{}

func (panickingSink) Emit(Event) { panic("boom") }

func TestSafeEmit_SwallowsPanicsAndNil(t *testing.T) {
	SafeEmit(nil, Event{Kind: CompilationStarted})
	SafeEmit(panickingSink{}, Event{Kind: CompilationStarted})
}

func TestMulti_ContinuesPastPanickingSink(t *testing.T) {
	rec := NewRecorder()
	m := Multi{panickingSink{}, rec}
	m.Emit(Event{Kind: SnapshotCreated, Rep: "a", Subject: "last"})

	got := rec.Snapshot()
	if len(got) != 1 || got[0].Subject != "last" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestRecorder_OfKindPreservesOrder(t *testing.T) {
	rec := NewRecorder()
	rec.Emit(Event{Kind: CompilationStarted, Rep: "b"})
	rec.Emit(Event{Kind: CompilationEnded, Rep: "b"})
	rec.Emit(Event{Kind: CompilationStarted, Rep: "a"})

	got := rec.Reps(CompilationStarted)
	if strings.Join(got, ",") != "b,a" {
		t.Fatalf("expected b,a got %v", got)
	}

	rec.Reset()
	if n := len(rec.Snapshot()); n != 0 {
		t.Fatalf("expected empty recorder after reset, got %d events", n)
	}
}

func TestLogSink_WritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := LogSink{Logger: logger}

	s.Emit(Event{Kind: CompilationSuspended, Rep: "item_rep:default:/a", Target: "item_rep:default:/b", Subject: "last"})
	s.Emit(Event{Kind: StageAborted, Subject: "compile_reps", Err: errors.New("cycle")})

	out := buf.String()
	for _, want := range []string{"compilation_suspended", "target=item_rep:default:/b", "level=ERROR", "error=cycle"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsSink_CountsAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetricsSink(reg)
	if err != nil {
		t.Fatalf("new metrics sink: %v", err)
	}

	m.Emit(Event{Kind: CompilationStarted})
	m.Emit(Event{Kind: CompilationStarted})
	m.Emit(Event{Kind: StageEnded, Subject: "compile_reps", Duration: 3 * time.Millisecond})
	m.Emit(Event{Kind: RepWriteEnded, Modified: true})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	if v := counterValue(families, "sitebuild_events_total", "kind", string(CompilationStarted)); v != 2 {
		t.Fatalf("expected 2 compilation_started, got %v", v)
	}
	if v := counterValue(families, "sitebuild_rep_writes_total", "modified", "true"); v != 1 {
		t.Fatalf("expected 1 modified write, got %v", v)
	}
	for _, name := range []string{"sitebuild_events_total", "sitebuild_stage_duration_seconds", "sitebuild_rep_writes_total"} {
		if !found[name] {
			t.Fatalf("metric family %s not gathered", name)
		}
	}

	if _, err := NewMetricsSink(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func counterValue(families []*dto.MetricFamily, name, label, value string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
