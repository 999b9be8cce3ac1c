package coverage

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func traceSnapshot() Snapshot {
	return Snapshot{
		Stage:   StageCenters,
		Outer:   1,
		Centers: []orb.Point{{1, 2}, {3, 2.5}},
		Weights: []float64{0, 0},
		Covering: [][]orb.Point{
			{{0, 0}, {2, 0}, {2, 4}, {0, 4}},
			{{2, 0}, {4, 0}, {4, 4}, {2, 4}},
		},
	}
}

func TestTraceWriter_Format(t *testing.T) {
	var centers, partition bytes.Buffer
	tw := NewTraceWriter(&centers, &partition)

	tw.Handle(traceSnapshot())
	tw.Handle(traceSnapshot())
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	wantCenters := "1,2\n3,2.5\n\n1,2\n3,2.5\n\n"
	if centers.String() != wantCenters {
		t.Errorf("centers trace = %q, want %q", centers.String(), wantCenters)
	}

	block := "0,0 2,0 2,4 0,4\n2,0 4,0 4,4 2,4\n\n"
	if partition.String() != block+block {
		t.Errorf("partition trace = %q, want %q", partition.String(), block+block)
	}
}

func TestTraceWriter_EmptyCell(t *testing.T) {
	var partition bytes.Buffer
	tw := NewTraceWriter(nil, &partition)

	s := traceSnapshot()
	s.Covering[1] = nil
	tw.Handle(s)
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(partition.String(), "\n")
	if len(lines) < 2 || lines[1] != "" {
		t.Errorf("empty cell should produce an empty line, got %q", partition.String())
	}
}

func TestTraceWriter_FullPrecision(t *testing.T) {
	if got := formatPoint(orb.Point{1.0 / 3, -2e-9}); got != "0.3333333333333333,-2e-09" {
		t.Errorf("formatPoint = %q", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTraceWriter_WriteError(t *testing.T) {
	tw := NewTraceWriter(failingWriter{}, nil)
	tw.Handle(traceSnapshot())

	err := tw.Flush()
	if err == nil {
		t.Fatal("expected flush error")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error = %v, want it to mention the cause", err)
	}
	if tw.Err() == nil {
		t.Error("Err() should report the stored error")
	}
}
