package coverage

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb"
)

// TraceWriter records snapshots as text on two streams. The centers stream
// gets one "x,y" line per cell; the partition stream gets one line per cell
// listing its vertices as space-separated "x,y" pairs. Each snapshot is
// followed by a blank line on both streams. Either stream may be nil.
type TraceWriter struct {
	centers   *bufio.Writer
	partition *bufio.Writer

	mu  sync.Mutex
	err error
}

// NewTraceWriter returns a writer over the given streams.
func NewTraceWriter(centers, partition io.Writer) *TraceWriter {
	t := &TraceWriter{}
	if centers != nil {
		t.centers = bufio.NewWriter(centers)
	}
	if partition != nil {
		t.partition = bufio.NewWriter(partition)
	}
	return t
}

// Handle writes s. It matches IterationHandler so it can be passed to
// Partition.SetHandler. After the first write error further snapshots are
// dropped; the error is reported by Err and Flush.
func (t *TraceWriter) Handle(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}

	if t.centers != nil {
		for _, c := range s.Centers {
			t.write(t.centers, formatPoint(c)+"\n")
		}
		t.write(t.centers, "\n")
	}
	if t.partition != nil {
		for _, cell := range s.Covering {
			pairs := make([]string, len(cell))
			for i, v := range cell {
				pairs[i] = formatPoint(v)
			}
			t.write(t.partition, strings.Join(pairs, " ")+"\n")
		}
		t.write(t.partition, "\n")
	}
}

func (t *TraceWriter) write(w *bufio.Writer, s string) {
	if t.err != nil {
		return
	}
	if _, err := w.WriteString(s); err != nil {
		t.err = fmt.Errorf("writing trace: %w", err)
	}
}

// Flush writes any buffered data to the underlying streams.
func (t *TraceWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, w := range []*bufio.Writer{t.centers, t.partition} {
		if w == nil || t.err != nil {
			continue
		}
		if err := w.Flush(); err != nil {
			t.err = fmt.Errorf("flushing trace: %w", err)
		}
	}
	return t.err
}

// Err returns the first error encountered while writing.
func (t *TraceWriter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func formatPoint(p orb.Point) string {
	return strconv.FormatFloat(p[0], 'g', -1, 64) + "," + strconv.FormatFloat(p[1], 'g', -1, 64)
}
