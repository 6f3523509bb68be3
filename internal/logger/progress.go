package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// ProgressPrinter renders pipeline progress as a single updating line when
// the writer is a terminal, and as plain appended lines otherwise (so piped
// or redirected output stays readable).
type ProgressPrinter struct {
	writer   io.Writer
	tty      bool
	mutex    sync.Mutex
	lastLine int
}

// NewProgressPrinter creates a ProgressPrinter for the given writer.
// If writer is nil, updates are silently discarded.
func NewProgressPrinter(writer io.Writer) *ProgressPrinter {
	tty := false
	if f, ok := writer.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &ProgressPrinter{
		writer: writer,
		tty:    tty,
	}
}

// Update renders a status line with a percentage. Fraction is clamped to
// [0, 1].
func (p *ProgressPrinter) Update(status string, fraction float64) {
	if p.writer == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	line := fmt.Sprintf("[%3.0f%%] %s", fraction*100, status)

	if p.tty {
		// Pad with spaces to erase the previous, possibly longer line.
		pad := p.lastLine - len(line)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(p.writer, "\r%s%s", line, strings.Repeat(" ", pad))
		p.lastLine = len(line)
		return
	}

	fmt.Fprintln(p.writer, line)
}

// Done terminates the updating line so subsequent output starts fresh.
func (p *ProgressPrinter) Done() {
	if p.writer == nil || !p.tty {
		return
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fmt.Fprintln(p.writer)
	p.lastLine = 0
}
