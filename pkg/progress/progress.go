package progress

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/ppphp/portagebrowser/pkg/events"
)

const (
	minColumns = 11
	maxColumns = 80
)

// ProgressBar prints scan events. On a terminal it redraws a single status
// line at most every minDisplayLatency; elsewhere it prints one line per
// finished tree.
type ProgressBar struct {
	out               io.Writer
	isatty            bool
	fd                int
	minDisplayLatency time.Duration

	mu          sync.Mutex
	termColumns int
	lastUpdate  time.Time
	drawn       bool
}

func NewProgressBar(f *os.File) *ProgressBar {
	p := &ProgressBar{
		out:               f,
		fd:                int(f.Fd()),
		isatty:            term.IsTerminal(int(f.Fd())),
		minDisplayLatency: 200 * time.Millisecond,
		termColumns:       maxColumns,
	}
	p.sigwinchHandler()
	return p
}

// newWriter is used where no terminal is involved.
func newWriter(w io.Writer) *ProgressBar {
	return &ProgressBar{out: w, termColumns: maxColumns}
}

func (p *ProgressBar) sigwinchHandler() {
	if !p.isatty {
		return
	}
	if w, _, err := term.GetSize(p.fd); err == nil {
		p.mu.Lock()
		p.termColumns = w
		p.mu.Unlock()
	}
}

// Run displays the events read from ch until it is closed.
func (p *ProgressBar) Run(ch <-chan events.Event) {
	var winch chan os.Signal
	if p.isatty {
		winch = make(chan os.Signal, 1)
		signal.Notify(winch, unix.SIGWINCH)
		defer signal.Stop(winch)
	}
	for {
		select {
		case <-winch:
			p.sigwinchHandler()
		case ev, ok := <-ch:
			if !ok {
				p.finish()
				return
			}
			p.Handle(ev)
		}
	}
}

func (p *ProgressBar) Handle(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch e := ev.(type) {
	case events.Progress:
		if !p.isatty {
			return
		}
		now := time.Now()
		if now.Sub(p.lastUpdate) < p.minDisplayLatency {
			return
		}
		p.lastUpdate = now
		p.displayLine(fmt.Sprintf("%s: %d packages", e.Tree, e.Packages))
	case events.TreeComplete:
		s := fmt.Sprintf("%s: %d packages in %s", e.Tree, e.Packages, e.Elapsed.Round(time.Millisecond))
		if e.Err != nil {
			s = fmt.Sprintf("%s: %v", e.Tree, e.Err)
		}
		p.printLine(s)
	case events.AllComplete:
		s := fmt.Sprintf("%d packages, %d versions in %s", e.Packages, e.Versions, e.Elapsed.Round(time.Millisecond))
		if e.Err != nil {
			s += fmt.Sprintf(" (%v)", e.Err)
		}
		p.printLine(s)
	case events.CacheSaved:
		if e.Err != nil {
			p.printLine(fmt.Sprintf("cache %s: %v", e.Path, e.Err))
		}
	case events.CacheLoaded:
		if e.Err != nil {
			p.printLine(fmt.Sprintf("cache %s: %v", e.Path, e.Err))
			return
		}
		p.printLine(fmt.Sprintf("%s: %d packages in %s", e.Path, e.Packages, e.Elapsed.Round(time.Millisecond)))
	}
}

func (p *ProgressBar) columns() int {
	cols := p.termColumns
	if cols > maxColumns {
		cols = maxColumns
	}
	return cols
}

func (p *ProgressBar) displayLine(s string) {
	cols := p.columns()
	if cols < minColumns {
		return
	}
	if len(s) > cols-1 {
		s = s[:cols-1]
	}
	fmt.Fprintf(p.out, "\r%s%s", s, strings.Repeat(" ", cols-1-len(s)))
	p.drawn = true
}

func (p *ProgressBar) printLine(s string) {
	if p.drawn {
		fmt.Fprint(p.out, "\r"+strings.Repeat(" ", p.columns()-1)+"\r")
		p.drawn = false
	}
	fmt.Fprintln(p.out, s)
}

func (p *ProgressBar) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}
