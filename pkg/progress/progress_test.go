package progress

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ppphp/portagebrowser/pkg/events"
)

func TestRunPlain(t *testing.T) {
	var buf bytes.Buffer
	p := newWriter(&buf)
	ch := make(chan events.Event, 4)
	ch <- events.Progress{Tree: events.Mainline, Packages: 20}
	ch <- events.TreeComplete{Tree: events.Mainline, Packages: 21, Elapsed: 1500 * time.Millisecond}
	ch <- events.TreeComplete{Tree: events.Installed, Err: errors.New("not found")}
	ch <- events.AllComplete{Packages: 21, Versions: 30, Elapsed: 2 * time.Second}
	close(ch)
	p.Run(ch)

	assert.Equal(t, "mainline: 21 packages in 1.5s\ninstalled: not found\n21 packages, 30 versions in 2s\n", buf.String())
}

func TestCacheEvents(t *testing.T) {
	var buf bytes.Buffer
	p := newWriter(&buf)
	p.Handle(events.CacheSaved{Path: "tree.xml", Elapsed: time.Second})
	p.Handle(events.CacheLoaded{Path: "tree.xml", Packages: 3, Elapsed: 250 * time.Millisecond})
	p.Handle(events.CacheLoaded{Path: "tree.xml", Err: errors.New("malformed input")})
	assert.Equal(t, "tree.xml: 3 packages in 250ms\ncache tree.xml: malformed input\n", buf.String())
}

func TestDisplayLine(t *testing.T) {
	var buf bytes.Buffer
	p := newWriter(&buf)
	p.isatty = true
	p.termColumns = 20
	p.Handle(events.Progress{Tree: events.Overlay, Packages: 40})
	assert.Equal(t, "\roverlay: 40 package", buf.String())

	buf.Reset()
	p.finish()
	assert.Equal(t, "\n", buf.String())
}
