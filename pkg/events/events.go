package events

import (
	"context"
	"time"
)

// Tree names one of the scanned package trees.
type Tree string

const (
	Mainline  Tree = "mainline"
	Overlay   Tree = "overlay"
	Installed Tree = "installed"
)

// Event is a notification sent by a running operation to whoever started it.
type Event interface {
	event()
}

// Progress is sent every few packages while a tree is scanned.
type Progress struct {
	Tree     Tree
	Packages int
}

// TreeComplete is sent once per requested tree.
type TreeComplete struct {
	Tree     Tree
	Packages int
	Elapsed  time.Duration
	Err      error
}

// AllComplete ends a scan, including one restored from the cache file.
type AllComplete struct {
	Packages  int
	Versions  int
	Installed int
	Elapsed   time.Duration
	Err       error
}

// DetailsLoaded is sent after the details of a package have been read.
type DetailsLoaded struct {
	Package string
}

// CacheSaved is sent after the tree cache has been written, or failed to be.
type CacheSaved struct {
	Path    string
	Elapsed time.Duration
	Err     error
}

// CacheLoaded is sent after the tree cache has been read, or failed to be.
type CacheLoaded struct {
	Path     string
	Packages int
	Versions int
	Elapsed  time.Duration
	Err      error
}

func (Progress) event()      {}
func (TreeComplete) event()  {}
func (AllComplete) event()   {}
func (DetailsLoaded) event() {}
func (CacheSaved) event()    {}
func (CacheLoaded) event()   {}

// Emit sends an intermediate event on ch. It gives up when ctx is done; a
// nil ch drops ev.
func Emit(ctx context.Context, ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

// Send delivers a completion event on ch even after the operation was
// aborted. The receiver must keep reading until the operation returns; a nil
// ch drops ev.
func Send(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	ch <- ev
}
