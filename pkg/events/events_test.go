package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmit(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(context.Background(), ch, Progress{Tree: Mainline, Packages: 20})
	assert.Equal(t, Progress{Tree: Mainline, Packages: 20}, <-ch)

	// full channel, cancelled context: must not block
	ch <- DetailsLoaded{Package: "app-misc/foo"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	Emit(ctx, ch, DetailsLoaded{Package: "app-misc/bar"})
	assert.Equal(t, DetailsLoaded{Package: "app-misc/foo"}, <-ch)

	Emit(context.Background(), nil, AllComplete{})
}

func TestSendIgnoresCancel(t *testing.T) {
	ch := make(chan Event, 1)
	Send(ch, AllComplete{Packages: 3, Installed: 1})
	assert.Equal(t, AllComplete{Packages: 3, Installed: 1}, <-ch)

	done := make(chan struct{})
	go func() {
		Send(ch, CacheSaved{Path: "tree.xml"})
		close(done)
	}()
	assert.Equal(t, CacheSaved{Path: "tree.xml"}, <-ch)
	<-done

	Send(nil, AllComplete{})
}
