// SPDX-License-Identifier: AGPL-3.0-only

package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type thing struct {
	Worker
	stopped chan struct{}
}

func (t *thing) loop() {
	<-t.HaltCh()
	close(t.stopped)
}

func TestHaltStopsGoroutine(t *testing.T) {
	th := &thing{stopped: make(chan struct{})}
	th.Go(th.loop)

	th.Halt()
	th.Wait()

	select {
	case <-th.stopped:
	case <-time.After(time.Second):
		t.Fatal("loop did not observe halt")
	}
}

func TestHaltIsIdempotent(t *testing.T) {
	th := &thing{stopped: make(chan struct{})}
	th.Go(th.loop)
	th.Halt()
	th.Halt()
	th.Wait()
}
