package pipeline

import (
	"context"

	"github.com/yok-tottii/ezdictate/internal/hotkey"
)

// Serve drives the orchestrator from hotkey events until events is
// closed or ctx is done. Start runs inline so a quick release is never
// handled before its press; Stop runs in the background so presses made
// while a result is being delivered are ignored rather than queued.
func (o *Orchestrator) Serve(ctx context.Context, evs <-chan hotkey.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			o.handleHotkey(ctx, ev)
		}
	}
}

func (o *Orchestrator) handleHotkey(ctx context.Context, ev hotkey.Event) {
	o.logger.Debug("hotkey", "event", ev.Type, "state", o.State())

	switch ev.Type {
	case hotkey.Pressed:
		o.Start(ctx)
	case hotkey.Released:
		go o.Stop(ctx)
	case hotkey.Toggled:
		switch o.State() {
		case Idle:
			o.Start(ctx)
		case Recording:
			go o.Stop(ctx)
		}
	}
}
