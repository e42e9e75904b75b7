package device

import (
	"context"
	"errors"

	"github.com/nerrad567/plugsync/internal/event"
)

// RunPoller polls the relay state until ctx is cancelled.
//
// A change, or any poll while failures are outstanding, is acted on: an
// unknown result counts a failure and is only logged; a known result resets
// the count, emits DeviceState on events and updates the cached state unless
// it changed during the send, which may block. Each sleep is the poll
// interval plus jitter.
func (p *Plug) RunPoller(ctx context.Context, events chan<- event.Event) error {
	var fails int64
	for {
		newState := p.Poll(ctx)
		cur := p.State()

		if cur != newState || fails > 0 {
			if !newState.Known() {
				if ctx.Err() != nil {
					return nil
				}
				fails++
				p.failures.Store(fails)
				p.logger.Error("polling failed", "device", p.name, "host", p.Host(), "failures", fails)
			} else {
				fails = 0
				p.failures.Store(0)

				ev, err := event.NewDeviceState(p.name, newState, cur)
				if err != nil {
					return err
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return nil
				}
				// The dispatcher may have switched the plug while the send
				// was blocked; its state is newer than this reading.
				if !p.state.CompareAndSwap(int32(cur), int32(newState)) {
					p.logger.Debug("state changed while reporting", "device", p.name, "polled", newState.String())
				}
			}
		}

		if !sleep(ctx, p.pollInterval+p.jitter()) {
			return nil
		}
	}
}

// RunTelemetryPoller polls the energy meter until ctx is cancelled or the
// plug turns out to have no meter. It returns immediately when the
// telemetry interval is zero.
func (p *Plug) RunTelemetryPoller(ctx context.Context, events chan<- event.Event) error {
	if p.telemetryInterval <= 0 {
		return nil
	}

	var fails int
	for {
		reading, err := p.PollTelemetry(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrNoTelemetry):
			p.logger.Info("device has no telemetry, polling stopped", "device", p.name)
			return nil
		case err != nil:
			fails++
			p.logger.Error("polling telemetry failed", "device", p.name, "host", p.Host(), "failures", fails, "error", err)
		default:
			fails = 0
			ev, err := event.NewDeviceTelemetry(p.name, reading.String())
			if err != nil {
				return err
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return nil
			}
		}

		if !sleep(ctx, p.telemetryInterval+p.jitter()) {
			return nil
		}
	}
}
