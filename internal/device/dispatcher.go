package device

import "context"

// RunDispatcher applies queued commands until ctx is cancelled.
//
// Until the plug has started (handle resolved, state known) the queue is
// left alone and the dispatcher rechecks every StartupBackoff. It is the
// only caller of the device's mutators.
func (p *Plug) RunDispatcher(ctx context.Context) error {
	for {
		if !p.Started() {
			p.logger.Debug("waiting to get started by poller", "device", p.name)
			if !sleep(ctx, p.startupBackoff) {
				return nil
			}
			continue
		}

		if err := p.ApplyPendingRequest(ctx); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}
