package loader

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// ScheduleRescan re-runs Discover on the cron schedule spec. onChange is
// called after a run that registered or removed plugins. The returned stop
// function waits for a running rescan to finish.
func (l *Loader) ScheduleRescan(spec string, onChange func(DiscoveryResult)) (stop func(), err error) {
	c := cron.New()
	_, err = c.AddFunc(spec, func() {
		res, err := l.Discover(context.Background())
		if err != nil {
			l.logger.Error("rescan failed", "error", err)
			return
		}
		if res.Changed() {
			l.logger.Info("rescan changed plugins", "registered", res.Registered, "removed", res.Removed)
			if onChange != nil {
				onChange(res)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("rescan schedule %q: %w", spec, err)
	}
	c.Start()
	l.logger.Info("periodic rescan enabled", "schedule", spec)

	return func() {
		<-c.Stop().Done()
	}, nil
}
