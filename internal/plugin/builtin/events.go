package builtin

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/blogforge/internal/events"
	"git.home.luguber.info/inful/blogforge/internal/plugin"
)

// EventsName is the registered name of the build-event publisher plugin.
const EventsName = "events"

// Events returns a plugin that publishes build lifecycle events through the
// given publisher. Publish failures never fail the build; they are logged and
// dropped.
func Events(pub *events.Publisher) *plugin.Descriptor {
	starts := map[string]time.Time{}

	return &plugin.Descriptor{
		Name:    EventsName,
		Enforce: plugin.EnforcePre,
		BuildStart: func(ctx context.Context, bc *plugin.BuildContext) error {
			starts[bc.BuildID] = time.Now()
			publish(ctx, pub, events.BuildEvent{
				BuildID: bc.BuildID,
				Type:    events.TypeBuildStarted,
				Mode:    string(bc.Mode),
			})
			return nil
		},
		BuildEnd: func(ctx context.Context, bc *plugin.BuildContext, buildErr error) error {
			event := events.BuildEvent{
				BuildID:   bc.BuildID,
				Type:      events.TypeBuildCompleted,
				Mode:      string(bc.Mode),
				Documents: bc.Documents,
			}
			if start, ok := starts[bc.BuildID]; ok {
				event.Duration = time.Since(start).Milliseconds()
				delete(starts, bc.BuildID)
			}
			if buildErr != nil {
				event.Type = events.TypeBuildFailed
				event.Error = buildErr.Error()
			}
			publish(ctx, pub, event)
			return nil
		},
	}
}

func publish(ctx context.Context, pub *events.Publisher, event events.BuildEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish build event", "type", event.Type, "build_id", event.BuildID, "error", err)
	}
}
