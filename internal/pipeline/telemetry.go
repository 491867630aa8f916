// Fire-and-forget activity telemetry.
//
// The telemetry stage sits between the rate limiter and the router, so
// only requests that were actually dispatched produce an activity record.
// Delivery happens on a detached goroutine after the reply path has
// completed; a delivery failure can never change the user-visible response
// or its latency.
package pipeline

import (
	"context"
	"time"

	"github.com/alkaitz/telepilot/internal/bot"
)

// ActivityRecord describes one dispatched command outcome. It is write-only
// data: produced here, delivered to the workflow-automation collaborator
// and the local activity table, and never read back on the request path.
type ActivityRecord struct {
	Identity  int64
	Username  string
	Command   string
	Success   bool
	Metadata  map[string]any
	Timestamp time.Time
}

// Recorder delivers activity records. Implementations must swallow their
// own delivery errors; Record has no error return.
type Recorder interface {
	Record(ctx context.Context, rec ActivityRecord)
}

// deliveryTimeout bounds the single delivery attempt made per record.
const deliveryTimeout = 10 * time.Second

// Telemetry returns the stage that records dispatched command outcomes via
// rec. A nil recorder disables the stage.
func Telemetry(rec Recorder) bot.Middleware {
	return func(next bot.Handler) bot.Handler {
		return func(ctx context.Context, req *bot.Request) error {
			err := next(ctx, req)
			if rec == nil || req.Command == "" {
				return err
			}
			record := ActivityRecord{
				Identity:  req.Identity,
				Username:  req.Username,
				Command:   req.Command,
				Success:   err == nil,
				Metadata:  map[string]any{"callback": req.Callback},
				Timestamp: time.Now().UTC(),
			}
			go func() {
				dctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
				defer cancel()
				rec.Record(dctx, record)
			}()
			return err
		}
	}
}
