// Package telemetry delivers activity records produced by the admission
// pipeline. Each record goes to two sinks: the local activity table (feeds
// the /stats report) and the workflow-automation webhook (feeds external
// automations). Both sinks are best effort. A failure is logged, counted,
// and otherwise swallowed; nothing on the request path waits for delivery.
package telemetry

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/alkaitz/telepilot/internal/clients/n8n"
	"github.com/alkaitz/telepilot/internal/domain"
	"github.com/alkaitz/telepilot/internal/metrics"
	"github.com/alkaitz/telepilot/internal/pipeline"
	"github.com/alkaitz/telepilot/internal/repo"
)

// ActivityWebhook is the n8n webhook path that receives activity events.
const ActivityWebhook = "user_activity"

// Recorder implements pipeline.Recorder against the local database and an
// optional n8n client.
type Recorder struct {
	db  *gorm.DB
	n8n *n8n.Client
	log zerolog.Logger
}

// New returns a Recorder. db may be nil to skip local persistence, and the
// n8n client may be disabled; either sink failing never affects the other.
func New(db *gorm.DB, nc *n8n.Client, log zerolog.Logger) *Recorder {
	return &Recorder{db: db, n8n: nc, log: log}
}

// Record delivers one activity record to both sinks. It never returns an
// error; failures increment the telemetry failure counter.
func (r *Recorder) Record(ctx context.Context, rec pipeline.ActivityRecord) {
	if r.db != nil {
		// Keep the user roster current; /stats reads it.
		if err := repo.TouchUser(ctx, r.db, rec.Identity, rec.Username, ""); err != nil {
			r.log.Warn().Err(err).Int64("user_id", rec.Identity).Msg("user upsert failed")
		}

		meta, _ := json.Marshal(rec.Metadata)
		row := &domain.ActivityRecord{
			TelegramID: rec.Identity,
			Command:    rec.Command,
			Success:    rec.Success,
			Metadata:   string(meta),
			CreatedAt:  rec.Timestamp,
		}
		if err := repo.InsertActivity(ctx, r.db, row); err != nil {
			metrics.TelemetryFailures.Inc()
			r.log.Warn().Err(err).
				Int64("user_id", rec.Identity).
				Str("command", rec.Command).
				Msg("activity row insert failed")
		}
	}

	if r.n8n != nil && r.n8n.Enabled() {
		payload := map[string]any{
			"user_id":   rec.Identity,
			"username":  rec.Username,
			"command":   rec.Command,
			"success":   rec.Success,
			"metadata":  rec.Metadata,
			"timestamp": rec.Timestamp,
		}
		if err := r.n8n.TriggerWebhook(ctx, ActivityWebhook, payload); err != nil {
			metrics.TelemetryFailures.Inc()
			r.log.Warn().Err(err).
				Int64("user_id", rec.Identity).
				Str("command", rec.Command).
				Msg("activity webhook delivery failed")
		}
	}
}
