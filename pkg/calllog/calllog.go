// Package calllog persists call lifecycle records to MongoDB so each
// relay session leaves an auditable trail.
package calllog

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/mongo"
)

const collectionName = "call_records"

// Recorder writes call lifecycle events. It satisfies the relay's
// Recorder interface; failures are logged, never surfaced, because a
// broken record store must not take down a live call.
type Recorder struct {
	db  *mongo.Client
	log *zap.Logger
}

func NewRecorder(db *mongo.Client, log *zap.Logger) *Recorder {
	return &Recorder{db: db, log: log.Named("calllog")}
}

// CallStarted inserts an in-progress record keyed by stream SID.
func (r *Recorder) CallStarted(ctx context.Context, streamSID string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	record := map[string]interface{}{
		"stream_sid": streamSID,
		"status":     "in_progress",
		"started_at": time.Now().UTC(),
	}
	if _, err := r.db.NewQuery(collectionName).Insert(ctx, record); err != nil {
		r.log.Error("Failed to insert call record",
			zap.String("stream_sid", streamSID),
			zap.Error(err))
	}
}

// CallEnded finalizes the record with the outcome and duration. One
// pipeline update computes the duration from the stored started_at, so
// there is no read-modify window between concurrent finalizers.
func (r *Recorder) CallEnded(ctx context.Context, streamSID string, status string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.db.NewQuery(collectionName).
		Eq("stream_sid", streamSID).
		UpdateOnePipeline(ctx, finalizePipeline(status, time.Now().UTC()))
	if err != nil {
		r.log.Error("Failed to finalize call record",
			zap.String("stream_sid", streamSID),
			zap.Error(err))
		return
	}
	if res.MatchedCount == 0 {
		r.log.Warn("No call record to finalize",
			zap.String("stream_sid", streamSID))
	}
}

// finalizePipeline sets the outcome fields and derives
// duration_seconds from the document's own started_at. A record with
// no started_at gets a null duration rather than failing the update.
func finalizePipeline(status string, endedAt time.Time) bson.A {
	return bson.A{
		bson.M{"$set": bson.M{
			"status":   status,
			"ended_at": endedAt,
			"duration_seconds": bson.M{"$toInt": bson.M{"$divide": bson.A{
				bson.M{"$subtract": bson.A{endedAt, "$started_at"}},
				1000,
			}}},
		}},
	}
}

// Recent returns the newest call records, most recent first.
func (r *Recorder) Recent(ctx context.Context, limit int64) ([]map[string]interface{}, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return r.db.NewQuery(collectionName).
		Sort("started_at", false).
		Limit(limit).
		Find(ctx)
}
