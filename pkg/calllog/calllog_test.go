package calllog

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestFinalizePipelineDerivesDurationInOneUpdate(t *testing.T) {
	endedAt := time.Date(2026, 3, 18, 19, 30, 0, 0, time.UTC)
	pipeline := finalizePipeline("completed", endedAt)

	if len(pipeline) != 1 {
		t.Fatalf("pipeline stages = %d, want 1", len(pipeline))
	}
	stage, ok := pipeline[0].(bson.M)
	if !ok {
		t.Fatalf("stage type = %T", pipeline[0])
	}
	set, ok := stage["$set"].(bson.M)
	if !ok {
		t.Fatalf("stage = %v, want a $set", stage)
	}

	if set["status"] != "completed" {
		t.Errorf("status = %v", set["status"])
	}
	if set["ended_at"] != endedAt {
		t.Errorf("ended_at = %v", set["ended_at"])
	}

	// duration comes from the stored started_at, server-side, so the
	// finalize never reads the record first
	toInt, ok := set["duration_seconds"].(bson.M)
	if !ok {
		t.Fatalf("duration_seconds = %v", set["duration_seconds"])
	}
	divide := toInt["$toInt"].(bson.M)["$divide"].(bson.A)
	subtract := divide[0].(bson.M)["$subtract"].(bson.A)
	if subtract[0] != endedAt || subtract[1] != "$started_at" {
		t.Errorf("subtract = %v, want [endedAt $started_at]", subtract)
	}
	if divide[1] != 1000 {
		t.Errorf("divisor = %v, want 1000", divide[1])
	}
}
