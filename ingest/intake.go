package ingest

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"

	"signalsift/pipeline"
	"signalsift/types"
)

// BatchMessage is the wire format of one queued batch: a set of content
// items to run through the pipeline together.
type BatchMessage struct {
	Source string               `json:"source,omitempty"`
	Items  []*types.ContentItem `json:"items"`
}

// batchHandler feeds queued batches into the pipeline. Empty and
// unparseable messages are marked and skipped; pipeline errors leave the
// message unmarked so it is retried.
type batchHandler struct {
	pipe *pipeline.Pipeline
}

func (h *batchHandler) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg BatchMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Warning: dropping unparseable batch message: %v", err)
		return true, nil
	}
	if len(msg.Items) == 0 {
		return true, nil
	}

	result, err := h.pipe.ProcessBatch(ctx, msg.Items, pipeline.BatchOptions{})
	if err != nil {
		return false, err
	}

	log.Printf("Processed queued batch %s from %q: %d items, %d clusters, %d included",
		result.BatchID, msg.Source, len(result.Items), len(result.Clusters), result.Report.IncludedCount)
	return true, nil
}

// NewBatchConsumer creates a Kafka consumer that runs each queued batch
// through the pipeline. Connection settings come from KAFKA_BROKERS,
// KAFKA_TOPIC and KAFKA_GROUP_ID.
func NewBatchConsumer(pipe *pipeline.Pipeline) (*Consumer, error) {
	brokers := strings.Split(envOr("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := envOr("KAFKA_TOPIC", "signalsift.batches")
	groupID := envOr("KAFKA_GROUP_ID", "signalsift-pipeline")

	return NewConsumer(ConsumerConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		Handler: &batchHandler{pipe: pipe},
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
