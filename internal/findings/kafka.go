// Package findings publishes strikable videos to Kafka for downstream takedown tooling.
package findings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_takedown/internal/engine"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Finding is the message value for one strikable video.
type Finding struct {
	RunID       string    `json:"runId"`
	Subject     string    `json:"subject"`
	PublishedAt time.Time `json:"publishedAt"`
	engine.StrikableVideo
}

// KafkaSink implements engine.FindingsSink.
type KafkaSink struct {
	w   Writer
	now func() time.Time
}

// NewKafkaSink returns a sink writing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	})
}

// NewKafkaSinkWithWriter wraps an existing writer.
func NewKafkaSinkWithWriter(w Writer) *KafkaSink {
	return &KafkaSink{w: w, now: time.Now}
}

// PublishFindings writes one message per video, keyed by video ID so repeats of the
// same video land on the same partition.
func (s *KafkaSink) PublishFindings(ctx context.Context, runID, subject string, videos []engine.StrikableVideo) error {
	if len(videos) == 0 {
		return nil
	}
	ts := s.now().UTC()
	msgs := make([]kafka.Message, 0, len(videos))
	for _, v := range videos {
		value, err := json.Marshal(Finding{RunID: runID, Subject: subject, PublishedAt: ts, StrikableVideo: v})
		if err != nil {
			return fmt.Errorf("findings: encode %s: %w", v.VideoID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(v.VideoID), Value: value, Time: ts})
	}
	if err := s.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("findings: write %d messages: %w", len(msgs), err)
	}
	engine.IncrFindingsPublished(len(msgs))
	slog.Info("findings published", slog.String("run", runID), slog.String("subject", subject), slog.Int("count", len(msgs)))
	return nil
}

// Close flushes pending messages and closes the writer.
func (s *KafkaSink) Close() error {
	return s.w.Close()
}
