package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"CandleScan/internal/domain/models"
	pkgkafka "CandleScan/pkg/kafka"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaPublisherOneMessagePerMatch(t *testing.T) {
	w := &captureWriter{}
	pub := NewKafkaPublisher(pkgkafka.NewProducerWithWriter(w, "none"), "candlescan.matches")

	hammerBar := models.Bar{Date: day(2021, 3, 5), Open: 100, High: 101.5, Low: 90, Close: 101, Body: 1, Q25Body: 5, Q50Body: 5}
	res := &models.AnalysisResult{
		RunID:   "run-1",
		Country: "us",
		Kind:    models.Hammer,
		Matches: []models.PatternMatch{
			{Date: day(2021, 3, 5), Kind: models.Hammer, Index: 4, Bars: []models.Bar{hammerBar}},
			{Date: day(2021, 4, 9), Kind: models.Hammer, Index: 29, Bars: []models.Bar{hammerBar}},
		},
		GeneratedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := pub.Publish(context.Background(), res); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(w.msgs))
	}

	var ev models.MatchEvent
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(w.msgs[0].Key) != "us" || w.msgs[0].Topic != "candlescan.matches" {
		t.Fatalf("unexpected routing key=%s topic=%s", w.msgs[0].Key, w.msgs[0].Topic)
	}
	if ev.Pattern != models.Hammer || ev.Date != "2021-03-05" || ev.Index != 4 || ev.Close != 101 || ev.RunID != "run-1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestKafkaPublisherSkipsEmpty(t *testing.T) {
	w := &captureWriter{}
	pub := NewKafkaPublisher(pkgkafka.NewProducerWithWriter(w, "none"), "t")
	if err := pub.Publish(context.Background(), &models.AnalysisResult{Matches: []models.PatternMatch{}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 0 {
		t.Fatalf("no matches should send nothing")
	}
}
