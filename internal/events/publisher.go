// Package events connects the allocation engine to Kafka: it publishes an
// assignment.created event per committed assignment and consumes lead intake
// messages that trigger allocation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/observability"
)

// EventAssignmentCreated is the type of events emitted for new assignments.
const EventAssignmentCreated = "assignment.created"

// ParseBrokers splits a comma-separated broker list.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// AssignmentCreated is the payload of an assignment.created message.
type AssignmentCreated struct {
	Type         string          `json:"type"`
	AssignmentID string          `json:"assignment_id"`
	LeadID       string          `json:"lead_id"`
	ArtisanID    string          `json:"artisan_id"`
	Rank         int             `json:"rank"`
	Score        float64         `json:"score"`
	DistanceKm   *float64        `json:"distance_km,omitempty"`
	Strategy     domain.Strategy `json:"strategy"`
	Urgency      domain.Urgency  `json:"urgency"`
	Month        string          `json:"month"`
	ReservedAt   time.Time       `json:"reserved_at"`
	Timestamp    time.Time       `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes assignment events to a topic.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewKafkaPublisher returns a synchronous publisher for topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, topic: topic, now: time.Now}
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// PublishAssignments writes one message per assignment, keyed by lead id so
// the events of a lead stay ordered within a partition.
func (p *KafkaPublisher) PublishAssignments(ctx context.Context, lead *domain.Lead, strategy domain.Strategy, assignments []domain.LeadAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	ctx, span := otel.Tracer("events/KafkaPublisher").Start(ctx, "PublishAssignments")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.Int("messaging.batch_size", len(assignments)),
		attribute.String("lead.id", lead.ID),
	)

	msgs, err := buildAssignmentMessages(ctx, lead, strategy, assignments, p.now().UTC())
	if err != nil {
		observability.FailSpan(span, err, "marshal failed")
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		observability.FailSpan(span, err, "publish failed")
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	zerolog.Ctx(ctx).Debug().Str("lead_id", lead.ID).Int("events", len(msgs)).Msg("assignment events published")
	return nil
}

func buildAssignmentMessages(ctx context.Context, lead *domain.Lead, strategy domain.Strategy, assignments []domain.LeadAssignment, ts time.Time) ([]kafka.Message, error) {
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)

	out := make([]kafka.Message, 0, len(assignments))
	for _, a := range assignments {
		data, err := json.Marshal(AssignmentCreated{
			Type:         EventAssignmentCreated,
			AssignmentID: a.ID,
			LeadID:       a.LeadID,
			ArtisanID:    a.ArtisanID,
			Rank:         a.Rank,
			Score:        a.Score,
			DistanceKm:   a.DistanceKm,
			Strategy:     strategy,
			Urgency:      lead.Urgency,
			Month:        a.Month,
			ReservedAt:   a.ReservedAt,
			Timestamp:    ts,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal assignment %s: %w", a.ID, err)
		}
		headers := []kafka.Header{
			{Key: "type", Value: []byte(EventAssignmentCreated)},
			{Key: "lead_id", Value: []byte(a.LeadID)},
			{Key: "artisan_id", Value: []byte(a.ArtisanID)},
		}
		for _, k := range carrier.Keys() {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
		}
		out = append(out, kafka.Message{Key: []byte(a.LeadID), Value: data, Headers: headers})
	}
	return out, nil
}
