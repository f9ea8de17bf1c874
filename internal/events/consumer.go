package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tbourn/lead-dispatch/internal/services"
)

// LeadMessage is the intake payload announcing a lead to allocate.
type LeadMessage struct {
	LeadID string `json:"lead_id"`
}

// LeadAllocator is the part of the allocator the consumer drives.
type LeadAllocator interface {
	Allocate(ctx context.Context, leadID string) (*services.AllocationResult, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LeadConsumer reads lead intake messages in a consumer group and allocates
// each lead. Every message is committed after handling: allocation failures
// are logged and left to ops tooling, which can re-invoke allocation safely.
type LeadConsumer struct {
	reader    messageReader
	allocator LeadAllocator
	log       zerolog.Logger
}

// NewLeadConsumer returns a consumer for topic in group.
func NewLeadConsumer(brokers []string, topic, group string, allocator LeadAllocator, log zerolog.Logger) *LeadConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        group,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
	})
	return &LeadConsumer{reader: r, allocator: allocator, log: log.With().Str("component", "lead_consumer").Str("topic", topic).Logger()}
}

// Run consumes until ctx is canceled, then closes the reader.
func (c *LeadConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.log.Info().Msg("lead consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				c.log.Info().Msg("lead consumer stopping")
				return nil
			}
			c.log.Error().Err(err).Msg("fetch message failed")
			continue
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("commit failed")
		}
	}
}

func (c *LeadConsumer) handle(ctx context.Context, msg kafka.Message) {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		carrier.Set(strings.ToLower(h.Key), string(h.Value))
	}
	ctx = propagation.TraceContext{}.Extract(ctx, carrier)
	ctx, span := otel.Tracer("events/LeadConsumer").Start(ctx, "HandleLeadMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.Int("messaging.kafka.partition", msg.Partition),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
	)

	log := c.log.With().Int("partition", msg.Partition).Int64("offset", msg.Offset).Logger()
	var in LeadMessage
	if err := json.Unmarshal(msg.Value, &in); err != nil || strings.TrimSpace(in.LeadID) == "" {
		log.Warn().Err(err).Msg("skipping malformed lead message")
		return
	}
	ctx = log.With().Str("lead_id", in.LeadID).Logger().WithContext(ctx)

	res, err := c.allocator.Allocate(ctx, in.LeadID)
	switch {
	case errors.Is(err, services.ErrLeadNotFound):
		zerolog.Ctx(ctx).Warn().Msg("lead not found")
	case err != nil:
		zerolog.Ctx(ctx).Error().Err(err).Msg("allocation failed")
	default:
		zerolog.Ctx(ctx).Info().Int("created", res.Created).Bool("noop", res.Noop).Msg("lead message handled")
	}
}
