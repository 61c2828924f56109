package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/povarna/generative-ai-agents/chart-agent/internal/chart"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrMissingPayload = errors.New("missing payload field")

type Consumer struct {
	client       *redis.Client
	stream       string
	groupID      string
	consumerName string
	adapter      *chart.Adapter
	logger       *zerolog.Logger
}

func NewConsumer(client *redis.Client, stream string, groupID string, consumerName string, adapter *chart.Adapter, logger *zerolog.Logger) *Consumer {
	return &Consumer{
		client:       client,
		stream:       stream,
		groupID:      groupID,
		consumerName: consumerName,
		adapter:      adapter,
		logger:       logger,
	}
}

func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.groupID, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("stream", c.stream).
		Str("group", c.groupID).
		Str("consumer", c.consumerName).
		Msg("Consumer started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupID,
			Consumer: c.consumerName,
			Streams:  []string{c.stream, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.Error().Err(err).Msg("Failed to read from stream")
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				c.process(ctx, msg)
			}
		}
	}
}

func (c *Consumer) Stop() error {
	return c.client.Close()
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	c.logger.Info().Str("id", msg.ID).Msg("Message received")

	job, err := DecodeJob(msg.Values)
	if err != nil {
		// Undecodable messages are ACKed so they are not redelivered forever.
		c.logger.Error().Err(err).Str("id", msg.ID).Msg("Failed to decode message")
		c.ack(ctx, msg.ID)
		return
	}

	start := time.Now()
	config, err := c.runJob(ctx, job)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("id", msg.ID).
			Str("job_id", job.JobID).
			Str("kind", string(job.Kind)).
			Str("error_kind", string(chart.KindOf(err))).
			Dur("duration", time.Since(start)).
			Msg("Chart job failed")
	} else {
		c.logger.Info().
			Str("id", msg.ID).
			Str("job_id", job.JobID).
			Str("kind", string(job.Kind)).
			Int("config_size", len(config)).
			Dur("duration", time.Since(start)).
			Msg("Chart job complete")
	}

	c.ack(ctx, msg.ID)
}

func (c *Consumer) runJob(ctx context.Context, job models.ChartJob) (chart.Config, error) {
	switch job.Kind {
	case models.JobKindGenerate:
		return c.adapter.Generate(ctx, job.Prompt)
	case models.JobKindUpdate:
		return c.adapter.Update(ctx, job.CurrentConfig, job.Instruction)
	default:
		return nil, &chart.InvalidInputError{Field: "kind", Reason: fmt.Sprintf("unsupported job kind %q", job.Kind)}
	}
}

func (c *Consumer) ack(ctx context.Context, msgID string) {
	if err := c.client.XAck(ctx, c.stream, c.groupID, msgID).Err(); err != nil {
		c.logger.Error().Err(err).Str("id", msgID).Msg("Failed to ACK message")
	}
}

// DecodeJob reads the ChartJob carried in a stream message's payload field.
func DecodeJob(values map[string]any) (models.ChartJob, error) {
	var job models.ChartJob

	payload, ok := values[PayloadField].(string)
	if !ok {
		return job, ErrMissingPayload
	}

	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return job, fmt.Errorf("invalid job payload: %w", err)
	}
	if job.Kind == "" {
		job.Kind = models.JobKindGenerate
	}
	return job, nil
}

// EncodeJob builds the stream values for publishing job.
func EncodeJob(job models.ChartJob) (map[string]any, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}
	return map[string]any{PayloadField: string(payload)}, nil
}
