package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/enums"
	"github.com/templeconnect/backend/pkg/logger"
	"github.com/templeconnect/backend/pkg/outbox"
)

type eventProcessor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type pinger func(context.Context) error

type ServiceParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	Subscription subscriber
	Consumer     eventProcessor
	Pings        map[string]pinger
}

// Service pumps domain events from the subscription into the notification
// consumer. Decode failures ack so a poison message cannot wedge the
// subscription; consumer failures nack for redelivery.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	subscription subscriber
	consumer     eventProcessor
	pings        map[string]pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Subscription == nil {
		return nil, errors.New("subscription is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("notification consumer is required")
	}
	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		subscription: params.Subscription,
		consumer:     params.Consumer,
		pings:        params.Pings,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, ping := range s.pings {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}

// Run processes messages until the context is canceled or the subscription
// errors.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	return s.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if s.handleMessage(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handleMessage reports whether the message should be acked.
func (s *Service) handleMessage(ctx context.Context, msg *gcppubsub.Message) bool {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
		"event_id":   msg.Attributes["event_id"],
	})

	if eventType == "" {
		s.logg.Warn(logCtx, "message missing event_type attribute")
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		s.logg.Error(logCtx, "failed to decode event envelope", err)
		return true
	}

	if err := s.consumer.Process(ctx, eventType, envelope); err != nil {
		s.logg.Error(logCtx, "event processing failed", err)
		return false
	}
	return true
}
