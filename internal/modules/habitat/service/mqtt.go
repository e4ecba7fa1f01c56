package service

import (
	"context"
	"errors"

	"habitat-monitor/internal/mqtt"
)

// RegisterMQTT routes broker messages through the same validation and
// stability handling as the HTTP ingestion endpoint.
func (s *Service) RegisterMQTT(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s)
}

func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, s *Service) {
	subscriber.SetMessageHandler(func(ctx context.Context, topic string, fields map[string]any) error {
		s.logger.Debug("processing reading message", "topic", topic)

		r, err := s.Ingest(ctx, SubmissionFromMap(fields))
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				s.logger.Warn("invalid reading message", "topic", topic, "error", err)
				return nil
			}
			return err
		}

		s.logger.Debug("stored reading from mqtt",
			"topic", topic,
			"time", r.Time,
		)
		return nil
	})
}
