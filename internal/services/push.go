package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNsSender delivers push notifications through Apple Push Notification service
type APNsSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNsSender creates a token-authenticated APNs sender
func NewAPNsSender(keyPath, keyID, teamID, topic string, production bool) (*APNsSender, error) {
	authKey, err := token.AuthKeyFromFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsSender{
		client: client,
		topic:  topic,
	}, nil
}

// Send pushes an alert to a device token
func (s *APNsSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	p := payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default")
	for k, v := range data {
		p.Custom(k, v)
	}

	res, err := s.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}

	return nil
}

// LogPushSender logs pushes instead of sending them; used when APNs is not configured
type LogPushSender struct{}

// Send logs the push
func (LogPushSender) Send(_ context.Context, deviceToken, title, _ string, _ map[string]string) error {
	log.Debug().
		Str("device_token", deviceToken).
		Str("title", title).
		Msg("Push delivery disabled, skipping")
	return nil
}
