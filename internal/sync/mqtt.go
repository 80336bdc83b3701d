package sync

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// NudgeSubscriber listens on an MQTT topic for sync hints published by the
// backend (for example after another device pushed changes) and nudges the
// driver into an immediate flush. The broker is optional: without it the
// driver still flushes on its timer.
type NudgeSubscriber struct {
	client mqtt.Client
	topic  string
	logger *logrus.Logger
}

// NewNudgeSubscriber connects to the broker and subscribes to the topic.
func NewNudgeSubscriber(broker, clientID, topic string, driver *Driver, logger *logrus.Logger) (*NudgeSubscriber, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		logger.WithField("topic", msg.Topic()).Debug("sync hint received")
		driver.Nudge()
	}
	if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	return &NudgeSubscriber{client: client, topic: topic, logger: logger}, nil
}

// Close unsubscribes and disconnects from the broker.
func (s *NudgeSubscriber) Close() {
	if token := s.client.Unsubscribe(s.topic); token.Wait() && token.Error() != nil {
		s.logger.WithError(token.Error()).Warn("failed to unsubscribe from sync hints")
	}
	s.client.Disconnect(250)
}
