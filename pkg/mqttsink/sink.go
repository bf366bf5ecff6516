// Package mqttsink publishes decoded P25 messages to an MQTT broker
// using eclipse/paho.mqtt.golang, the same client library and
// connect-options pattern (auto-reconnect, keepalive, connection
// handlers) used for MQTT publishing elsewhere in this pack. It
// replaces a publish-path stub with a real client connection: every
// dispatched message is marshaled to JSON and published under a
// DUID-scoped topic.
package mqttsink

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dbehnke/p25framer/pkg/logger"
	"github.com/dbehnke/p25framer/pkg/message"
)

// Config holds MQTT sink configuration.
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// payload is the JSON shape published for every decoded message.
type payload struct {
	ID        string      `json:"id"`
	DUID      string      `json:"duid"`
	NAC       uint64      `json:"nac"`
	Length    int         `json:"length"`
	TSBK      interface{} `json:"tsbk,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Sink publishes decoded messages to MQTT and implements message.Sink
// so it can be attached directly to a Framer.
type Sink struct {
	client mqtt.Client
	config Config
	log    *logger.Logger
}

// New connects to the configured broker and returns a ready Sink. If
// cfg.Enabled is false, no connection is attempted and Dispatch is a
// no-op.
func New(cfg Config, log *logger.Logger) (*Sink, error) {
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}
	log = log.WithComponent("mqttsink")

	s := &Sink{config: cfg, log: log}
	if !cfg.Enabled {
		log.Info("mqtt sink disabled")
		return s, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("connected to broker", logger.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("connection lost", logger.Error(err))
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Info("reconnecting")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttsink: connect to broker: %w", token.Error())
	}
	s.client = client
	return s, nil
}

// Dispatch implements message.Sink, publishing one JSON payload per
// decoded message to a DUID-scoped topic.
func (s *Sink) Dispatch(msg message.Message) {
	if !s.config.Enabled || s.client == nil {
		return
	}

	length := 0
	if msg.Payload != nil {
		length = msg.Payload.Len()
	}

	p := payload{
		ID:        msg.ID.String(),
		DUID:      msg.DUID.String(),
		NAC:       msg.NAC,
		Length:    length,
		TSBK:      msg.TSBK,
		Timestamp: msg.ReceivedAt,
	}

	data, err := json.Marshal(p)
	if err != nil {
		s.log.Error("failed to marshal message", logger.Error(err))
		return
	}

	topic := s.topicFor(msg)
	token := s.client.Publish(topic, s.config.QoS, s.config.Retained, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			s.log.Error("failed to publish", logger.String("topic", topic), logger.Error(token.Error()))
		}
	}()
}

func (s *Sink) topicFor(msg message.Message) string {
	prefix := s.config.TopicPrefix
	if prefix == "" {
		return msg.DUID.String()
	}
	return fmt.Sprintf("%s/%s", prefix, msg.DUID.String())
}

// Close disconnects from the broker.
func (s *Sink) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
