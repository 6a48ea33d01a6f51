package geosource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/service"
)

// Sink receives decoded geolocation updates
type Sink interface {
	Sample(ctx context.Context, sample models.LocationSample) ([]arrival.Event, error)
	PermissionLost(ctx context.Context, kind arrival.FailureKind) ([]arrival.Event, error)
}

// Update is one decoded message: either a sample or a failure
type Update struct {
	Sample  *models.LocationSample
	Failure arrival.FailureKind
}

type payload struct {
	Lat            *float64        `json:"lat"`
	Lng            *float64        `json:"lng"`
	AccuracyMeters float64         `json:"accuracyMeters"`
	Timestamp      json.RawMessage `json:"timestamp"`
	Error          string          `json:"error"`
}

// Decode parses a location payload. The timestamp may be RFC 3339 or epoch
// milliseconds; a missing timestamp takes now.
func Decode(data []byte, now time.Time) (Update, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Update{}, fmt.Errorf("failed to decode location payload: %w", err)
	}

	if p.Error != "" {
		kind := arrival.FailureKind(p.Error)
		if !kind.Valid() {
			return Update{}, fmt.Errorf("unknown geolocation error %q", p.Error)
		}
		return Update{Failure: kind}, nil
	}

	if p.Lat == nil || p.Lng == nil {
		return Update{}, errors.New("location payload has no coordinates")
	}
	ts, err := parseTimestamp(p.Timestamp, now)
	if err != nil {
		return Update{}, err
	}
	return Update{Sample: &models.LocationSample{
		Lat:            *p.Lat,
		Lng:            *p.Lng,
		AccuracyMeters: p.AccuracyMeters,
		Timestamp:      ts,
	}}, nil
}

func parseTimestamp(raw json.RawMessage, now time.Time) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return now, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		return t, nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", raw)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// MQTTSource forwards location messages from an MQTT topic to the arrival service
type MQTTSource struct {
	client  mqtt.Client
	topic   string
	sink    Sink
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger

	closeOnce sync.Once
}

// NewMQTTSource creates a source for broker (e.g. tcp://localhost:1883). Start connects it.
func NewMQTTSource(broker, topic, clientID string, sink Sink) *MQTTSource {
	s := &MQTTSource{
		topic:   topic,
		sink:    sink,
		timeout: 5 * time.Second,
		now:     time.Now,
		logger:  slog.Default().With("component", "geosource"),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	// 重连后重新订阅
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.topic, 1, s.onMessage)
		if token.WaitTimeout(s.timeout) && token.Error() != nil {
			s.logger.Error("failed to subscribe", "topic", s.topic, "error", token.Error())
			return
		}
		s.logger.Info("subscribed to location topic", "broker", broker, "topic", s.topic)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker. The subscription is made by the connect handler.
func (s *MQTTSource) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.timeout) {
		s.logger.Warn("mqtt broker not reachable yet, retrying in background")
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	return nil
}

func (s *MQTTSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Handle(ctx, msg.Payload()); err != nil {
		s.logger.Warn("dropped location message", "topic", msg.Topic(), "error", err)
	}
}

// Handle decodes one payload and forwards it to the sink
func (s *MQTTSource) Handle(ctx context.Context, data []byte) error {
	update, err := Decode(data, s.now())
	if err != nil {
		return err
	}

	if update.Failure != "" {
		_, err = s.sink.PermissionLost(ctx, update.Failure)
	} else {
		_, err = s.sink.Sample(ctx, *update.Sample)
	}
	if errors.Is(err, service.ErrNoActiveSession) {
		s.logger.Debug("location message without an active session")
		return nil
	}
	return err
}

// Close disconnects from the broker. Calling it again is a no-op.
func (s *MQTTSource) Close() {
	s.closeOnce.Do(func() {
		if s.client.IsConnected() {
			s.client.Disconnect(250)
		}
		s.logger.Info("mqtt source closed")
	})
}
