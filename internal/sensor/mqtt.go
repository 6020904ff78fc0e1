package sensor

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/motion-sensor/internal/logic"
	"github.com/sweeney/motion-sensor/internal/motion"
)

// DefaultTopic is the MQTT topic carrying raw acceleration samples.
const DefaultTopic = "motion/sensor/accel"

// SamplePayload is the JSON shape of one sample on the wire.
// Timestamp is in Unix milliseconds.
type SamplePayload struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Z         *float64 `json:"z"`
	Timestamp *int64   `json:"timestamp"`
}

// DecodeSample parses a JSON sample payload. Missing fields are reported
// as logic.ErrMalformedSample rather than defaulting to zero.
func DecodeSample(payload []byte) (logic.Sample, error) {
	var p SamplePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return logic.Sample{}, fmt.Errorf("%w: %v", logic.ErrMalformedSample, err)
	}

	missing := ""
	switch {
	case p.X == nil:
		missing = "x"
	case p.Y == nil:
		missing = "y"
	case p.Z == nil:
		missing = "z"
	case p.Timestamp == nil:
		missing = "timestamp"
	}
	if missing != "" {
		return logic.Sample{}, fmt.Errorf("%w: missing field %q", logic.ErrMalformedSample, missing)
	}

	s := logic.Sample{
		X:    *p.X,
		Y:    *p.Y,
		Z:    *p.Z,
		Time: time.UnixMilli(*p.Timestamp).UTC(),
	}
	return s, s.Validate()
}

// EncodeSample formats s as a JSON sample payload.
func EncodeSample(s logic.Sample) ([]byte, error) {
	ts := s.Time.UnixMilli()
	return json.Marshal(SamplePayload{X: &s.X, Y: &s.Y, Z: &s.Z, Timestamp: &ts})
}

// MQTTSource receives samples from an MQTT topic. The broker subscription
// is held for the life of the source; samples are only forwarded while a
// subscriber is attached.
type MQTTSource struct {
	client paho.Client
	topic  string
	sub    subscriber

	mu     sync.Mutex
	closed bool
}

// NewMQTTSource connects to broker and subscribes to topic.
func NewMQTTSource(broker, topic string) (*MQTTSource, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	s := &MQTTSource{topic: topic}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("motion-sensor-src-" + uuid.NewString()[:8]).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			// Runs on every (re)connect so the subscription survives broker restarts.
			token := c.Subscribe(s.topic, 0, s.handle)
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				log.Printf("sensor: subscribe %s: %v", s.topic, token.Error())
				return
			}
			log.Printf("sensor: subscribed to %s", s.topic)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("sensor: mqtt connection lost: %v", err)
		})

	s.client = paho.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("sensor: connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("sensor: connect to broker: %w", err)
	}
	return s, nil
}

// Subscribe attaches fn.
func (s *MQTTSource) Subscribe(fn motion.SampleFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.sub.set(fn)
	return nil
}

// Unsubscribe detaches the current subscriber.
func (s *MQTTSource) Unsubscribe() error {
	s.sub.set(nil)
	return nil
}

// IsConnected reports whether the MQTT client is connected.
func (s *MQTTSource) IsConnected() bool {
	return s.client.IsConnected()
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.sub.set(nil)
	s.client.Disconnect(1000)
	return nil
}

func (s *MQTTSource) handle(_ paho.Client, msg paho.Message) {
	deliver(s.sub.get(), msg.Payload())
}

// deliver decodes payload and forwards it to fn. Failures are logged and the
// sample dropped.
func deliver(fn motion.SampleFunc, payload []byte) {
	if fn == nil {
		return
	}
	sample, err := DecodeSample(payload)
	if err != nil {
		log.Printf("sensor: dropping sample: %v", err)
		return
	}
	if err := fn(sample); err != nil {
		log.Printf("sensor: sample rejected: %v", err)
	}
}
