package coverage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/paulmach/orb"
)

// DefaultTopicPrefix is used when no topic prefix is configured.
const DefaultTopicPrefix = "coverpart"

// SnapshotPublisher streams snapshots of a running partition to MQTT as
// JSON. Snapshots go to {prefix}/snapshots and the final state to
// {prefix}/result.
type SnapshotPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	retain bool

	mu        sync.Mutex
	published int
}

// snapshotMessage is the payload published for every snapshot.
type snapshotMessage struct {
	Snapshot
	Sequence  int   `json:"sequence"`
	Timestamp int64 `json:"timestamp"`
}

// resultMessage is the payload published once a run finishes.
type resultMessage struct {
	Result
	Centers   []orb.Point `json:"centers"`
	Weights   []float64   `json:"weights"`
	Timestamp int64       `json:"timestamp"`
}

// NewSnapshotPublisher creates a publisher on client. An empty prefix
// falls back to MQTT_PUBLISH_PREFIX and then to DefaultTopicPrefix.
func NewSnapshotPublisher(client mqtt.Client, prefix string) *SnapshotPublisher {
	if prefix == "" {
		prefix = os.Getenv("MQTT_PUBLISH_PREFIX")
	}
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &SnapshotPublisher{
		client: client,
		prefix: prefix,
		qos:    0,
		retain: false,
	}
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *SnapshotPublisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *SnapshotPublisher) SetRetain(retain bool) {
	p.retain = retain
}

// Published returns the number of snapshots published so far.
func (p *SnapshotPublisher) Published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

// Publish sends one snapshot.
func (p *SnapshotPublisher) Publish(s Snapshot) error {
	p.mu.Lock()
	seq := p.published + 1
	p.mu.Unlock()

	msg := snapshotMessage{Snapshot: s, Sequence: seq, Timestamp: time.Now().Unix()}
	if err := p.send(p.prefix+"/snapshots", msg); err != nil {
		return err
	}

	p.mu.Lock()
	p.published = seq
	p.mu.Unlock()
	return nil
}

// Handle publishes s and logs failures. It matches IterationHandler; a
// broker outage never aborts the run.
func (p *SnapshotPublisher) Handle(s Snapshot) {
	if err := p.Publish(s); err != nil {
		log.Printf("Error publishing snapshot (%s, outer %d, inner %d): %v", s.Stage, s.Outer, s.Inner, err)
	}
}

// PublishResult sends the outcome of a run together with the final sites.
func (p *SnapshotPublisher) PublishResult(res Result, centers []orb.Point, weights []float64) error {
	msg := resultMessage{Result: res, Centers: centers, Weights: weights, Timestamp: time.Now().Unix()}
	return p.send(p.prefix+"/result", msg)
}

func (p *SnapshotPublisher) send(topic string, v any) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// ConnectMQTT builds a paho client from cfg and connects it. Environment
// variables MQTT_BROKER, MQTT_CLIENT_ID, MQTT_USERNAME and MQTT_PASSWORD take
// precedence over cfg.
func ConnectMQTT(cfg MQTTConfig) (mqtt.Client, error) {
	broker := envOr("MQTT_BROKER", cfg.Broker)
	if broker == "" {
		return nil, fmt.Errorf("%w: mqtt broker is not set", ErrConfiguration)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(envOr("MQTT_CLIENT_ID", cfg.ClientID, "coverpart"))
	if username := envOr("MQTT_USERNAME", cfg.Username); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(envOr("MQTT_PASSWORD", cfg.Password))
	}
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOrderMatters(true) // snapshots are only meaningful in sequence

	client := mqtt.NewClient(opts)
	log.Printf("Connecting to MQTT broker %s...", broker)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connecting to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", broker, err)
	}
	log.Println("Successfully connected to MQTT broker")
	return client, nil
}

// envOr returns the environment variable key if set, otherwise the first
// non-empty fallback.
func envOr(key string, fallbacks ...string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	for _, f := range fallbacks {
		if f != "" {
			return f
		}
	}
	return ""
}
