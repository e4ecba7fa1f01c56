package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"habitat-monitor/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ReadingMessage is the payload a sensor node publishes. Keys match the
// form fields accepted by POST /datos.
type ReadingMessage struct {
	Temperature float64 `json:"temp"`
	Humidity    float64 `json:"hum"`
	WaterLevel  float64 `json:"nivel_agua"`
	Stable      bool    `json:"estabilidad"`
}

// Publisher sends readings the way a sensor node does. Used by habitatctl to
// feed a running server.
type Publisher struct {
	client mqtt.Client
	cfg    config.Config
	logger *slog.Logger
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(5 * time.Second)

	return &Publisher{client: mqtt.NewClient(opts), cfg: cfg, logger: logger}
}

// Connect waits for the broker connection or ctx.
func (p *Publisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		default:
		}
	}
}

// PublishReading publishes msg on the node's readings topic.
func (p *Publisher) PublishReading(node string, msg ReadingMessage) error {
	topic, err := ReadingTopic(p.cfg.MQTTTopic, node)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := p.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish reading: %w", token.Error())
	}

	p.logger.Debug("published reading", "topic", topic, "node", node)
	return nil
}

func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

// ReadingTopic fills the single-level wildcard of the subscription filter
// with node, e.g. "habitat/+/readings" becomes "habitat/tank-1/readings".
func ReadingTopic(filter, node string) (string, error) {
	node = strings.TrimSpace(node)
	if node == "" || strings.ContainsAny(node, "/+#") {
		return "", fmt.Errorf("invalid node name %q", node)
	}
	if strings.Contains(filter, "#") {
		return "", fmt.Errorf("topic filter %q: multi-level wildcard has no publish topic", filter)
	}
	levels := strings.Split(filter, "/")
	replaced := false
	for i, l := range levels {
		if l == "+" {
			if replaced {
				return "", fmt.Errorf("topic filter %q has more than one wildcard", filter)
			}
			levels[i] = node
			replaced = true
		}
	}
	return strings.Join(levels, "/"), nil
}
