package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/growctl/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "growctl-test",
		},
		QoS:         1,
		TopicPrefix: "grow",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Error(msg string, _ ...any) { l.add(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add(msg) }

func (l *recordingLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

// ─── Topics ─────────────────────────────────────────────────────────────────

func TestTopics(t *testing.T) {
	topics := NewTopics("/site-a/")
	tests := []struct {
		got  string
		want string
	}{
		{topics.Status(), "site-a/status"},
		{topics.SensorReading("temp1"), "site-a/sensors/temp1"},
		{topics.DeviceState("fan"), "site-a/devices/fan/state"},
		{topics.Command(), "site-a/command"},
		{topics.AllSensorReadings(), "site-a/sensors/+"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
	if NewTopics("").Prefix() != DefaultTopicPrefix {
		t.Error("empty prefix should select the default")
	}
}

// ─── Options ────────────────────────────────────────────────────────────────

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "grow"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "growctl-test" || opts.Username != "grow" || opts.Password != "secret" {
		t.Errorf("identity = %q %q %q", opts.ClientID, opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("auto-reconnect and clean session should be enabled")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
	if opts.TLSConfig != nil {
		t.Error("TLS configured without broker.tls")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" || opts.TLSConfig == nil {
		t.Error("TLS not applied")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, NewTopics("grow"), "growctl-test")

	if !opts.WillEnabled || opts.WillTopic != "grow/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	var doc map[string]string
	if err := json.Unmarshal(opts.WillPayload, &doc); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if doc["status"] != "offline" || doc["reason"] != "unexpected_disconnect" {
		t.Errorf("will payload = %v", doc)
	}
}

func TestStatusPayload_OmitsEmptyReason(t *testing.T) {
	if p := statusPayload("online", "id", ""); strings.Contains(p, "reason") {
		t.Errorf("payload %s should not contain a reason", p)
	}
}

// ─── Validation without a broker ────────────────────────────────────────────

func TestPublish_Validation(t *testing.T) {
	c := newClient(testConfig())

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", nil, 0, ErrInvalidTopic},
		{"invalid qos", "grow/x", nil, 3, ErrInvalidQoS},
		{"oversize payload", "grow/x", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"disconnected", "grow/x", []byte("{}"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := newClient(testConfig())
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 0, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("grow/command", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := c.Subscribe("grow/command", 0, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v", err)
	}
	if c.HasSubscription("grow/command") {
		t.Error("failed subscription was tracked")
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := newClient(testConfig())
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v", err)
	}
}

func TestClose_NeverConnected(t *testing.T) {
	if err := newClient(testConfig()).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDispatch_RecoversAndLogs(t *testing.T) {
	c := newClient(testConfig())
	log := &recordingLogger{}
	c.SetLogger(log)

	c.dispatch(func(string, []byte) error { panic("boom") }, "grow/command", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad") }, "grow/command", nil)

	if len(log.msgs) != 2 {
		t.Errorf("logged %v, want a panic and an error", log.msgs)
	}
}

// ─── Broker round trip ──────────────────────────────────────────────────────

// brokerConfig returns a config for the broker named by GROWCTL_TEST_MQTT
// (host:port) or skips the test.
func brokerConfig(t *testing.T) config.MQTTConfig {
	t.Helper()
	addr := os.Getenv("GROWCTL_TEST_MQTT")
	if addr == "" {
		t.Skip("GROWCTL_TEST_MQTT not set")
	}
	host, portStr, ok := strings.Cut(addr, ":")
	port, err := strconv.Atoi(portStr)
	if !ok || err != nil {
		t.Fatalf("GROWCTL_TEST_MQTT = %q, want host:port", addr)
	}
	cfg := testConfig()
	cfg.Broker.Host = host
	cfg.Broker.Port = port
	cfg.Broker.ClientID = "growctl-test-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	return cfg
}

func TestBroker_PublishSubscribe(t *testing.T) {
	cfg := brokerConfig(t)
	c, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	got := make(chan string, 1)
	topic := c.Topics().Command()
	err = c.Subscribe(topic, 1, func(_ string, payload []byte) error {
		got <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := c.PublishJSON(topic, map[string]string{"type": "ping"}, false); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case msg := <-got:
		if msg != `{"type":"ping"}` {
			t.Errorf("received %s", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}
