package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

func testSample() telemetry.Sample {
	return telemetry.Sample{
		Device: "esp",
		Reading: telemetry.Reading{
			Accelerometer: telemetry.Vector{X: 1, Y: 2, Z: 3},
			Temperature:   25.5,
			PostureAngle:  18,
		},
		FetchedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		LatencyMs: 42,
		Alerts: []telemetry.Alert{
			{Kind: telemetry.AlertPosture, Message: "poor posture detected", Value: 18, Threshold: 15},
		},
	}
}

func TestTopicFor(t *testing.T) {
	tests := []struct {
		tmpl, device, want string
	}{
		{"sensorbridge/%s", "esp", "sensorbridge/esp"},
		{"fixed/topic", "esp", "fixed/topic"},
		{"%s/reading", "desk", "desk/reading"},
		{"site/%s/%d", "desk", "site/desk/%d"},
		{"%s/%s", "desk", "desk/desk"},
		{"100%/%s", "desk", "100%/desk"},
	}
	for _, tt := range tests {
		if got := topicFor(tt.tmpl, tt.device); got != tt.want {
			t.Errorf("topicFor(%q, %q) = %q, want %q", tt.tmpl, tt.device, got, tt.want)
		}
	}
}

func TestConsole_Publish(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	if err := c.Publish(context.Background(), testSample()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"2026-10-18T09:30:00Z", "device=esp", "X=1.00", "temp=25.50", "ALERT posture"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
	if c.Name() != "console" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestLog_Publish(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	l := NewLog(logger, slog.LevelInfo)

	if err := l.Publish(context.Background(), testSample()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	if record["msg"] != "reading" || record["device"] != "esp" || record["temperature"] != 25.5 {
		t.Errorf("unexpected log record: %v", record)
	}
	accel, ok := record["accelerometer"].(map[string]any)
	if !ok || accel["z"] != 3.0 {
		t.Errorf("accelerometer group = %v", record["accelerometer"])
	}
}

func TestLog_BelowLevelIsSilent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	l := NewLog(logger, slog.LevelDebug)

	_ = l.Publish(context.Background(), testSample())
	if buf.Len() != 0 {
		t.Errorf("debug-level sink wrote at info threshold: %s", buf.String())
	}
}

// fakeToken implements mqtt.Token.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error, complete bool) *fakeToken {
	tok := &fakeToken{err: err, done: make(chan struct{})}
	if complete {
		close(tok.done)
	}
	return tok
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTTClient struct {
	mu           sync.Mutex
	published    []published
	err          error
	hang         bool
	disconnected bool
}

func (f *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic, qos, retained, payload.([]byte)})
	return newFakeToken(f.err, !f.hang)
}

func (f *fakeMQTTClient) Disconnect(uint) {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
}

func TestMQTT_Publish(t *testing.T) {
	client := &fakeMQTTClient{}
	m := newMQTT(client, MQTTConfig{Topic: "posture/%s/reading", QoS: 1, Retained: true})

	if err := m.Publish(context.Background(), testSample()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(client.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.published))
	}
	msg := client.published[0]
	if msg.topic != "posture/esp/reading" {
		t.Errorf("topic = %q, want posture/esp/reading", msg.topic)
	}
	if msg.qos != 1 || !msg.retained {
		t.Errorf("qos/retained = %d/%v, want 1/true", msg.qos, msg.retained)
	}

	var got telemetry.Sample
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not a sample: %v", err)
	}
	if got.Reading.Temperature != 25.5 {
		t.Errorf("payload temperature = %v, want 25.5", got.Reading.Temperature)
	}
}

func TestMQTT_DefaultTopic(t *testing.T) {
	client := &fakeMQTTClient{}
	m := newMQTT(client, MQTTConfig{})

	_ = m.Publish(context.Background(), testSample())
	if client.published[0].topic != "sensorbridge/esp" {
		t.Errorf("topic = %q, want sensorbridge/esp", client.published[0].topic)
	}
}

func TestMQTT_PublishError(t *testing.T) {
	client := &fakeMQTTClient{err: errors.New("not connected")}
	m := newMQTT(client, MQTTConfig{})

	err := m.Publish(context.Background(), testSample())
	if err == nil || !strings.Contains(err.Error(), "not connected") {
		t.Errorf("Publish() error = %v, want broker error", err)
	}
}

func TestMQTT_PublishRespectsContext(t *testing.T) {
	client := &fakeMQTTClient{hang: true}
	m := newMQTT(client, MQTTConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Publish(ctx, testSample())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Publish() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestMQTT_Close(t *testing.T) {
	client := &fakeMQTTClient{}
	m := newMQTT(client, MQTTConfig{})

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !client.disconnected {
		t.Error("Close() did not disconnect")
	}
}

func TestNewMQTT_RejectsInvalidQoS(t *testing.T) {
	_, err := NewMQTT(MQTTConfig{QoS: 3})
	if err == nil || !strings.Contains(err.Error(), "qos") {
		t.Errorf("NewMQTT() error = %v, want qos error", err)
	}
}

type fakeRedis struct {
	channel string
	message []byte
	err     error
	closed  bool
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedis_Publish(t *testing.T) {
	client := &fakeRedis{}
	r := newRedis(client, "")

	if err := r.Publish(context.Background(), testSample()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if client.channel != DefaultRedisChannel {
		t.Errorf("channel = %q, want %q", client.channel, DefaultRedisChannel)
	}
	if !bytes.Contains(client.message, []byte(`"device":"esp"`)) {
		t.Errorf("message = %s", client.message)
	}
	if r.Name() != "redis" {
		t.Errorf("Name() = %q", r.Name())
	}
}

func TestRedis_PublishPerDeviceChannel(t *testing.T) {
	client := &fakeRedis{}
	r := newRedis(client, "readings:%s")

	_ = r.Publish(context.Background(), testSample())
	if client.channel != "readings:esp" {
		t.Errorf("channel = %q, want readings:esp", client.channel)
	}
}

func TestRedis_PublishError(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	r := newRedis(client, "c")

	err := r.Publish(context.Background(), testSample())
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Publish() error = %v, want wrapped redis error", err)
	}
}

func TestRedis_Close(t *testing.T) {
	client := &fakeRedis{}
	if err := newRedis(client, "c").Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !client.closed {
		t.Error("Close() did not close the client")
	}
}

func TestNewRedis_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// port 1 on loopback is reserved and refuses connections
	_, err := NewRedis(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("NewRedis() error = nil, want ping failure")
	}
}
