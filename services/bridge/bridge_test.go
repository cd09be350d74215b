// bridge/bridge_test.go
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"inamqtt-go/drivers/ina2xx"
	"inamqtt-go/errcode"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeSensor struct {
	r   ina2xx.Reading
	err error
	n   int
}

func (f *fakeSensor) Read() (ina2xx.Reading, error) {
	f.n++
	return f.r, f.err
}

type fakeTransport struct {
	mu         sync.Mutex
	topics     []string
	h          Handler
	connectErr error
	publishErr error
	sent       []Message
	sentCh     chan Message
	closed     bool
}

func newFakeTransport() *fakeTransport { return &fakeTransport{sentCh: make(chan Message, 16)} }

func (f *fakeTransport) Connect(_ context.Context, topics []string, h Handler) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.topics, f.h = topics, h
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	m := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	f.sentCh <- m
	return nil
}

func (f *fakeTransport) Disconnect(context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) String() string { return "fake" }

func (f *fakeTransport) deliver(topic string) {
	f.mu.Lock()
	h := f.h
	f.mu.Unlock()
	h(topic, []byte("ignored"))
}

type countPoller struct {
	mu sync.Mutex
	n  int
}

func (p *countPoller) Interval() time.Duration { return 5 * time.Millisecond }
func (p *countPoller) Poll() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}
func (p *countPoller) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func testConfig() Config {
	return Config{
		TopicGet:   "ina/get",
		TopicState: "ina/state",
		TopicReply: "ina/reply",
	}
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// -----------------------------------------------------------------------------
// Dispatch
// -----------------------------------------------------------------------------

func TestDispatch_GetPublishesReading(t *testing.T) {
	sensor := &fakeSensor{r: ina2xx.Reading{Bus_V: 3.328, Current_mA: 12.3456, Power_mW: 41.1, Shunt_mV: -0.5}}
	s := New(testConfig(), sensor, zap.NewNop())

	m, ok := s.Dispatch("ina/get", nil)
	require.True(t, ok)
	assert.Equal(t, "ina/reply", m.Topic)
	assert.JSONEq(t, `{"voltage_V":3.328,"current_mA":12.346,"power_mW":41.100,"shunt_mV":-0.500}`, string(m.Payload))
	assert.Equal(t, `{"voltage_V":3.328,"current_mA":12.346,"power_mW":41.100,"shunt_mV":-0.500}`, string(m.Payload))

	var fields map[string]float64
	require.NoError(t, json.Unmarshal(m.Payload, &fields))
	assert.Len(t, fields, 4)
	assert.Equal(t, 1, sensor.n)
}

func TestDispatch_GetReadErrorStillReplies(t *testing.T) {
	log, logs := observed()
	sensor := &fakeSensor{err: &errcode.E{C: errcode.BusIO, Op: "read", Msg: "bus"}}
	s := New(testConfig(), sensor, log)

	m, ok := s.Dispatch("ina/get", nil)
	require.True(t, ok)
	assert.Equal(t, "ina/reply", m.Topic)

	warn := logs.FilterMessage("sensor read failed").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "bus_io", warn[0].ContextMap()["code"])
}

func TestDispatch_StateAlive(t *testing.T) {
	sensor := &fakeSensor{}
	s := New(testConfig(), sensor, zap.NewNop())

	m, ok := s.Dispatch("ina/state", []byte("anything"))
	require.True(t, ok)
	assert.Equal(t, "ina/reply", m.Topic)
	assert.Equal(t, `{"status":"alive"}`, string(m.Payload))
	assert.Zero(t, sensor.n, "liveness must not touch the device")
}

func TestDispatch_OtherTopicWarnsOnly(t *testing.T) {
	log, logs := observed()
	sensor := &fakeSensor{}
	s := New(testConfig(), sensor, log)

	_, ok := s.Dispatch("some/other", nil)
	assert.False(t, ok)
	assert.Zero(t, sensor.n)
	assert.Equal(t, 1, logs.FilterMessage("unexpected topic").FilterLevelExact(zapcore.WarnLevel).Len())
}

// -----------------------------------------------------------------------------
// Service loop
// -----------------------------------------------------------------------------

func TestService_SubscribesAndReplies(t *testing.T) {
	tr := newFakeTransport()
	s := New(testConfig(), &fakeSensor{r: ina2xx.Reading{Bus_V: 5}}, zap.NewNop())
	require.NoError(t, s.connect(context.Background(), tr))
	assert.ElementsMatch(t, []string{"ina/get", "ina/state"}, tr.topics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	tr.deliver("ina/get")
	got := nextSent(t, tr)
	assert.Equal(t, "ina/reply", got.Topic)
	assert.Contains(t, string(got.Payload), `"voltage_V":5.000`)

	tr.deliver("ina/state")
	got = nextSent(t, tr)
	assert.Equal(t, `{"status":"alive"}`, string(got.Payload))

	tr.deliver("nobody/cares")
	select {
	case m := <-tr.sentCh:
		t.Fatalf("unexpected publish %+v", m)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
	assert.True(t, tr.closed, "disconnect on shutdown")
}

func TestService_ConnectFailure(t *testing.T) {
	log, logs := observed()
	tr := newFakeTransport()
	tr.connectErr = &errcode.E{C: errcode.NotConnected, Op: "mqtt"}
	s := New(testConfig(), &fakeSensor{}, log)

	err := s.connect(context.Background(), tr)
	require.Error(t, err)
	assert.Equal(t, errcode.NotConnected, errcode.Of(err))
	assert.Equal(t, 1, logs.FilterField(zap.String("status", "connect_failed")).Len())

	assert.ErrorIs(t, s.Run(context.Background()), errcode.NotConnected)
}

func TestService_PublishFailureIsLogged(t *testing.T) {
	log, logs := observed()
	tr := newFakeTransport()
	tr.publishErr = context.DeadlineExceeded
	s := New(testConfig(), &fakeSensor{}, log)
	require.NoError(t, s.connect(context.Background(), tr))

	m, _ := s.Dispatch("ina/state", nil)
	s.publish(context.Background(), m)

	entries := logs.FilterMessage("publish failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "timeout", entries[0].ContextMap()["code"])
}

func TestService_QueueFullDrops(t *testing.T) {
	log, logs := observed()
	cfg := testConfig()
	cfg.QueueLen = 1
	s := New(cfg, &fakeSensor{}, log)

	s.enqueue("ina/get", nil)
	s.enqueue("ina/get", nil) // loop not running; second is dropped

	assert.Len(t, s.inbox, 1)
	assert.Equal(t, 1, logs.FilterMessage("inbound queue full, message dropped").Len())
}

func TestService_PollerRunsOnLoop(t *testing.T) {
	tr := newFakeTransport()
	p := &countPoller{}
	s := New(testConfig(), &fakeSensor{}, zap.NewNop()).WithPoller(p)
	require.NoError(t, s.connect(context.Background(), tr))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for p.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, p.count(), 3)
}

func TestNewTransport(t *testing.T) {
	_, err := newTransport(TransportConfig{Type: "bogus"}, zap.NewNop())
	assert.Error(t, err)

	_, err = newTransport(TransportConfig{Type: "mqtt"}, zap.NewNop())
	assert.Error(t, err, "mqtt needs config")

	tr, err := newTransport(TransportConfig{Type: "mqtt", MQTT: &MQTTConfig{Broker: "tcp://localhost:1883"}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "mqtt", tr.String())

	RegisterTransport("fake", func(TransportConfig, *zap.Logger) (Transport, error) { return newFakeTransport(), nil })
	tr, err = newTransport(TransportConfig{Type: "fake"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "fake", tr.String())
}

func TestMQTTTransport_PublishBeforeConnect(t *testing.T) {
	tr, err := newMQTTTransport(TransportConfig{MQTT: &MQTTConfig{Broker: "tcp://localhost:1883"}}, zap.NewNop())
	require.NoError(t, err)
	assert.ErrorIs(t, tr.Publish(context.Background(), "x", nil), errcode.NotConnected)
	assert.NoError(t, tr.Disconnect(context.Background()))
}

func TestMQTTTransport_BadURL(t *testing.T) {
	tr, err := newMQTTTransport(TransportConfig{MQTT: &MQTTConfig{Broker: "::not a url"}}, zap.NewNop())
	require.NoError(t, err)
	err = tr.Connect(context.Background(), nil, func(string, []byte) {})
	require.Error(t, err)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

type fakeSubscriber struct {
	err  error
	subs []paho.SubscribeOptions
}

func (f *fakeSubscriber) Subscribe(_ context.Context, s *paho.Subscribe) (*paho.Suback, error) {
	f.subs = s.Subscriptions
	if f.err != nil {
		return nil, f.err
	}
	return &paho.Suback{Reasons: make([]byte, len(s.Subscriptions))}, nil
}

func TestMQTTTransport_Subscribe(t *testing.T) {
	tr, err := newMQTTTransport(TransportConfig{MQTT: &MQTTConfig{Broker: "tcp://localhost:1883"}}, zap.NewNop())
	require.NoError(t, err)
	m := tr.(*mqttTransport)

	ok := &fakeSubscriber{}
	require.NoError(t, m.subscribe(context.Background(), ok, []string{"ina/get", "ina/state"}))
	require.Len(t, ok.subs, 2)
	assert.Equal(t, "ina/get", ok.subs[0].Topic)
	assert.Equal(t, byte(1), ok.subs[1].QoS)

	rejected := &fakeSubscriber{err: errors.New("at least one requested subscription failed")}
	assert.Error(t, m.subscribe(context.Background(), rejected, []string{"ina/get"}))
}

func TestAwaitSubscribed(t *testing.T) {
	ok := make(chan error, 1)
	ok <- nil
	assert.NoError(t, awaitSubscribed(context.Background(), ok))

	failed := make(chan error, 1)
	failed <- errors.New("not authorized")
	err := awaitSubscribed(context.Background(), failed)
	require.Error(t, err)
	assert.Equal(t, errcode.NotConnected, errcode.Of(err))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = awaitSubscribed(ctx, make(chan error))
	require.Error(t, err)
	assert.Equal(t, errcode.NotConnected, errcode.Of(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func nextSent(t *testing.T, tr *fakeTransport) Message {
	t.Helper()
	select {
	case m := <-tr.sentCh:
		return m
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for publish")
	}
	return Message{}
}

