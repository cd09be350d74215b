// bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"inamqtt-go/drivers/ina2xx"
	"inamqtt-go/errcode"
	"inamqtt-go/types"
	"inamqtt-go/x/mathx"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

type Config struct {
	Transport TransportConfig

	TopicGet   string // request topic
	TopicState string // liveness topic
	TopicReply string // replies to both

	QueueLen       int           // inbound queue; clamped to [1, 256], 0 means 16
	PublishTimeout time.Duration // per publish; 0 means 10s
}

// Sensor is the single device the bridge answers for.
type Sensor interface {
	Read() (ina2xx.Reading, error)
}

// Poller runs on the service loop every Interval when attached.
type Poller interface {
	Interval() time.Duration
	Poll()
}

// Message is one outbound publish.
type Message struct {
	Topic   string
	Payload []byte
}

type inbound struct {
	topic   string
	payload []byte
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	cfg    Config
	sensor Sensor
	poller Poller
	log    *zap.Logger

	tr    Transport
	inbox chan inbound
}

func New(cfg Config, sensor Sensor, log *zap.Logger) *Service {
	if cfg.QueueLen == 0 {
		cfg.QueueLen = 16
	}
	cfg.QueueLen = mathx.Clamp(cfg.QueueLen, 1, 256)
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	return &Service{
		cfg:    cfg,
		sensor: sensor,
		log:    log,
		inbox:  make(chan inbound, cfg.QueueLen),
	}
}

// WithPoller attaches p to the service loop so the device keeps one owner.
func (s *Service) WithPoller(p Poller) *Service {
	s.poller = p
	return s
}

// Connect opens the transport and subscribes to the request and liveness
// topics. ctx bounds the whole session, not just the connect.
func (s *Service) Connect(ctx context.Context) error {
	tr, err := newTransport(s.cfg.Transport, s.log)
	if err != nil {
		s.logState("error", "transport_init_failed", err)
		return err
	}
	return s.connect(ctx, tr)
}

func (s *Service) connect(ctx context.Context, tr Transport) error {
	s.logState("idle", "connecting", nil)
	topics := []string{s.cfg.TopicGet, s.cfg.TopicState}
	if err := tr.Connect(ctx, topics, s.enqueue); err != nil {
		s.logState("error", "connect_failed", err)
		return err
	}
	s.tr = tr
	s.logState("up", "link_established", nil)
	s.log.Info("listening", zap.String("topic", s.cfg.TopicGet), zap.String("reply", s.cfg.TopicReply))
	return nil
}

// Run serves inbound messages until ctx is cancelled, then disconnects.
func (s *Service) Run(ctx context.Context) error {
	if s.tr == nil {
		return errcode.NotConnected
	}

	var tick <-chan time.Time
	if s.poller != nil {
		t := time.NewTicker(s.poller.Interval())
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case in := <-s.inbox:
			if out, ok := s.Dispatch(in.topic, in.payload); ok {
				s.publish(ctx, out)
			}
		case <-tick:
			s.poller.Poll()
		}
	}
}

// enqueue hands a message from the transport goroutine to the loop. It never
// blocks so the client's read loop keeps acknowledging.
func (s *Service) enqueue(topic string, payload []byte) {
	select {
	case s.inbox <- inbound{topic: topic, payload: payload}:
	default:
		s.log.Warn("inbound queue full, message dropped", zap.String("topic", topic))
	}
}

// Dispatch maps one inbound message to at most one reply.
func (s *Service) Dispatch(topic string, _ []byte) (Message, bool) {
	switch topic {
	case s.cfg.TopicGet:
		r, err := s.sensor.Read()
		if err != nil {
			s.log.Warn("sensor read failed", zap.String("code", string(errcode.Of(err))), zap.Error(err))
		}
		b, err := json.Marshal(types.ReadingValue{
			Voltage_V:  types.Fixed3(r.Bus_V),
			Current_mA: types.Fixed3(r.Current_mA),
			Power_mW:   types.Fixed3(r.Power_mW),
			Shunt_mV:   types.Fixed3(r.Shunt_mV),
		})
		if err != nil {
			s.log.Error("encode reading", zap.Error(err))
			return Message{}, false
		}
		return Message{Topic: s.cfg.TopicReply, Payload: b}, true

	case s.cfg.TopicState:
		b, _ := json.Marshal(types.StatusReply{Status: types.StatusAlive})
		return Message{Topic: s.cfg.TopicReply, Payload: b}, true

	default:
		s.log.Warn("unexpected topic", zap.String("topic", topic))
		return Message{}, false
	}
}

func (s *Service) publish(ctx context.Context, m Message) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()
	if err := s.tr.Publish(pctx, m.Topic, m.Payload); err != nil {
		code := errcode.Of(err)
		if errors.Is(err, context.DeadlineExceeded) {
			code = errcode.Timeout
		}
		s.log.Error("publish failed", zap.String("topic", m.Topic), zap.String("code", string(code)), zap.Error(err))
		return
	}
	s.log.Debug("published", zap.String("topic", m.Topic), zap.ByteString("payload", m.Payload))
}

func (s *Service) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.tr.Disconnect(ctx); err != nil {
		s.logState("degraded", "disconnect_failed", err)
		return
	}
	s.logState("idle", "stopped", nil)
}

func (s *Service) logState(level, status string, err error) {
	fields := []zap.Field{
		zap.String("level", level),   // "up", "degraded", "error", "idle"
		zap.String("status", status), // short machine string
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	switch level {
	case "error", "degraded":
		s.log.Warn("bridge state", fields...)
	default:
		s.log.Info("bridge state", fields...)
	}
}
