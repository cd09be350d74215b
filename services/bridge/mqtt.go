package bridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"go.uber.org/zap"

	"inamqtt-go/errcode"
)

// MQTTConfig carries the broker session parameters.
type MQTTConfig struct {
	Broker         string // tcp://, mqtt://, mqtts://, ssl://, ws://
	ClientID       string
	KeepAlive      uint16        // seconds; 0 means 30
	ConnectTimeout time.Duration // initial connect; 0 means 10s
}

// mqttTransport implements Transport on autopaho, which reconnects on its own.
type mqttTransport struct {
	cfg MQTTConfig
	log *zap.Logger

	mu   sync.Mutex
	cm   *autopaho.ConnectionManager
	stop context.CancelFunc
}

func newMQTTTransport(cfg TransportConfig, log *zap.Logger) (Transport, error) {
	if cfg.MQTT == nil {
		return nil, errors.New("mqtt transport requires mqtt config")
	}
	c := *cfg.MQTT
	if c.KeepAlive == 0 {
		c.KeepAlive = 30
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return &mqttTransport{cfg: c, log: log}, nil
}

func (m *mqttTransport) String() string { return "mqtt" }

func (m *mqttTransport) Connect(ctx context.Context, topics []string, h Handler) error {
	u, err := url.Parse(m.cfg.Broker)
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "mqtt", Msg: "broker url", Err: err}
	}

	runCtx, stop := context.WithCancel(ctx)
	first := make(chan error, 1)
	var once sync.Once
	pc := autopaho.ClientConfig{
		ServerUrls: []*url.URL{u},
		KeepAlive:  m.cfg.KeepAlive,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			m.log.Info("mqtt connected", zap.String("broker", m.cfg.Broker))
			go func() {
				err := m.subscribe(runCtx, cm, topics)
				once.Do(func() { first <- err })
			}()
		},
		OnConnectError: func(err error) {
			m.log.Warn("mqtt connection error", zap.Error(err))
		},
		ClientConfig: paho.ClientConfig{
			ClientID: m.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					h(pr.Packet.Topic, pr.Packet.Payload)
					return true, nil
				},
			},
			OnClientError: func(err error) {
				m.log.Warn("mqtt client error", zap.Error(err))
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				m.log.Warn("mqtt server disconnect", zap.Uint8("reason", d.ReasonCode))
			},
		},
	}
	// Enable TLS for mqtts:// or ssl:// schemes.
	if u.Scheme == "mqtts" || u.Scheme == "ssl" {
		pc.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(runCtx, pc)
	if err != nil {
		stop()
		return &errcode.E{C: errcode.NotConnected, Op: "mqtt", Msg: "connect", Err: err}
	}

	connCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		// Stop autopaho retrying behind our back.
		stop()
		return &errcode.E{C: errcode.NotConnected, Op: "mqtt", Msg: fmt.Sprintf("no session within %s", m.cfg.ConnectTimeout), Err: err}
	}
	if err := awaitSubscribed(connCtx, first); err != nil {
		stop()
		return err
	}

	m.mu.Lock()
	m.cm, m.stop = cm, stop
	m.mu.Unlock()
	return nil
}

// subscriber is the part of autopaho.ConnectionManager used to subscribe.
type subscriber interface {
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
}

// subscribe requests topics at QoS 1. A suback with a failure reason code
// comes back as an error from paho.
func (m *mqttTransport) subscribe(ctx context.Context, cm subscriber, topics []string) error {
	if len(topics) == 0 {
		return nil
	}
	opts := make([]paho.SubscribeOptions, 0, len(topics))
	for _, t := range topics {
		opts = append(opts, paho.SubscribeOptions{Topic: t, QoS: 1})
	}
	sctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()
	if _, err := cm.Subscribe(sctx, &paho.Subscribe{Subscriptions: opts}); err != nil {
		m.log.Error("mqtt subscribe failed", zap.Strings("topics", topics), zap.Error(err))
		return err
	}
	m.log.Info("mqtt subscribed", zap.Strings("topics", topics))
	return nil
}

// awaitSubscribed waits for the first session's subscribe result. A link
// that cannot subscribe never delivers requests, so it counts as not connected.
func awaitSubscribed(ctx context.Context, first <-chan error) error {
	select {
	case err := <-first:
		if err != nil {
			return &errcode.E{C: errcode.NotConnected, Op: "mqtt", Msg: "subscribe", Err: err}
		}
		return nil
	case <-ctx.Done():
		return &errcode.E{C: errcode.NotConnected, Op: "mqtt", Msg: "subscribe", Err: ctx.Err()}
	}
}

func (m *mqttTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	cm := m.cm
	m.mu.Unlock()
	if cm == nil {
		return errcode.NotConnected
	}
	_, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     1,
	})
	return err
}

func (m *mqttTransport) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	cm, stop := m.cm, m.stop
	m.cm, m.stop = nil, nil
	m.mu.Unlock()
	if cm == nil {
		return nil
	}
	defer stop()
	return cm.Disconnect(ctx)
}
