package bridge

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Handler receives one inbound message. Transports call it from their own
// goroutine; it must not block.
type Handler func(topic string, payload []byte)

// Transport is a pluggable broker link.
type Transport interface {
	// Connect starts the link and waits for the first session. topics are
	// (re)subscribed at QoS 1 on every session; h receives their messages.
	Connect(ctx context.Context, topics []string, h Handler) error
	// Publish sends at QoS 1 and returns once acknowledged or ctx ends.
	Publish(ctx context.Context, topic string, payload []byte) error
	Disconnect(ctx context.Context) error
	String() string
}

type TransportConfig struct {
	// "mqtt" (provided here) or other names registered via RegisterTransport.
	Type string
	MQTT *MQTTConfig
}

type transportFactory func(TransportConfig, *zap.Logger) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}
)

// RegisterTransport allows external packages to add transports.
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig, log *zap.Logger) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg, log)
	}
	switch cfg.Type {
	case "mqtt", "":
		return newMQTTTransport(cfg, log)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Type)
	}
}
