package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/button-blink/internal/logic"
)

// ClientID identifies the daemon to the broker.
const ClientID = "button-blink"

// bufferCapacity bounds the messages kept while the broker is unreachable.
const bufferCapacity = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	buffer    *ringBuffer
	replaying bool // sends queue behind the buffer until replay finishes
}

// NewRealPublisher creates a publisher for the given broker. The broker
// need not be reachable yet: the client keeps retrying in the background
// and messages are buffered until it connects.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{buffer: newRingBuffer(bufferCapacity)}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// newPublisherWithClient wraps an existing client. Used by tests.
func newPublisherWithClient(client paho.Client) *RealPublisher {
	return &RealPublisher{
		client: client,
		buffer: newRingBuffer(bufferCapacity),
	}
}

// Publish sends a band change event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.send(bufferedMsg{topic: Topic, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	msg := bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if err := p.send(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// send publishes msg, or buffers it if the connection is down, a replay is
// in progress, or the publish does not complete. Buffered messages always
// go out before newer ones.
func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	open := p.client.IsConnectionOpen()
	if p.replaying || p.buffer.len() > 0 || !open {
		p.buffer.push(msg)
		flush := open && !p.replaying
		p.mu.Unlock()
		if flush {
			// Left over from a failed publish on a live connection.
			p.replay()
		}
		return nil
	}
	p.mu.Unlock()

	if err := p.publish(msg); err != nil {
		p.hold(msg)
		return fmt.Errorf("%w (buffered)", err)
	}
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout")
	}
	return token.Error()
}

func (p *RealPublisher) hold(msg bufferedMsg) {
	p.mu.Lock()
	p.buffer.push(msg)
	p.mu.Unlock()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// replay publishes everything buffered while disconnected, oldest first.
// Called by the client on every (re)connect. Messages sent during the
// replay are buffered and drained in the same pass.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	if p.replaying {
		p.mu.Unlock()
		return
	}
	p.replaying = true
	p.mu.Unlock()

	sent := 0
	for {
		p.mu.Lock()
		msgs, dropped := p.buffer.drain()
		if len(msgs) == 0 {
			p.replaying = false
			p.mu.Unlock()
			if sent > 0 {
				log.Printf("mqtt: replayed %d buffered messages", sent)
			}
			return
		}
		p.mu.Unlock()

		if dropped > 0 {
			log.Printf("mqtt: %d buffered messages were dropped while disconnected", dropped)
		}

		for i, msg := range msgs {
			if err := p.publish(msg); err != nil {
				p.requeue(msgs[i:])
				log.Printf("mqtt: replay interrupted, %d messages re-buffered: %v", len(msgs)-i, err)
				return
			}
			sent++
		}
	}
}

// requeue puts unsent messages back ahead of anything buffered since they
// were drained, and ends the replay.
func (p *RealPublisher) requeue(unsent []bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	newer, _ := p.buffer.drain()
	for _, m := range unsent {
		p.buffer.push(m)
	}
	for _, m := range newer {
		p.buffer.push(m)
	}
	p.replaying = false
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
