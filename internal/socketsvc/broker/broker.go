package broker

import (
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/hyunwoo-dev/billiard-services/internal/comm"
)

// Broker bridges NATS and the websocket hub: board snapshots published by
// the floor service fan out to every connected viewer.
type Broker struct {
	Conn      *nats.Conn
	Broadcast func(payload []byte)

	mu           sync.Mutex
	lastSnapshot []byte
}

func NewBroker(conn *nats.Conn, fncBroadcast func(payload []byte)) *Broker {
	return &Broker{
		Conn:      conn,
		Broadcast: fncBroadcast,
	}
}

// Subscribe consumes board snapshots from the floor service.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// LastSnapshot returns the most recent board state so a fresh viewer gets
// the current floor immediately instead of waiting for the next mutation.
func (b *Broker) LastSnapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSnapshot
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case "board-snapshot":
		b.mu.Lock()
		b.lastSnapshot = msgNats.Data
		b.mu.Unlock()
		b.Broadcast(msgNats.Data)
	default:
		log.Warnf("unknown message type on board topic: %s", message.Type)
	}
}
