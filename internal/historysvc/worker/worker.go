package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/hyunwoo-dev/billiard-services/internal/comm"
	"github.com/hyunwoo-dev/billiard-services/internal/historysvc/store"
)

// Worker drains floor.history into the audit collection. Failures are
// logged and dropped, never pushed back to the floor service.
type Worker struct {
	conn  *nats.Conn
	store *store.HistoryStore
}

func NewWorker(conn *nats.Conn, store *store.HistoryStore) *Worker {
	return &Worker{conn: conn, store: store}
}

func (w *Worker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := w.conn.Subscribe(topic, w.handleEvent)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (w *Worker) handleEvent(msg *nats.Msg) {
	event := &comm.HistoryEvent{}
	if err := json.Unmarshal(msg.Data, event); err != nil {
		log.Errorf("Error decoding history event %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.store.Append(ctx, event.Record); err != nil {
		log.Errorf("Error appending history from instance %s: %s", event.InstanceId, err)
	}
}
