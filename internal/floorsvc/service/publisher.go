package service

import (
	"encoding/json"

	"github.com/hyunwoo-dev/billiard-services/internal/comm"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	log "github.com/sirupsen/logrus"
)

// Publisher is the slice of the NATS connection the services need.
// *nats.Conn satisfies it directly.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// publishHistory fires an audit event at the history worker. Strictly best
// effort: a failure is logged and the primary transition stands.
func publishHistory(pub Publisher, instanceId string, rec models.HistoryRecord) {
	event := comm.HistoryEvent{Record: rec, InstanceId: instanceId}
	bytes, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Error marshaling history event %s", err)
		return
	}
	if err := pub.Publish(comm.TopicHistory, bytes); err != nil {
		log.Errorf("Error publishing history for user %s: %s", rec.UserID, err)
	}
}

// publishBoard pushes a fresh board snapshot to the socket service.
func publishBoard(pub Publisher, snapshot comm.BoardSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Errorf("Error marshaling board snapshot %s", err)
		return
	}
	msg := comm.WSMessage{Type: "board-snapshot", Data: data}
	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error marshaling board message %s", err)
		return
	}
	if err := pub.Publish(comm.TopicBoard, bytes); err != nil {
		log.Errorf("Error publishing board snapshot: %s", err)
	}
}
