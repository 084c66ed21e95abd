package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/hyunwoo-dev/billiard-services/internal/comm"
	"github.com/hyunwoo-dev/billiard-services/internal/socketsvc/broker"
)

// Ws is the viewer hub: wall displays and desk sessions connect here and
// receive every board snapshot the floor service publishes.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn
	writeMu sync.Map // socketId -> *sync.Mutex, one writer per conn
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "init":
		s.handleInit(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// handleInit greets a new viewer with the current board so the floor shows
// up without waiting for the next mutation.
func (s *Ws) handleInit(socketId string, msg *comm.WSMessage) {
	var payload struct {
		Name string `json:"name"`
	}

	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: invalid_init_data Malformed init payload %s", err)
		return
	}

	log.Infof("viewer %q connected on socket %s", payload.Name, socketId)

	if snapshot := s.Broker.LastSnapshot(); snapshot != nil {
		s.send(socketId, snapshot)
	}
}

// Broadcast writes a payload to every connected viewer.
func (s *Ws) Broadcast(payload []byte) {
	s.connMap.Range(func(key, value interface{}) bool {
		s.send(key.(string), payload)
		return true
	})
}

func (s *Ws) send(socketId string, payload []byte) {
	conn, ok := s.GetConnection(socketId)
	if !ok {
		return
	}

	muVal, _ := s.writeMu.LoadOrStore(socketId, &sync.Mutex{})
	mu := muVal.(*sync.Mutex)

	mu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, payload)
	mu.Unlock()

	if err != nil {
		log.Errorf("Error writing to socket %s: %s", socketId, err)
		s.HandleDisconnect(socketId)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.writeMu.Delete(socketId)
}
