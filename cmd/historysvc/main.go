package main

import (
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	config "github.com/hyunwoo-dev/billiard-services/configs"
	"github.com/hyunwoo-dev/billiard-services/internal/comm"
	"github.com/hyunwoo-dev/billiard-services/internal/db"
	"github.com/hyunwoo-dev/billiard-services/internal/historysvc/store"
	"github.com/hyunwoo-dev/billiard-services/internal/historysvc/worker"
	natscli "github.com/hyunwoo-dev/billiard-services/internal/nats"
)

const SERVICE_NAME = "history"

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
	config.CreateUniqueInstance(SERVICE_NAME)
}

func main() {
	// mongo connection for the audit log
	mongoDb, cancel, err := db.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer cancel()
	log.Printf("mongo connection established successfully")

	// expired audit records get reaped by mongo itself
	db.CreateTTLIndexForCollection(mongoDb, store.CollectionName)

	// Connect to NATS
	nc, err := natscli.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Conn.Close()
	log.Infof("NATS connected at %s", nc.Url)

	historyStore := store.NewHistoryStore(mongoDb)
	w := worker.NewWorker(nc.Conn, historyStore)

	sub, err := w.Subscribe(comm.TopicHistory)
	if err != nil {
		log.Fatalf("Subscribe %s error: %v", comm.TopicHistory, err)
	}
	log.Infof("%s service consuming %s", SERVICE_NAME, comm.TopicHistory)

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
