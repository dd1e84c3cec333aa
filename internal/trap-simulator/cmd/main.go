package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	trapSimulator "github.com/ladybugteam/ladybug-backend/internal/trap-simulator"
	mq "github.com/ladybugteam/ladybug-backend/pkg/mqtt"
)

func main() {
	deviceID := flag.String("device-id", "trap1", "unique trap identifier")
	clientID := flag.String("client-id", "trapSim1", "MQTT client ID")
	host := flag.String("host", "localhost", "broker host")
	port := flag.Int("port", 1883, "broker port")
	interval := flag.Duration("interval", 30*time.Second, "publish interval")
	lat := flag.Float64("lat", 15.51848755, "latitude")
	lon := flag.Float64("lon", 121.2739912, "longitude")
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := zap.NewProduction(zap.Fields(zap.String("service", "trap-simulator")))
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := &mq.Config{
		Host:     *host,
		Port:     *port,
		User:     os.Getenv("MQTT_USER"),
		Password: os.Getenv("MQTT_PASSWORD"),
		ClientID: *clientID,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	client, err := mq.NewConn(cfg, ctx, logger)
	if err != nil {
		logger.Fatal("broker connection", zap.Error(err))
	}

	publisher := mq.NewPublisher(client, "ladybug/"+*deviceID+"/status", logger)
	// listen to every farm alert to log the round trip of our own readings
	consumer := mq.NewConsumer(client, "ladybug/alerts/#", nil, logger)

	generator := trapSimulator.NewDataGenerator(*seed)
	sim := trapSimulator.NewTrapSimulator(*deviceID, *lat, *lon, consumer, publisher, generator, logger)

	logger.Info("trap simulator running", zap.String("device_id", *deviceID))
	sim.Start(ctx, *interval)
}
