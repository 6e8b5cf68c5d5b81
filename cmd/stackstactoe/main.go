package main

import (
	"log"

	"stackstactoe/config"
	"stackstactoe/internal/chain"
	"stackstactoe/internal/db"
	"stackstactoe/internal/game"
	"stackstactoe/internal/nats"
	"stackstactoe/internal/server"
	temporal "stackstactoe/internal/workflow"

	"github.com/benbjohnson/clock"
	"go.temporal.io/sdk/client"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	conn, err := db.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	genesis, err := cfg.Chain.GenesisTime()
	if err != nil {
		log.Fatalf("Failed to read chain config: %v", err)
	}
	blocks := chain.NewClockSource(clock.New(), genesis, cfg.Chain.BlockInterval, cfg.Chain.StartHeight)

	ledger := game.NewLedger(db.NewStore(conn), blocks, game.Options{
		Admin:             cfg.Game.Admin,
		MinBet:            cfg.Game.MinBet,
		MoveTimeoutBlocks: cfg.Game.MoveTimeoutBlocks,
		PlatformFeeBps:    cfg.Game.PlatformFeeBps,
		BlockInterval:     blocks.Interval(),
	})

	natsConn, js, err := nats.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	if err := nats.ConfigureStream(js, &cfg.NATS.Stream); err != nil {
		log.Fatalf("Failed to configure JetStream: %v", err)
	}
	ledger.SetNotifier(nats.NewPublisher(js))

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	temporal.StartWorker(c, &cfg.Temporal, ledger)
	ledger.SetWatcher(temporal.NewScheduler(c, &cfg.Temporal))

	server.StartServer(cfg, server.New(ledger, nats.NewSubscriber(natsConn)))
}
