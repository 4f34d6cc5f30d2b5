package main

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/joho/godotenv"

	"github.com/huber0203/shioaji-gateway/internal/api"
	"github.com/huber0203/shioaji-gateway/internal/broker"
	"github.com/huber0203/shioaji-gateway/internal/config"
	"github.com/huber0203/shioaji-gateway/internal/guard"
	"github.com/huber0203/shioaji-gateway/internal/notify"
	"github.com/huber0203/shioaji-gateway/internal/quotes"
	"github.com/huber0203/shioaji-gateway/internal/session"
	"github.com/huber0203/shioaji-gateway/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("configs/app.yaml")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	setupLog(cfg.Log.File)
	logHostInfo()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))

	st, err := store.Open(cfg.Store.Sqlite.Path)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("store close error: %v", err)
		}
	}()

	notifier := notify.New(
		cfg.Notify.Webhook,
		cfg.Notify.Secret,
		time.Duration(cfg.Notify.TimeoutMs)*time.Millisecond,
		time.Duration(cfg.Notify.CooldownSec)*time.Second,
	)

	bridgeURL := cfg.Broker.BridgeURL
	bridgeTimeout := time.Duration(cfg.Broker.TimeoutMs) * time.Millisecond

	api.RegisterRoutes(h, api.Deps{
		Sessions: session.NewManager(),
		NewClient: func(simulation bool) broker.Client {
			return broker.NewBridge(bridgeURL, simulation, broker.WithTimeout(bridgeTimeout))
		},
		Guard:         guard.New(cfg.Guard.TrafficRatio, uint64(cfg.Guard.MemoryLimitMB)<<20),
		Fetcher:       quotes.New(cfg.Quotes.BatchSize, time.Duration(cfg.Quotes.BatchIntervalMs)*time.Millisecond),
		Store:         st,
		Notifier:      notifier,
		DefaultCAPath: cfg.Broker.DefaultCAPath,
	})

	log.Printf("server starting on %s (log.level=%s)", addr, cfg.Log.Level)
	if err := h.Run(); err != nil {
		log.Fatalf("server run error: %v", err)
	}
}

func setupLog(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("open log file %s: %v", path, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}

func logHostInfo() {
	hostname, err := os.Hostname()
	if err != nil {
		log.Printf("failed to get hostname: %v", err)
		return
	}
	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		log.Printf("service running on host: %s", hostname)
		return
	}
	log.Printf("service running on host: %s, IP: %s", hostname, addrs[0])
}
