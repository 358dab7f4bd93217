// Command gate runs the TCP gateway: it binds the listening address, connects
// the downstream Redis and NATS clients, and serves client connections until
// SIGINT or SIGTERM.
//
// Grounded on the source's gate/src/main.rs: reads server_id, a NATS URL, and
// a Redis URL from the environment, wires them into the global app, and calls
// app().start(). This rewrite passes the same settings through app.Config
// instead of reaching into process-wide globals.
package main

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tcpgate/app"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic("gate: failed to build logger: " + err.Error())
	}
	defer log.Sync()

	cfg := app.Config{
		ServerID:          envInt("server_id", 0),
		Addr:              net.JoinHostPort(envString("ADDR", "127.0.0.1"), envString("PORT", "8001")),
		RedisAddrs:        envList("REDIS_ADDRS", []string{"127.0.0.1:6379"}),
		NATSURLs:          envList("NATS_URLS", []string{"nats://127.0.0.1:4222"}),
		HeartbeatInterval: envSeconds("HEARTBEAT_INTERVAL_SECONDS", 20*time.Second),
	}

	container := app.New(cfg, log)
	registerHandlers(container)

	if err := container.Start(context.Background()); err != nil {
		log.Fatal("gate: exited with error", zap.Error(err))
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
