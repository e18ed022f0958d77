package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/honeypot/backend/internal/config"
	"github.com/zhouzirui/honeypot/backend/internal/model/persona"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Addr: "127.0.0.1:0"},
		Store:  config.StoreConfig{Driver: config.DriverMemory},
		Engine: config.EngineConfig{PersonaID: persona.DefaultID, HistoryLimit: config.MaxHistoryLimit},
	}
}

func TestRunReturnsStartupErrors(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unsupported store": func(c *config.Config) { c.Store.Driver = "cassandra" },
		"unknown persona":   func(c *config.Config) { c.Engine.PersonaID = "nobody" },
		"redis unreachable": func(c *config.Config) { c.Redis.URL = "redis://127.0.0.1:1/0" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(cfg)
			assert.Error(t, run(context.Background(), cfg, zerolog.Nop()))
		})
	}
}

func TestRunStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, run(ctx, testConfig(), zerolog.Nop()))
}
