package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helix-engine/helix/internal/core/archetype"
	"github.com/helix-engine/helix/internal/core/components"
	"github.com/helix-engine/helix/internal/core/observability/log"
	"github.com/helix-engine/helix/internal/core/systems"
	"github.com/helix-engine/helix/internal/core/world"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml world config")
	tickRate := flag.Int("tick-rate", 60, "simulation ticks per second")
	entities := flag.Int("entities", 100, "entities to spawn at startup")
	flag.Parse()

	if err := run(*configPath, *tickRate, *entities); err != nil {
		fmt.Fprintln(os.Stderr, "sim:", err)
		os.Exit(1)
	}
}

func run(configPath string, tickRate, entities int) error {
	cfg := world.DefaultConfig()
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		cfg, err = world.LoadYAML(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	logger := log.Provide()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := world.New(cfg, logger)
	if err := w.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize world: %w", err)
	}
	defer func() { _ = w.Destroy() }()

	if err := w.RegisterSystem(ctx, systems.NewMovement(10, logger)); err != nil {
		return err
	}
	if err := w.RegisterSystem(ctx, systems.NewRegen(20, 1.0, logger)); err != nil {
		return err
	}

	if err := registerArchetypes(); err != nil {
		return fmt.Errorf("register archetypes: %w", err)
	}
	for i := 0; i < entities; i++ {
		if _, err := w.CreateEntityFromArchetype("wanderer"); err != nil {
			return fmt.Errorf("spawn entity %d: %w", i, err)
		}
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	dt := 1.0 / float64(tickRate)
	ticker := time.NewTicker(time.Duration(float64(time.Second) * dt))
	defer ticker.Stop()

	logger.Info("simulation started",
		log.Int("tick_rate", tickRate),
		log.Int("entities", w.EntityCount()))

	report := time.NewTicker(5 * time.Second)
	defer report.Stop()

	for {
		select {
		case <-stopCh:
			stats := w.Stats()
			logger.Info("simulation stopped",
				log.Uint64("ticks", stats.Ticks),
				log.Int("entities", stats.EntitiesLive))
			return nil
		case <-report.C:
			stats := w.Stats()
			cache := w.CacheStats()
			logger.Info("tick report",
				log.Uint64("ticks", stats.Ticks),
				log.Int("entities", stats.EntitiesLive),
				log.Uint64("cache_hits", cache.Hits),
				log.Uint64("cache_misses", cache.Misses))
		case <-ticker.C:
			if err := w.Update(dt); err != nil {
				logger.Error("tick failed", log.Error(err))
			}
		}
	}
}

func registerArchetypes() error {
	health := components.NewHealth(100, 25)
	health.SetRegenRates(2, 5)

	velocity := components.NewVelocity()
	velocity.Set(1, 0, 0)
	velocity.SetMaxSpeed(10)

	_, err := archetype.NewBuilder("wanderer").
		Description("mobile unit with passive regen").
		DefaultComponent(health).
		DefaultComponent(components.NewPosition(0, 0, 0)).
		DefaultComponent(velocity).
		BuildAndRegister()
	return err
}
