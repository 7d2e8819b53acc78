// Package main provides the spell engine server: it loads content, populates
// one map, runs the scheduler loop, and exposes a gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/spellcore/internal/config"
	"github.com/cory-johannsen/spellcore/internal/game/ai"
	"github.com/cory-johannsen/spellcore/internal/game/cast"
	"github.com/cory-johannsen/spellcore/internal/game/dice"
	"github.com/cory-johannsen/spellcore/internal/game/persist"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/game/world"
	"github.com/cory-johannsen/spellcore/internal/observability"
	"github.com/cory-johannsen/spellcore/internal/scripting"
	"github.com/cory-johannsen/spellcore/internal/server"
	"github.com/cory-johannsen/spellcore/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	var src dice.Source
	if cfg.Engine.Seed == 0 {
		src = dice.NewCryptoSource()
	} else {
		src = dice.NewSeededSource(cfg.Engine.Seed)
	}
	roller := dice.NewLoggedRoller(src, logger)

	logger.Info("starting spell server",
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.Uint64("seed", cfg.Engine.Seed),
	)

	// Load content
	contentStart := time.Now()
	spells, err := spell.LoadDirectory(cfg.Content.SpellsDir)
	if err != nil {
		logger.Fatal("loading spells", zap.Error(err))
	}
	factions, err := spell.LoadFactions(cfg.Content.FactionsFile)
	if err != nil {
		logger.Fatal("loading factions", zap.Error(err))
	}
	spawns, err := world.LoadSpawns(cfg.Content.SpawnsFile)
	if err != nil {
		logger.Fatal("loading spawns", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("spells", spells.Len()),
		zap.Int("templates", len(spawns.Templates)),
		zap.Int("spawns", len(spawns.Spawns)),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Scheduler and world
	epochMs := time.Now().UnixMilli()
	q := scheduler.NewQueue(scheduler.NewWallClock(), logger)
	clock := world.NewGameClock(world.ClockConfig{
		StartHour:      cfg.World.StartHour,
		HourDurationMs: cfg.World.HourDuration.Milliseconds(),
		DayStartHour:   cfg.World.DayStartHour,
		NightStartHour: cfg.World.NightStartHour,
	}, q)
	clock.Subscribe(func(h world.GameHour) {
		logger.Info("game hour", zap.Stringer("hour", h), zap.Bool("daytime", clock.IsDaytime()))
	})
	clock.Start()

	m := world.NewMap(world.Config{
		ID:               cfg.World.MapID,
		VisibilityRadius: cfg.World.VisibilityRadius,
	}, q, clock, spells, factions, logger)

	engine := cast.NewEngine(cast.Config{
		ProjectileStepMs:     cfg.Engine.ProjectileStepMs,
		ProjectileFinalizeMs: cfg.Engine.ProjectileFinalizeMs,
		FocusRadius:          cfg.Engine.FocusRadius,
	}, roller, logger)
	engine.AddListener(observability.NewCastLog(logger))

	m.OnEnter(func(u *unit.Unit) {
		engine.Attach(u)
		if u.IsPlayer() {
			if err := m.AttachSession(u.GUID(), world.NewLogSession(u.GUID(), logger)); err != nil {
				logger.Warn("attaching session", zap.Uint64("unit", u.GUID()), zap.Error(err))
			}
		}
	})

	// Scripting
	var scriptMgr *scripting.Manager
	if cfg.Content.ScriptsDir != "" {
		scriptMgr = scripting.NewManager(roller, logger, cfg.Engine.ScriptInstructionLimit)
		if err := scriptMgr.LoadDir(cfg.Content.ScriptsDir); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		scriptMgr.BindWorld(m)
		engine.SetScriptHandler(scriptMgr)
		engine.AddListener(scriptMgr)
		defer scriptMgr.Close()
	}

	// NPC planning
	var brain *ai.Brain
	if cfg.Content.AIDir != "" {
		domains, err := ai.LoadDomains(cfg.Content.AIDir)
		if err != nil {
			logger.Fatal("loading ai domains", zap.Error(err))
		}
		reg := ai.NewRegistry()
		for _, d := range domains {
			if err := d.CheckSpells(func(id uint32) bool { _, ok := spells.Get(id); return ok }); err != nil {
				logger.Fatal("checking ai domain", zap.Error(err))
			}
			if err := reg.Register(d, scriptMgr); err != nil {
				logger.Fatal("registering ai domain", zap.Error(err))
			}
		}
		brain = ai.NewBrain(m, reg, ai.BrainConfig{
			TickMs:          cfg.Engine.AITickMs,
			AwarenessRadius: cfg.Engine.AIAwarenessRadius,
		}, logger)
		logger.Info("ai domains loaded", zap.Int("domains", reg.Len()))
	}

	lifecycle := server.NewLifecycle(logger)

	// Cooldown persistence
	var cooldowns *persist.CooldownSync
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		repo := postgres.NewCooldownRepository(pool.DB())
		cooldowns = persist.NewCooldownSync(q, repo, epochMs, logger)
		cooldowns.Attach(m)

		lifecycle.Add("postgres", server.NewLoopService(func(ctx context.Context) error {
			defer pool.Close()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
					continue
				}
				if n, err := repo.PurgeExpired(ctx, time.Now().UnixMilli()); err != nil {
					logger.Warn("purging expired cooldowns", zap.Error(err))
				} else if n > 0 {
					logger.Debug("purged expired cooldowns", zap.Int64("rows", n))
				}
			}
		}))
	}

	units, err := spawns.Populate(m, logger)
	if err != nil {
		logger.Fatal("populating map", zap.Error(err))
	}
	logger.Info("map populated",
		zap.Uint32("map", m.ID()),
		zap.Int("units", len(units)),
	)

	if brain != nil {
		brain.Start()
	}

	loop := server.NewLoopService(q.Run)
	lifecycle.Add("scheduler", &server.FuncService{
		StartFn: loop.Start,
		StopFn: func() {
			loop.Stop()
			if brain != nil {
				brain.Stop()
			}
			// The loop has returned, so this goroutine owns the map now.
			for _, u := range m.Units() {
				m.Remove(u.GUID())
			}
			if cooldowns != nil {
				cooldowns.Wait()
			}
		},
	})

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	lifecycle.SetHealth(healthSrv)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC health listening",
				zap.String("addr", lis.Addr().String()),
			)
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			grpcServer.GracefulStop()
		},
	})

	logger.Info("spell server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
