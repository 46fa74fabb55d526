package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/api"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/blocks"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/config"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/persistence"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/sim"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	appConfig := config.Load()

	tuning, err := config.LoadTuning(appConfig.TuningPath)
	if err != nil {
		log.Fatalf("tuning: %v", err)
	}
	log.Printf("config: %d TPS, broadcast every %d ticks, view radius %.0f",
		tuning.TickRateHz, tuning.BroadcastEveryTicks, tuning.ViewRadius)

	store, err := persistence.Open(appConfig.Persistence.DBPath)
	if err != nil {
		log.Fatalf("persistence: %v", err)
	}
	defer store.Close()

	seed := int64(1)
	if v := os.Getenv("WORLD_SEED"); v != "" {
		if s, err := strconv.ParseInt(v, 10, 64); err == nil {
			seed = s
		}
	}

	world := sim.NewWorld(tuning, defaultTerrain(), seed)
	world.SetRepository(store)

	audit := sim.NewAuditLog()
	if err := audit.Start(appConfig.Persistence.AuditPath); err != nil {
		log.Printf("audit log disabled: %v", err)
	} else {
		world.SetAuditLog(audit)
		if appConfig.Persistence.AuditPath != "" {
			log.Printf("audit log: %s", appConfig.Persistence.AuditPath)
		}
	}

	// Restore the building set before anyone connects. Unknown piece
	// types from older versions are skipped, not fatal.
	saved, err := store.LoadBuildings()
	if err != nil {
		log.Printf("building restore failed, starting empty: %v", err)
	}
	restored := 0
	for _, rec := range saved {
		if _, ok := sim.SpawnBuildingFromRecord(world, rec); ok {
			restored++
		} else {
			log.Printf("skipping unrestorable building piece %q", rec.PieceType)
		}
	}
	if restored > 0 {
		log.Printf("restored %d building pieces", restored)
	}

	var engine *sim.Engine
	var server *api.Server
	{
		// The hub is the engine's delta sink, and the hub needs the
		// engine for connect/submit, so wire them in two steps.
		var hubSink hubForward
		engine = sim.NewEngine(world, &hubSink)
		server = api.NewServer(engine, store, appConfig.Server)
		hubSink.hub = server.Hub()
	}

	engine.SetOnTick(func(tick uint64, elapsed time.Duration) {
		api.RecordTick(elapsed)
		if tick%uint64(tuning.TickRateHz) == 0 {
			st := engine.Snapshot()
			api.UpdateWorldGauges(st.Players, st.Entities)
		}
	})

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	engine.Start()

	go func() {
		addr := ":" + strconv.Itoa(appConfig.Server.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Println("server ready")
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	engine.Stop()
	audit.Stop()

	// Final archive after the engine's last save has been queued.
	arch := persistence.WorldArchive{}
	arch.Header.Tick = world.Tick()
	engineSnapshotInto(world, &arch)
	path := persistence.ArchivePath(appConfig.Persistence.ArchiveDir, world.Tick())
	if err := persistence.WriteArchive(path, arch); err != nil {
		log.Printf("final archive failed: %v", err)
	} else {
		log.Printf("final archive: %s", path)
	}
}

// hubForward defers sink resolution so the engine can be constructed
// before the hub exists.
type hubForward struct {
	hub *api.Hub
}

func (f *hubForward) Deliver(clientID string, payload []byte) {
	if f.hub != nil {
		f.hub.Deliver(clientID, payload)
	}
}

// engineSnapshotInto captures archive records from a stopped world.
func engineSnapshotInto(world *sim.World, arch *persistence.WorldArchive) {
	arch.Buildings = world.BuildingRecords()
}

// defaultTerrain builds the flat starter terrain: solid ground at
// height zero with a few water pools near spawn.
func defaultTerrain() blocks.Provider {
	return &blocks.FlatProvider{
		GroundY: 0,
		Pools: map[[2]int]int{
			{40, 40}: 2,
			{41, 40}: 2,
			{40, 41}: 2,
			{41, 41}: 2,
		},
	}
}
