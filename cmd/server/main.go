package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/voxel-core/internal/config"
	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/observability"
	"github.com/annel0/voxel-core/internal/sim"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
		frameRate   = flag.Int("fps", 60, "Частота кадров цикла симуляции")
		statsPeriod = flag.Duration("stats", 30*time.Second, "Период вывода статистики в лог")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Логирование: файл по умолчанию + компонентные логгеры в том же каталоге
	level := logging.ParseLevel(cfg.Logging.Level)
	logging.SetDefaultLevel(level)
	if err := logging.InitDefaultLoggerIn("server", cfg.Logging.Dir); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	logging.GetLoggerManager().Configure(cfg.Logging.Dir, level)
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск ядра воксельного мира %q (генератор %s, seed %d)",
		cfg.World.Name, cfg.World.Generator, cfg.World.Seed)

	if err := run(cfg, time.Second/time.Duration(max(*frameRate, 1)), *statsPeriod); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config, frameInterval, statsPeriod time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === РЕЕСТРЫ ===
	registry := block.NewRegistry()
	if cfg.Blocks.Path != "" {
		n, err := registry.LoadFile(cfg.Blocks.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logging.Warn("Файл блоков %s не найден, используется встроенный набор", cfg.Blocks.Path)
		case err != nil:
			return fmt.Errorf("загрузка блоков: %w", err)
		default:
			logging.Info("🧱 Загружено %d описаний блоков из %s", n, cfg.Blocks.Path)
		}
	}
	logging.Debug("Блоков в реестре: %d, жидкостей: %d", registry.Count(), registry.FluidCount())

	generators := world.NewGeneratorRegistry()
	logging.Debug("Доступные генераторы: %v", generators.List())

	// === СИМУЛЯЦИЯ ===
	simulation, err := sim.New(cfg, registry, generators)
	if err != nil {
		return fmt.Errorf("создание симуляции: %w", err)
	}
	defer simulation.Close()
	worldID := simulation.World().ID().String()

	// === НАБЛЮДАЕМОСТЬ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, worldID)
		if err != nil {
			logging.Warn("Трассировка отключена: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logging.Error("Ошибка остановки трассировки: %v", err)
				}
			}()
		}
	}

	if cfg.Metrics.Enabled {
		exporter := observability.NewMetricsExporter(
			observability.StatsFunc(simulation.Snapshot), prometheus.NewRegistry(), worldID)
		exporter.StartHTTP(fmt.Sprintf(":%d", cfg.Metrics.GetMetricsPort()))
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := exporter.Stop(stopCtx); err != nil {
				logging.Error("Ошибка остановки метрик: %v", err)
			}
		}()
	}

	// === СТАРТОВАЯ ОБЛАСТЬ ===
	start := time.Now()
	loaded, err := simulation.Preload(vec.ChunkPos{})
	if err != nil {
		return fmt.Errorf("предзагрузка: %w", err)
	}
	logging.Info("🌍 Предзагружено %d чанков за %v", loaded, time.Since(start))

	process := observability.NewProcessStats()
	go reportStats(ctx, simulation, process, statsPeriod)

	logging.Info("✅ Симуляция запущена: %d TPS, %d воркеров сеток", cfg.Tick.TargetTPS, cfg.Mesh.Workers)
	err = simulation.Run(ctx, frameInterval)
	if errors.Is(err, context.Canceled) {
		logging.Info("📡 Получен сигнал завершения, остановка...")
		return nil
	}
	return err
}

// reportStats периодически пишет в лог состояние мира и процесса
func reportStats(ctx context.Context, s *sim.Simulation, process *observability.ProcessStats, period time.Duration) {
	if period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.Snapshot()
			logging.Info("📊 чанков %d (грязных %d), сеток %d (%.1f МБ), очередь %d, жидкость %d, TPS %.0f%s",
				snap.ChunksResident, snap.DirtyChunks, s.MeshCount(),
				float64(s.MeshMemory())/1024/1024, snap.MeshPending, snap.FluidPending, snap.TPS,
				lagSuffix(snap.Lagging))
			logging.Info("🖥  %s", process.Summary())
		}
	}
}

func lagSuffix(lagging bool) string {
	if lagging {
		return " ⚠️ отставание"
	}
	return ""
}
