package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxel-core/internal/config"
	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/mesh"
	"github.com/annel0/voxel-core/internal/observability"
	"github.com/annel0/voxel-core/internal/physics"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// Simulation связывает мир, жидкости, очередь сеток и цикл тиков.
//
// Frame вызывается из одной горутины. Готовые сетки хранятся до следующей
// перестройки того же чанка и заменяют собой загрузку на GPU.
type Simulation struct {
	config   *config.Config
	registry *block.Registry
	world    *world.World
	fluid    *world.FluidSimulator
	meshes   *mesh.TaskQueue
	ticks    *world.TickManager
	logger   *logging.Logger

	collision *physics.CollisionResolver
	raycaster *physics.Raycaster

	meshMu  sync.RWMutex
	current map[vec.ChunkPos]*mesh.ChunkMesh
	applied uint64

	// Номер пометки чанка на момент постановки в очередь
	dispatchMu sync.Mutex
	dispatched map[vec.ChunkPos]uint64
}

// New создаёт симуляцию по конфигурации. Генератор берётся из generators по имени world.generator.
func New(cfg *config.Config, registry *block.Registry, generators *world.GeneratorRegistry) (*Simulation, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = block.NewRegistry()
	}
	if generators == nil {
		generators = world.NewGeneratorRegistry()
	}

	gen := generators.Create(cfg.World.Generator, cfg.World.Seed)
	if gen == nil {
		return nil, fmt.Errorf("неизвестный генератор %q, доступны: %v", cfg.World.Generator, generators.List())
	}

	w := world.NewWorld(world.Config{
		Name:      cfg.World.Name,
		Seed:      cfg.World.Seed,
		MinChunkY: cfg.World.MinChunkY,
		MaxChunkY: cfg.World.MaxChunkY,
	})
	w.SetGenerator(gen)

	fluid := world.NewFluidSimulator(w, registry)
	fluid.SetUpdateInterval(cfg.Fluid.UpdateInterval)

	queue := mesh.NewTaskQueue(mesh.QueueConfig{
		Workers:        cfg.Mesh.Workers,
		ResultCapacity: cfg.Mesh.ResultCapacity,
		OnDrop:         w.MarkChunkDirty,
		Generator: mesh.Config{
			Greedy:           cfg.Mesh.Greedy,
			AmbientOcclusion: cfg.Mesh.AmbientOcclusion,
			FaceCulling:      cfg.Mesh.FaceCulling,
			WaterMesh:        cfg.Mesh.WaterMesh,
		},
	}, registry)

	ticks := world.NewTickManager(world.TickConfig{
		TargetTPS:        cfg.Tick.TargetTPS,
		MaxTicksPerFrame: cfg.Tick.MaxTicksPerFrame,
		SimulationSpeed:  cfg.Tick.SimulationSpeed,
	})

	return &Simulation{
		config:     cfg,
		registry:   registry,
		world:      w,
		fluid:      fluid,
		meshes:     queue,
		ticks:      ticks,
		logger:     logging.GetServerLogger(),
		collision:  physics.NewCollisionResolver(w.GetVoxel, registry),
		raycaster:  physics.NewRaycaster(),
		current:    make(map[vec.ChunkPos]*mesh.ChunkMesh),
		dispatched: make(map[vec.ChunkPos]uint64),
	}, nil
}

// World возвращает мир
func (s *Simulation) World() *world.World { return s.world }

// Fluid возвращает симулятор жидкостей
func (s *Simulation) Fluid() *world.FluidSimulator { return s.fluid }

// MeshQueue возвращает очередь построения сеток
func (s *Simulation) MeshQueue() *mesh.TaskQueue { return s.meshes }

// Ticks возвращает менеджер тиков
func (s *Simulation) Ticks() *world.TickManager { return s.ticks }

// Registry возвращает реестр блоков
func (s *Simulation) Registry() *block.Registry { return s.registry }

// Collision возвращает резолвер столкновений размером с игрока
func (s *Simulation) Collision() *physics.CollisionResolver { return s.collision }

// Preload загружает чанки вокруг центра на радиусе из конфигурации
func (s *Simulation) Preload(center vec.ChunkPos) (int, error) {
	return s.world.PreloadArea(center, s.config.World.PreloadRadius)
}

// Start запускает счёт тиков; до него Frame тиков не выполняет
func (s *Simulation) Start() {
	s.ticks.Start()
}

// Frame продвигает симуляцию на frameTime: выполняет накопившиеся тики,
// отправляет грязные чанки на перестройку и забирает готовые сетки.
// Возвращает число выполненных тиков.
func (s *Simulation) Frame(frameTime time.Duration) int {
	ran := 0
	s.ticks.Update(frameTime, func(tick uint64) {
		ran++
		s.tick(tick)
	})
	s.DispatchRemesh()
	s.CollectMeshes()
	return ran
}

func (s *Simulation) tick(tick uint64) {
	if s.config.Fluid.Enabled {
		s.fluid.Tick(tick)
	}
}

// DispatchRemesh ставит грязные чанки в очередь сеток.
// Чанки, чья прошлая задача ещё не завершилась, остаются грязными до следующего кадра.
func (s *Simulation) DispatchRemesh() int {
	queued := 0
	var retry []vec.ChunkPos

	for _, pos := range s.world.ConsumeDirtyChunks() {
		c := s.world.GetChunk(pos)
		if c == nil {
			continue
		}
		// Номер снимается до копирования: правка во время копии сделает результат устаревшим
		edits := c.Edits()
		err := s.meshes.Enqueue(pos, s.world.ChunkSource(pos), s.world.GetVoxel)
		switch {
		case err == nil:
			s.dispatchMu.Lock()
			s.dispatched[pos] = edits
			s.dispatchMu.Unlock()
			queued++
		case errors.Is(err, mesh.ErrAlreadyQueued):
			retry = append(retry, pos)
		case errors.Is(err, mesh.ErrQueueClosed):
			return queued
		}
	}

	for _, pos := range retry {
		s.world.MarkChunkDirty(pos)
	}
	return queued
}

// CollectMeshes забирает не больше mesh.max_results_per_tick готовых сеток
func (s *Simulation) CollectMeshes() int {
	results := s.meshes.GetCompleted(s.config.Mesh.MaxResultsPerTick)
	if len(results) == 0 {
		return 0
	}

	s.meshMu.Lock()
	defer s.meshMu.Unlock()

	for _, r := range results {
		if !r.Success {
			continue
		}
		// Выгруженный за время построения чанк не получает сетку
		c := s.world.GetChunk(r.Position)
		if c == nil {
			delete(s.current, r.Position)
			s.dispatchMu.Lock()
			delete(s.dispatched, r.Position)
			s.dispatchMu.Unlock()
			continue
		}
		if r.Mesh == nil || r.Mesh.IsEmpty() {
			delete(s.current, r.Position)
		} else {
			s.current[r.Position] = r.Mesh
		}
		// Чанк, изменённый после постановки, остаётся грязным до следующей сетки
		if s.isCurrent(r.Position, c) {
			c.ClearDirty()
		}
		s.applied++
	}
	return len(results)
}

// isCurrent забирает номер пометки, с которым чанк ушёл в очередь, и сравнивает с текущим
func (s *Simulation) isCurrent(pos vec.ChunkPos, c *world.Chunk) bool {
	s.dispatchMu.Lock()
	edits, ok := s.dispatched[pos]
	delete(s.dispatched, pos)
	s.dispatchMu.Unlock()
	return ok && edits == c.Edits()
}

// Mesh возвращает последнюю построенную сетку чанка
func (s *Simulation) Mesh(pos vec.ChunkPos) (*mesh.ChunkMesh, bool) {
	s.meshMu.RLock()
	defer s.meshMu.RUnlock()
	m, ok := s.current[pos]
	return m, ok
}

// MeshCount возвращает число чанков с непустой сеткой
func (s *Simulation) MeshCount() int {
	s.meshMu.RLock()
	defer s.meshMu.RUnlock()
	return len(s.current)
}

// AppliedMeshes возвращает число принятых результатов построения
func (s *Simulation) AppliedMeshes() uint64 {
	s.meshMu.RLock()
	defer s.meshMu.RUnlock()
	return s.applied
}

// MeshMemory возвращает суммарный объём вершин и индексов в байтах
func (s *Simulation) MeshMemory() int {
	s.meshMu.RLock()
	defer s.meshMu.RUnlock()
	total := 0
	for _, m := range s.current {
		total += m.MemoryUsage()
	}
	return total
}

// PlaceBlock ставит блок и будит жидкости вокруг. Жидкость сама становится источником обновлений.
func (s *Simulation) PlaceBlock(x, y, z int64, v voxel.Voxel) bool {
	if !s.world.PlaceBlock(x, y, z, v) {
		return false
	}
	if s.registry.IsFluid(v.TypeID()) {
		s.fluid.ScheduleUpdate(x, y, z)
	}
	s.fluid.NotifyBlockChange(x, y, z)
	return true
}

// BreakBlock ломает блок и будит соседние жидкости
func (s *Simulation) BreakBlock(x, y, z int64) voxel.Voxel {
	old := s.world.BreakBlock(x, y, z)
	if !old.IsAir() {
		s.fluid.NotifyBlockChange(x, y, z)
	}
	return old
}

// Target ищет блок под прицелом из точки глаз в направлении dir
func (s *Simulation) Target(eye, dir mgl64.Vec3, reach float64) physics.RaycastResult {
	return s.raycaster.Cast(eye, dir, reach, s.world.GetVoxel)
}

// Run крутит кадры с интервалом frameInterval до отмены ctx
func (s *Simulation) Run(ctx context.Context, frameInterval time.Duration) error {
	if frameInterval <= 0 {
		frameInterval = s.ticks.TickDuration()
	}

	s.Start()
	defer s.ticks.Stop()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Frame(now.Sub(last))
			last = now
		}
	}
}

// Snapshot собирает счётчики всех подсистем для экспортера метрик
func (s *Simulation) Snapshot() observability.Snapshot {
	ws := s.world.Stats()
	fs := s.fluid.Stats()
	ts := s.ticks.Stats()

	return observability.Snapshot{
		ChunksGenerated: ws.ChunksGenerated,
		ChunksLoaded:    ws.ChunksLoaded,
		ChunksUnloaded:  ws.ChunksUnloaded,
		ChunksResident:  ws.ChunksResident,
		DirtyChunks:     ws.DirtyChunks,
		MeshPending:     s.meshes.PendingCount(),
		MeshCompleted:   s.meshes.CompletedCount(),
		MeshDropped:     s.meshes.DroppedCount(),
		FluidProcessed:  fs.Processed,
		FluidPending:    fs.Pending,
		TicksTotal:      ts.TotalTicks,
		TPS:             float64(ts.CurrentTPS),
		Lagging:         ts.Lagging,
	}
}

// Close останавливает воркеров сеток и выгружает мир
func (s *Simulation) Close() error {
	s.meshes.Shutdown()
	s.ticks.Stop()
	s.world.UnloadAll()

	s.meshMu.Lock()
	applied := s.applied
	s.current = make(map[vec.ChunkPos]*mesh.ChunkMesh)
	s.meshMu.Unlock()

	s.dispatchMu.Lock()
	clear(s.dispatched)
	s.dispatchMu.Unlock()

	s.logger.Info("🛑 Симуляция остановлена, применено сеток: %d", applied)
	return nil
}
