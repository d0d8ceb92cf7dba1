package world

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
)

// DefaultFluidUpdateInterval: жидкости обновляются раз в 5 базовых тиков (4 раза в секунду при 20 TPS)
const DefaultFluidUpdateInterval = 5

// horizontalDirs: порядок растекания: -X, +X, -Z, +Z
var horizontalDirs = [4][2]int64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

type fluidUpdate struct {
	pos   vec.Vec3
	fluid block.BlockID
	level uint8
}

// FluidStats: счётчики симулятора
type FluidStats struct {
	Bursts       uint64 // выполненных пакетов обновлений
	Processed    uint64 // обработанных клеток
	CellsChanged uint64 // записанных вокселей
	Pending      int
}

// FluidSimulator: клеточный автомат растекания жидкостей.
//
// Работает синхронно в потоке симуляции. Клетки одного пакета обрабатываются
// в порядке постановки в очередь, повторы позиции в пакете пропускаются.
// Клетки, запланированные во время пакета, попадают в следующий.
// Если api реализует block.LoadedVoxelAPI, незагруженные чанки считаются преградой.
type FluidSimulator struct {
	api      block.VoxelAPI
	loaded   block.LoadedVoxelAPI
	registry *block.Registry
	interval uint64
	logger   *logging.Logger

	mu      sync.Mutex
	pending []fluidUpdate

	bursts       atomic.Uint64
	processed    atomic.Uint64
	cellsChanged atomic.Uint64
}

// NewFluidSimulator создаёт симулятор поверх доступа к вокселям
func NewFluidSimulator(api block.VoxelAPI, registry *block.Registry) *FluidSimulator {
	loaded, _ := api.(block.LoadedVoxelAPI)
	return &FluidSimulator{
		api:      api,
		loaded:   loaded,
		registry: registry,
		interval: DefaultFluidUpdateInterval,
		logger:   logging.GetFluidLogger(),
	}
}

// SetUpdateInterval задаёт период обновлений в базовых тиках (не меньше 1)
func (fs *FluidSimulator) SetUpdateInterval(ticks int) {
	fs.interval = uint64(max(ticks, 1))
}

// UpdateInterval возвращает период обновлений
func (fs *FluidSimulator) UpdateInterval() int {
	return int(fs.interval)
}

// Tick вызывается на каждом базовом тике; пакет выполняется раз в UpdateInterval тиков.
// Возвращает число обработанных клеток.
func (fs *FluidSimulator) Tick(tick uint64) int {
	if tick%fs.interval != 0 {
		return 0
	}
	return fs.ProcessUpdates()
}

// ScheduleUpdate ставит клетку в очередь, если в ней жидкость
func (fs *FluidSimulator) ScheduleUpdate(x, y, z int64) {
	v := fs.api.GetVoxel(x, y, z)
	id := v.TypeID()
	if !fs.registry.IsFluid(id) {
		return
	}

	fs.mu.Lock()
	fs.pending = append(fs.pending, fluidUpdate{
		pos:   vec.Vec3{X: x, Y: y, Z: z},
		fluid: id,
		level: v.FluidLevel(),
	})
	fs.mu.Unlock()
}

// NotifyBlockChange планирует обновление жидкостей вокруг изменённого блока
func (fs *FluidSimulator) NotifyBlockChange(x, y, z int64) {
	p := vec.Vec3{X: x, Y: y, Z: z}
	for _, n := range p.Neighbors6() {
		fs.ScheduleUpdate(n.X, n.Y, n.Z)
	}
}

// PendingCount возвращает размер очереди
func (fs *FluidSimulator) PendingCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.pending)
}

// ProcessUpdates забирает очередь и обрабатывает её одним пакетом.
// Возвращает число обработанных (уникальных) клеток.
func (fs *FluidSimulator) ProcessUpdates() int {
	fs.mu.Lock()
	batch := fs.pending
	fs.pending = nil
	fs.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}
	fs.bursts.Inc()

	changedBefore := fs.cellsChanged.Load()
	seen := make(map[vec.Vec3]struct{}, len(batch))
	processed := 0
	for _, u := range batch {
		if _, dup := seen[u.pos]; dup {
			continue
		}
		seen[u.pos] = struct{}{}
		fs.simulate(u)
		processed++
	}
	fs.processed.Add(uint64(processed))
	fs.logger.Debug("💧 пакет жидкостей: %d клеток (повторов %d), изменено %d, в очереди %d",
		processed, len(batch)-processed, fs.cellsChanged.Load()-changedBefore, fs.PendingCount())
	return processed
}

func (fs *FluidSimulator) simulate(u fluidUpdate) {
	x, y, z := u.pos.X, u.pos.Y, u.pos.Z
	current := fs.api.GetVoxel(x, y, z)
	if current.TypeID() != u.fluid {
		return
	}
	props := fs.registry.Get(u.fluid)
	level := current.FluidLevel()

	// Течение вниз: безусловно и без затухания
	if below, ok := fs.targetSafe(x, y-1, z); ok && fs.canFlowInto(below) {
		fs.place(x, y-1, z, u.fluid, 0)
		return
	}

	if level < props.FluidMaxDistance {
		fs.spreadHorizontal(x, y, z, u.fluid, level+1)
	}

	if level > 0 && !fs.hasFeed(x, y, z, u.fluid, level) {
		if fs.api.SetVoxel(x, y, z, voxel.Air) {
			fs.cellsChanged.Inc()
			// Соседи, питавшиеся от этой клетки, должны проверить себя
			fs.NotifyBlockChange(x, y, z)
		}
	}
}

func (fs *FluidSimulator) spreadHorizontal(x, y, z int64, fluid block.BlockID, newLevel uint8) {
	for _, d := range horizontalDirs {
		nx, nz := x+d[0], z+d[1]
		neighbor, ok := fs.targetSafe(nx, y, nz)
		if !ok {
			continue
		}

		switch {
		case fs.canFlowInto(neighbor):
			fs.place(nx, y, nz, fluid, newLevel)
		case neighbor.TypeID() == fluid && neighbor.FluidLevel() > newLevel:
			// Найден более короткий путь от источника
			fs.place(nx, y, nz, fluid, newLevel)
		}
	}
}

func (fs *FluidSimulator) place(x, y, z int64, fluid block.BlockID, level uint8) {
	if !fs.api.SetVoxel(x, y, z, voxel.NewFull(fluid, 0, 0, level)) {
		return
	}
	fs.cellsChanged.Inc()
	fs.ScheduleUpdate(x, y, z)
}

// targetSafe читает клетку, куда может течь жидкость. false: чанк не загружен, течь нельзя.
func (fs *FluidSimulator) targetSafe(x, y, z int64) (voxel.Voxel, bool) {
	if fs.loaded == nil {
		return fs.api.GetVoxel(x, y, z), true
	}
	return fs.loaded.GetVoxelSafe(x, y, z)
}

// canFlowInto: воздух или нетвёрдый нежидкий блок
func (fs *FluidSimulator) canFlowInto(target voxel.Voxel) bool {
	if target.IsAir() {
		return true
	}
	p := fs.registry.Get(target.TypeID())
	return !p.IsSolid && !p.IsFluid
}

// hasFeed: та же жидкость сверху или горизонтальный сосед с меньшим уровнем
func (fs *FluidSimulator) hasFeed(x, y, z int64, fluid block.BlockID, level uint8) bool {
	if fs.api.GetVoxel(x, y+1, z).TypeID() == fluid {
		return true
	}
	for _, d := range horizontalDirs {
		n := fs.api.GetVoxel(x+d[0], y, z+d[1])
		if n.TypeID() == fluid && n.FluidLevel() < level {
			return true
		}
	}
	return false
}

// Stats возвращает счётчики симулятора
func (fs *FluidSimulator) Stats() FluidStats {
	return FluidStats{
		Bursts:       fs.bursts.Load(),
		Processed:    fs.processed.Load(),
		CellsChanged: fs.cellsChanged.Load(),
		Pending:      fs.PendingCount(),
	}
}
