package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/observability"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
)

var (
	// ErrOutOfBounds: координаты вне вертикального диапазона или горизонтальных границ мира
	ErrOutOfBounds = errors.New("координаты вне границ мира")
	// ErrChunkExists: позиция уже занята загруженным чанком
	ErrChunkExists = errors.New("чанк уже загружен")
)

// Config: параметры мира
type Config struct {
	Name          string
	Seed          int64
	MinChunkY     int64
	MaxChunkY     int64
	GeneratorType string
}

// DefaultConfig возвращает параметры мира по умолчанию
func DefaultConfig() Config {
	return Config{
		Name:          "world",
		MinChunkY:     -4,
		MaxChunkY:     16,
		GeneratorType: "superflat",
	}
}

// Stats: счётчики мира
type Stats struct {
	ChunksGenerated uint64
	ChunksLoaded    uint64
	ChunksUnloaded  uint64
	ChunksResident  int
	DirtyChunks     int
}

// World хранит загруженные чанки и разграничивает параллельный доступ к ним.
//
// Чтение вокселей берёт разделяемую блокировку, создание и изменение чанков: эксклюзивную.
// Множество грязных чанков защищено отдельным мьютексом.
type World struct {
	id     uuid.UUID
	config Config
	tracer trace.Tracer
	logger *logging.Logger

	mu        sync.RWMutex
	chunks    map[vec.ChunkPos]*Chunk
	generator Generator

	dirtyMu sync.Mutex
	dirty   map[vec.ChunkPos]struct{}

	chunksGenerated atomic.Uint64
	chunksLoaded    atomic.Uint64
	chunksUnloaded  atomic.Uint64
}

// NewWorld создаёт пустой мир. Генератор выбирается по config.GeneratorType.
func NewWorld(config Config) *World {
	w := &World{
		id:     uuid.New(),
		config: config,
		tracer: observability.Tracer("world"),
		logger: logging.GetWorldLogger(),
		chunks: make(map[vec.ChunkPos]*Chunk),
		dirty:  make(map[vec.ChunkPos]struct{}),
	}
	if config.GeneratorType != "" {
		w.SetGenerator(NewGenerator(config.GeneratorType, config.Seed))
	}
	w.logger.Info("🌍 Мир %q создан (id=%s, seed=%d, chunk Y %d..%d)",
		config.Name, w.id, config.Seed, config.MinChunkY, config.MaxChunkY)
	return w
}

// ID возвращает уникальный идентификатор экземпляра мира
func (w *World) ID() uuid.UUID { return w.id }

// Config возвращает параметры мира
func (w *World) Config() Config { return w.config }

// Seed возвращает сид мира
func (w *World) Seed() int64 { return w.config.Seed }

// SetGenerator устанавливает генератор для новых чанков
func (w *World) SetGenerator(g Generator) {
	if g != nil {
		g.Initialize()
	}
	w.mu.Lock()
	w.generator = g
	w.mu.Unlock()
}

// Generator возвращает текущий генератор
func (w *World) Generator() Generator {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.generator
}

// IsValidChunkY проверяет вертикальный диапазон чанков
func (w *World) IsValidChunkY(cy int64) bool {
	return cy >= w.config.MinChunkY && cy <= w.config.MaxChunkY
}

func (w *World) isValidChunk(pos vec.ChunkPos) bool {
	return w.IsValidChunkY(pos.Y) && pos.IsValidXZ()
}

// LoadChunk возвращает чанк, создавая и генерируя его при первом обращении.
func (w *World) LoadChunk(pos vec.ChunkPos) (*Chunk, error) {
	if !w.isValidChunk(pos) {
		return nil, fmt.Errorf("load chunk %s: %w", pos, ErrOutOfBounds)
	}

	w.mu.RLock()
	c, exists := w.chunks[pos]
	w.mu.RUnlock()
	if exists {
		return c, nil
	}

	w.mu.Lock()
	// Проверяем еще раз: чанк мог создать другой поток
	if c, exists = w.chunks[pos]; exists {
		w.mu.Unlock()
		return c, nil
	}
	c = NewChunk(pos)
	w.generateLocked(c)
	w.chunks[pos] = c
	w.mu.Unlock()

	w.chunksLoaded.Inc()
	w.markLoaded(pos)
	return c, nil
}

// generateLocked заполняет чанк генератором. Вызывается под эксклюзивной блокировкой.
func (w *World) generateLocked(c *Chunk) {
	if w.generator == nil || !w.generator.ShouldGenerate(c.Position) {
		return
	}

	_, span := w.tracer.Start(context.Background(), "world.generate_chunk",
		trace.WithAttributes(
			attribute.String("generator", w.generator.TypeName()),
			attribute.Int64("chunk.x", c.Position.X),
			attribute.Int64("chunk.y", c.Position.Y),
			attribute.Int64("chunk.z", c.Position.Z),
		))
	defer span.End()

	w.generator.Generate(c)
	c.SetState(StateLoaded)
	w.chunksGenerated.Inc()
	w.logger.Trace("чанк %s сгенерирован (%s)", c.Position, w.generator.TypeName())
}

// markLoaded помечает новый чанк и его загруженных соседей грязными:
// грани на границе с новым чанком нужно отсечь заново.
func (w *World) markLoaded(pos vec.ChunkPos) {
	w.MarkChunkDirty(pos)
	for _, d := range vec.Directions6 {
		w.MarkChunkDirty(pos.Offset(d.X, d.Y, d.Z))
	}
}

// PreloadArea загружает чанки в квадрате радиуса radius вокруг center,
// пропуская высоты, которые генератор не заполняет. Возвращает число загруженных чанков.
func (w *World) PreloadArea(center vec.ChunkPos, radius int) (int, error) {
	gen := w.Generator()
	loaded := 0
	r := int64(radius)
	for x := center.X - r; x <= center.X+r; x++ {
		for z := center.Z - r; z <= center.Z+r; z++ {
			for y := w.config.MinChunkY; y <= w.config.MaxChunkY; y++ {
				pos := vec.ChunkPos{X: x, Y: y, Z: z}
				if gen != nil && !gen.ShouldGenerate(pos) {
					continue
				}
				if _, err := w.LoadChunk(pos); err != nil {
					return loaded, err
				}
				loaded++
			}
		}
	}
	return loaded, nil
}

// GetChunk возвращает загруженный чанк или nil
func (w *World) GetChunk(pos vec.ChunkPos) *Chunk {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chunks[pos]
}

// HasChunk проверяет, загружен ли чанк
func (w *World) HasChunk(pos vec.ChunkPos) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.chunks[pos]
	return ok
}

// UnloadChunk выгружает чанк и освобождает его память
func (w *World) UnloadChunk(pos vec.ChunkPos) bool {
	w.mu.Lock()
	c, ok := w.chunks[pos]
	if ok {
		delete(w.chunks, pos)
		c.SetState(StateUnloading)
		c.Deallocate()
	}
	w.mu.Unlock()

	if !ok {
		return false
	}
	w.dirtyMu.Lock()
	delete(w.dirty, pos)
	w.dirtyMu.Unlock()

	w.chunksUnloaded.Inc()
	return true
}

// InsertChunk вставляет готовый чанк. Занятая позиция даёт ErrChunkExists.
func (w *World) InsertChunk(pos vec.ChunkPos, c *Chunk) error {
	if c == nil {
		return fmt.Errorf("insert chunk %s: nil chunk", pos)
	}
	if !w.isValidChunk(pos) {
		return fmt.Errorf("insert chunk %s: %w", pos, ErrOutOfBounds)
	}

	w.mu.Lock()
	if _, exists := w.chunks[pos]; exists {
		w.mu.Unlock()
		return fmt.Errorf("insert chunk %s: %w", pos, ErrChunkExists)
	}
	c.Position = pos
	c.Allocate()
	w.chunks[pos] = c
	w.mu.Unlock()

	w.chunksLoaded.Inc()
	w.markLoaded(pos)
	return nil
}

// RemoveChunk извлекает чанк из мира, не освобождая память, и передаёт его вызывающему
func (w *World) RemoveChunk(pos vec.ChunkPos) (*Chunk, bool) {
	w.mu.Lock()
	c, ok := w.chunks[pos]
	if ok {
		delete(w.chunks, pos)
	}
	w.mu.Unlock()

	if ok {
		w.dirtyMu.Lock()
		delete(w.dirty, pos)
		w.dirtyMu.Unlock()
	}
	return c, ok
}

// GetVoxel возвращает воксель; для незагруженных чанков и вне границ: воздух.
func (w *World) GetVoxel(x, y, z int64) voxel.Voxel {
	v, _ := w.GetVoxelSafe(x, y, z)
	return v
}

// GetVoxelSafe возвращает воксель и false, если чанк не загружен или координаты вне мира
func (w *World) GetVoxelSafe(x, y, z int64) (voxel.Voxel, bool) {
	if !vec.IsValidWorldXZ(x, z) {
		return voxel.Air, false
	}
	p := vec.Vec3{X: x, Y: y, Z: z}
	pos := p.ChunkPos()
	if !w.IsValidChunkY(pos.Y) {
		return voxel.Air, false
	}
	lx, ly, lz := p.Local()

	w.mu.RLock()
	defer w.mu.RUnlock()

	c, ok := w.chunks[pos]
	if !ok {
		return voxel.Air, false
	}
	return c.Get(lx, ly, lz), true
}

// SetVoxel записывает воксель, загружая чанк при необходимости.
// Возвращает false только для координат вне границ мира.
func (w *World) SetVoxel(x, y, z int64, v voxel.Voxel) bool {
	_, ok := w.modify(x, y, z, true, func(voxel.Voxel) (voxel.Voxel, bool) {
		return v, true
	})
	return ok
}

// BreakBlock заменяет блок воздухом и возвращает прежний воксель.
// Если там уже воздух (или чанк не загружен), ничего не меняется и возвращается воздух.
func (w *World) BreakBlock(x, y, z int64) voxel.Voxel {
	old, ok := w.modify(x, y, z, false, func(old voxel.Voxel) (voxel.Voxel, bool) {
		return voxel.Air, !old.IsAir()
	})
	if !ok {
		return voxel.Air
	}
	return old
}

// PlaceBlock ставит блок только на место воздуха
func (w *World) PlaceBlock(x, y, z int64, v voxel.Voxel) bool {
	_, ok := w.modify(x, y, z, true, func(old voxel.Voxel) (voxel.Voxel, bool) {
		return v, old.IsAir()
	})
	return ok
}

// modify атомарно читает и заменяет воксель под эксклюзивной блокировкой.
// apply возвращает новое значение и признак, нужно ли его записывать.
// После записи грязными помечаются чанк и соседи, делящие с вокселем грань.
func (w *World) modify(x, y, z int64, load bool, apply func(old voxel.Voxel) (voxel.Voxel, bool)) (voxel.Voxel, bool) {
	if !vec.IsValidWorldXZ(x, z) {
		return voxel.Air, false
	}
	p := vec.Vec3{X: x, Y: y, Z: z}
	pos := p.ChunkPos()
	if !w.IsValidChunkY(pos.Y) {
		return voxel.Air, false
	}
	if load {
		if _, err := w.LoadChunk(pos); err != nil {
			return voxel.Air, false
		}
	}
	lx, ly, lz := p.Local()

	w.mu.Lock()
	c, ok := w.chunks[pos]
	if !ok {
		w.mu.Unlock()
		return voxel.Air, false
	}
	old := c.Get(lx, ly, lz)
	next, write := apply(old)
	if write {
		c.Set(lx, ly, lz, next)
	}
	w.mu.Unlock()

	if !write {
		return old, false
	}

	w.MarkChunkDirty(pos)
	w.markBorderNeighbors(pos, lx, ly, lz)
	return old, true
}

func (w *World) markBorderNeighbors(pos vec.ChunkPos, lx, ly, lz int) {
	switch lx {
	case 0:
		w.MarkChunkDirty(pos.Offset(-1, 0, 0))
	case voxel.ChunkMask:
		w.MarkChunkDirty(pos.Offset(1, 0, 0))
	}
	switch ly {
	case 0:
		w.MarkChunkDirty(pos.Offset(0, -1, 0))
	case voxel.ChunkMask:
		w.MarkChunkDirty(pos.Offset(0, 1, 0))
	}
	switch lz {
	case 0:
		w.MarkChunkDirty(pos.Offset(0, 0, -1))
	case voxel.ChunkMask:
		w.MarkChunkDirty(pos.Offset(0, 0, 1))
	}
}

// MarkChunkDirty добавляет загруженный чанк в множество грязных. Незагруженные позиции игнорируются.
func (w *World) MarkChunkDirty(pos vec.ChunkPos) {
	w.mu.RLock()
	c, ok := w.chunks[pos]
	w.mu.RUnlock()
	if !ok {
		return
	}
	c.MarkDirty()

	w.dirtyMu.Lock()
	w.dirty[pos] = struct{}{}
	w.dirtyMu.Unlock()
}

// HasDirtyChunks проверяет, есть ли чанки, ожидающие перестроения сетки
func (w *World) HasDirtyChunks() bool {
	w.dirtyMu.Lock()
	defer w.dirtyMu.Unlock()
	return len(w.dirty) > 0
}

// DirtyCount возвращает размер множества грязных чанков
func (w *World) DirtyCount() int {
	w.dirtyMu.Lock()
	defer w.dirtyMu.Unlock()
	return len(w.dirty)
}

// ConsumeDirtyChunks атомарно забирает множество грязных чанков.
// Позиции отсортированы по X, Y, Z для детерминированного порядка обработки.
func (w *World) ConsumeDirtyChunks() []vec.ChunkPos {
	w.dirtyMu.Lock()
	drained := w.dirty
	w.dirty = make(map[vec.ChunkPos]struct{})
	w.dirtyMu.Unlock()

	out := make([]vec.ChunkPos, 0, len(drained))
	for pos := range drained {
		out = append(out, pos)
	}
	sortPositions(out)
	return out
}

// ChunkCount возвращает число загруженных чанков
func (w *World) ChunkCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}

// ForEachChunk вызывает fn для каждого чанка под разделяемой блокировкой.
// fn не должна вызывать методы World, берущие эксклюзивную блокировку.
func (w *World) ForEachChunk(fn func(pos vec.ChunkPos, c *Chunk)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for pos, c := range w.chunks {
		fn(pos, c)
	}
}

// LoadedPositions возвращает отсортированный список позиций загруженных чанков
func (w *World) LoadedPositions() []vec.ChunkPos {
	w.mu.RLock()
	out := make([]vec.ChunkPos, 0, len(w.chunks))
	for pos := range w.chunks {
		out = append(out, pos)
	}
	w.mu.RUnlock()

	sortPositions(out)
	return out
}

// UnloadAll выгружает все чанки
func (w *World) UnloadAll() {
	w.mu.Lock()
	n := len(w.chunks)
	for _, c := range w.chunks {
		c.Deallocate()
	}
	w.chunks = make(map[vec.ChunkPos]*Chunk)
	w.mu.Unlock()

	w.dirtyMu.Lock()
	w.dirty = make(map[vec.ChunkPos]struct{})
	w.dirtyMu.Unlock()

	w.chunksUnloaded.Add(uint64(n))
	w.logger.Info("🌍 Мир %q: выгружено %d чанков", w.config.Name, n)
}

// CopyChunkVoxels копирует воксели чанка в dst под разделяемой блокировкой
func (w *World) CopyChunkVoxels(pos vec.ChunkPos, dst []voxel.Voxel) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.chunks[pos]
	if !ok {
		return false
	}
	return c.CopyVoxels(dst)
}

// ChunkSource возвращает источник вокселей чанка, копирующий данные под блокировкой мира
func (w *World) ChunkSource(pos vec.ChunkPos) ChunkSource {
	return ChunkSource{world: w, pos: pos}
}

// ChunkSource: ссылка на чанк мира для снятия снимков
type ChunkSource struct {
	world *World
	pos   vec.ChunkPos
}

// CopyVoxels копирует воксели; false, если чанк выгружен
func (s ChunkSource) CopyVoxels(dst []voxel.Voxel) bool {
	return s.world.CopyChunkVoxels(s.pos, dst)
}

// SurfaceHeight возвращает высоту поверхности генератора (DefaultSurfaceHeight без генератора)
func (w *World) SurfaceHeight(x, z int64) int64 {
	g := w.Generator()
	if g == nil {
		return DefaultSurfaceHeight
	}
	return g.SurfaceHeight(x, z)
}

// Stats возвращает счётчики мира
func (w *World) Stats() Stats {
	return Stats{
		ChunksGenerated: w.chunksGenerated.Load(),
		ChunksLoaded:    w.chunksLoaded.Load(),
		ChunksUnloaded:  w.chunksUnloaded.Load(),
		ChunksResident:  w.ChunkCount(),
		DirtyChunks:     w.DirtyCount(),
	}
}

func sortPositions(ps []vec.ChunkPos) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
}
