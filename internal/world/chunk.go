package world

import (
	"go.uber.org/atomic"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
)

// State: стадия жизненного цикла чанка
type State uint32

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateDirty
	StateMeshing
	StateReady
	StateUnloading
)

// String возвращает строковое представление состояния
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "UNLOADED"
	case StateLoading:
		return "LOADING"
	case StateLoaded:
		return "LOADED"
	case StateDirty:
		return "DIRTY"
	case StateMeshing:
		return "MESHING"
	case StateReady:
		return "READY"
	case StateUnloading:
		return "UNLOADING"
	default:
		return "UNKNOWN"
	}
}

// Chunk представляет участок мира 64x64x64 вокселей.
// Доступ к вокселям не синхронизирован: чанком, лежащим в World, управляет блокировка World.
type Chunk struct {
	Position vec.ChunkPos // Координаты чанка в мире

	voxels     []voxel.Voxel
	state      atomic.Uint32
	fullyDirty atomic.Bool
	edits      atomic.Uint64 // растёт при каждом MarkDirty
}

// NewChunk создаёт чанк с выделенным хранилищем, заполненным воздухом
func NewChunk(pos vec.ChunkPos) *Chunk {
	c := &Chunk{Position: pos}
	c.Allocate()
	return c
}

// Allocate выделяет хранилище, если оно ещё не выделено
func (c *Chunk) Allocate() {
	if c.voxels != nil {
		return
	}
	c.voxels = make([]voxel.Voxel, voxel.ChunkVolume)
	c.state.Store(uint32(StateLoaded))
	c.fullyDirty.Store(true)
}

// Deallocate освобождает хранилище вокселей
func (c *Chunk) Deallocate() {
	c.voxels = nil
	c.state.Store(uint32(StateUnloaded))
	c.fullyDirty.Store(false)
}

// IsAllocated возвращает true, если хранилище выделено
func (c *Chunk) IsAllocated() bool {
	return c.voxels != nil
}

// Get возвращает воксель по локальным координатам без проверки границ
func (c *Chunk) Get(x, y, z int) voxel.Voxel {
	if c.voxels == nil {
		return voxel.Air
	}
	return c.voxels[voxel.ToIndex(x, y, z)]
}

// GetIndex возвращает воксель по индексу массива
func (c *Chunk) GetIndex(idx int) voxel.Voxel {
	if c.voxels == nil {
		return voxel.Air
	}
	return c.voxels[idx]
}

// Set устанавливает воксель по локальным координатам и помечает чанк грязным
func (c *Chunk) Set(x, y, z int, v voxel.Voxel) {
	if c.voxels == nil {
		return
	}
	c.voxels[voxel.ToIndex(x, y, z)] = v
	c.MarkDirty()
}

// SetIndex устанавливает воксель по индексу массива
func (c *Chunk) SetIndex(idx int, v voxel.Voxel) {
	if c.voxels == nil {
		return
	}
	c.voxels[idx] = v
	c.MarkDirty()
}

// GetSafe: Get с проверкой границ. Вне чанка возвращает воздух.
func (c *Chunk) GetSafe(x, y, z int) voxel.Voxel {
	if !voxel.InBounds(x, y, z) {
		return voxel.Air
	}
	return c.Get(x, y, z)
}

// SetSafe: Set с проверкой границ
func (c *Chunk) SetSafe(x, y, z int, v voxel.Voxel) bool {
	if !voxel.InBounds(x, y, z) || c.voxels == nil {
		return false
	}
	c.Set(x, y, z, v)
	return true
}

// Fill заполняет весь чанк одним вокселем
func (c *Chunk) Fill(v voxel.Voxel) {
	if c.voxels == nil {
		return
	}
	for i := range c.voxels {
		c.voxels[i] = v
	}
	c.MarkDirty()
}

// FillRegion заполняет область [x1..x2]x[y1..y2]x[z1..z2] включительно.
// Координаты обрезаются по границам чанка.
func (c *Chunk) FillRegion(x1, y1, z1, x2, y2, z2 int, v voxel.Voxel) {
	if c.voxels == nil {
		return
	}
	x1, x2 = clampLocal(x1), clampLocal(x2)
	y1, y2 = clampLocal(y1), clampLocal(y2)
	z1, z2 = clampLocal(z1), clampLocal(z2)

	for x := x1; x <= x2; x++ {
		for z := z1; z <= z2; z++ {
			base := voxel.ToIndex(x, 0, z)
			for y := y1; y <= y2; y++ {
				c.voxels[base+y] = v
			}
		}
	}
	c.MarkDirty()
}

func clampLocal(v int) int {
	return min(max(v, 0), voxel.ChunkMask)
}

// CountSolid возвращает количество не-воздушных вокселей
func (c *Chunk) CountSolid() int {
	count := 0
	for _, v := range c.voxels {
		if !v.IsAir() {
			count++
		}
	}
	return count
}

// IsEmpty возвращает true, если чанк целиком из воздуха (или не выделен)
func (c *Chunk) IsEmpty() bool {
	for _, v := range c.voxels {
		if !v.IsAir() {
			return false
		}
	}
	return true
}

// IsFull возвращает true, если в чанке нет воздуха
func (c *Chunk) IsFull() bool {
	if c.voxels == nil {
		return false
	}
	for _, v := range c.voxels {
		if v.IsAir() {
			return false
		}
	}
	return true
}

// Voxels возвращает массив вокселей напрямую. Изменять его можно только под блокировкой владельца.
func (c *Chunk) Voxels() []voxel.Voxel {
	return c.voxels
}

// CopyVoxels копирует массив вокселей в dst. dst должен вмещать ChunkVolume элементов.
func (c *Chunk) CopyVoxels(dst []voxel.Voxel) bool {
	if c.voxels == nil || len(dst) < voxel.ChunkVolume {
		return false
	}
	copy(dst, c.voxels)
	return true
}

// State возвращает текущую стадию жизненного цикла
func (c *Chunk) State() State {
	return State(c.state.Load())
}

// SetState устанавливает стадию жизненного цикла
func (c *Chunk) SetState(s State) {
	c.state.Store(uint32(s))
}

// MarkDirty помечает чанк требующим перестроения сетки
func (c *Chunk) MarkDirty() {
	c.state.CompareAndSwap(uint32(StateLoaded), uint32(StateDirty))
	c.state.CompareAndSwap(uint32(StateReady), uint32(StateDirty))
	c.fullyDirty.Store(true)
	c.edits.Inc()
}

// Edits возвращает номер последней пометки. Сетка, построенная по копии
// с тем же номером, актуальна.
func (c *Chunk) Edits() uint64 {
	return c.edits.Load()
}

// ClearDirty снимает пометку после перестроения сетки: DIRTY переходит в READY
func (c *Chunk) ClearDirty() {
	c.fullyDirty.Store(false)
	c.state.CompareAndSwap(uint32(StateDirty), uint32(StateReady))
}

// IsFullyDirty возвращает true, если чанк менялся после последнего ClearDirty
func (c *Chunk) IsFullyDirty() bool {
	return c.fullyDirty.Load()
}
