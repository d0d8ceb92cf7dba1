package world

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
)

func TestChunkCreateAndGetVoxel(t *testing.T) {
	c := NewChunk(vec.ChunkPos{X: 5, Y: 0, Z: 10})

	assert.Equal(t, vec.ChunkPos{X: 5, Y: 0, Z: 10}, c.Position)
	assert.True(t, c.IsAllocated())
	assert.Equal(t, StateLoaded, c.State())
	assert.True(t, c.IsFullyDirty(), "Новый чанк требует построения сетки")
	assert.True(t, c.IsEmpty())
	assert.Equal(t, voxel.ChunkVolume, len(c.Voxels()))

	stone := voxel.New(block.StoneBlockID)
	c.Set(3, 4, 5, stone)
	assert.Equal(t, stone, c.Get(3, 4, 5))
	assert.Equal(t, stone, c.GetIndex(voxel.ToIndex(3, 4, 5)))
	assert.Equal(t, 1, c.CountSolid())
	assert.False(t, c.IsEmpty())
}

func TestChunkSafeAccess(t *testing.T) {
	c := NewChunk(vec.ChunkPos{})

	assert.False(t, c.SetSafe(64, 0, 0, voxel.New(1)), "Запись вне чанка должна отклоняться")
	assert.True(t, c.SetSafe(63, 63, 63, voxel.New(1)))
	assert.Equal(t, voxel.Air, c.GetSafe(-1, 0, 0))
	assert.Equal(t, voxel.New(1), c.GetSafe(63, 63, 63))
}

func TestChunkDirtyLifecycle(t *testing.T) {
	c := NewChunk(vec.ChunkPos{})
	c.ClearDirty()
	assert.False(t, c.IsFullyDirty())
	assert.Equal(t, StateLoaded, c.State())

	c.Set(0, 0, 0, voxel.New(1))
	assert.Equal(t, StateDirty, c.State(), "Запись переводит LOADED в DIRTY")
	assert.True(t, c.IsFullyDirty())

	c.ClearDirty()
	assert.Equal(t, StateReady, c.State(), "Сетка построена")

	c.SetState(StateMeshing)
	c.MarkDirty()
	assert.Equal(t, StateMeshing, c.State(), "MESHING не меняется при пометке")
	assert.True(t, c.IsFullyDirty())

	c.SetState(StateReady)
	c.MarkDirty()
	assert.Equal(t, StateDirty, c.State())
}

func TestChunkFill(t *testing.T) {
	c := NewChunk(vec.ChunkPos{})
	c.Fill(voxel.New(block.StoneBlockID))
	assert.True(t, c.IsFull())
	assert.Equal(t, voxel.ChunkVolume, c.CountSolid())

	c.Fill(voxel.Air)
	c.FillRegion(-5, 0, 0, 1, 1, 100, voxel.New(block.DirtBlockID))
	// x: 0..1, y: 0..1, z: 0..63
	assert.Equal(t, 2*2*64, c.CountSolid(), "Область должна обрезаться по границам чанка")
	assert.Equal(t, voxel.New(block.DirtBlockID), c.Get(1, 1, 63))
	assert.Equal(t, voxel.Air, c.Get(2, 0, 0))
}

func TestChunkDeallocate(t *testing.T) {
	c := NewChunk(vec.ChunkPos{})
	c.Set(1, 1, 1, voxel.New(1))
	c.Deallocate()

	assert.False(t, c.IsAllocated())
	assert.Equal(t, StateUnloaded, c.State())
	assert.Equal(t, voxel.Air, c.Get(1, 1, 1), "Невыделенный чанк читается как воздух")
	assert.True(t, c.IsEmpty())
	assert.False(t, c.IsFull())
	assert.False(t, c.CopyVoxels(make([]voxel.Voxel, voxel.ChunkVolume)))

	c.Allocate()
	assert.True(t, c.IsEmpty(), "Повторно выделенный чанк пуст")
}

func TestChunkCopyVoxels(t *testing.T) {
	c := NewChunk(vec.ChunkPos{})
	c.Set(10, 20, 30, voxel.New(7))

	dst := make([]voxel.Voxel, voxel.ChunkVolume)
	assert.True(t, c.CopyVoxels(dst))
	assert.Equal(t, voxel.New(7), dst[voxel.ToIndex(10, 20, 30)])

	c.Set(10, 20, 30, voxel.Air)
	assert.Equal(t, voxel.New(7), dst[voxel.ToIndex(10, 20, 30)], "Снимок не зависит от чанка")
	assert.False(t, c.CopyVoxels(make([]voxel.Voxel, 10)))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "MESHING", StateMeshing.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
