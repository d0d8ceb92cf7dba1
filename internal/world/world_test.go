package world

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
)

// newTestWorld создаёт мир без генератора: все чанки из воздуха
func newTestWorld() *World {
	cfg := DefaultConfig()
	cfg.Name = "test"
	cfg.GeneratorType = ""
	return NewWorld(cfg)
}

func TestWorld_Creation(t *testing.T) {
	w := NewWorld(DefaultConfig())

	assert.NotEqual(t, "", w.ID().String(), "ID мира должен быть задан")
	assert.Equal(t, "superflat", w.Generator().TypeName())
	assert.Equal(t, 0, w.ChunkCount())
	assert.Equal(t, int64(8), w.SurfaceHeight(0, 0))
}

func TestWorld_GetVoxelUnloadedIsAir(t *testing.T) {
	w := newTestWorld()

	assert.Equal(t, voxel.Air, w.GetVoxel(100, 5, -100))
	_, ok := w.GetVoxelSafe(100, 5, -100)
	assert.False(t, ok, "Незагруженный чанк не даёт значения")
	assert.Equal(t, 0, w.ChunkCount(), "Чтение не должно загружать чанки")

	assert.Equal(t, voxel.Air, w.GetVoxel(20_000_000, 0, 0))
}

func TestWorld_SetGetConsistency(t *testing.T) {
	w := newTestWorld()
	coords := [][3]int64{{0, 0, 0}, {-1, -1, -1}, {63, 64, 65}, {-1000, 200, 5000}}

	for i, p := range coords {
		v := voxel.NewFull(uint16(i+1), 3, 4, 5)
		require.True(t, w.SetVoxel(p[0], p[1], p[2], v))
		assert.Equal(t, v, w.GetVoxel(p[0], p[1], p[2]), "Прочитано не то, что записано в %v", p)
	}
}

func TestWorld_SetVoxelOutOfBounds(t *testing.T) {
	w := newTestWorld()

	assert.False(t, w.SetVoxel(0, 64*17, 0, voxel.New(1)), "Выше max_chunk_y")
	assert.False(t, w.SetVoxel(0, -64*5, 0, voxel.New(1)), "Ниже min_chunk_y")
	assert.False(t, w.SetVoxel(10_000_001, 0, 0, voxel.New(1)), "За горизонтальной границей")
	assert.Equal(t, 0, w.ChunkCount())

	_, err := w.LoadChunk(vec.ChunkPos{Y: 17})
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestWorld_LoadChunkIdempotent(t *testing.T) {
	w := NewWorld(DefaultConfig())

	a, err := w.LoadChunk(vec.ChunkPos{})
	require.NoError(t, err)
	b, err := w.LoadChunk(vec.ChunkPos{})
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, w.ChunkCount())
	assert.Equal(t, uint64(1), w.Stats().ChunksLoaded)
	assert.Equal(t, uint64(1), w.Stats().ChunksGenerated)
	assert.Equal(t, voxel.New(block.GrassBlockID), a.Get(0, 7, 0), "Суперплоский мир: трава на y=7")
}

func TestWorld_LoadChunkConcurrent(t *testing.T) {
	w := NewWorld(DefaultConfig())
	const goroutines = 16

	results := make([]*Chunk, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := w.LoadChunk(vec.ChunkPos{X: 1, Y: 0, Z: 1})
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range results {
		assert.Same(t, results[0], c, "Все горутины должны получить один экземпляр")
	}
	assert.Equal(t, 1, w.ChunkCount())
	assert.Equal(t, uint64(1), w.Stats().ChunksGenerated)
}

func TestWorld_SkipsGenerationOutsideLayers(t *testing.T) {
	w := NewWorld(DefaultConfig())

	c, err := w.LoadChunk(vec.ChunkPos{Y: 3})
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, uint64(0), w.Stats().ChunksGenerated, "Чанк над слоями не генерируется")
}

func TestWorld_DirtyPropagationAcrossBorders(t *testing.T) {
	w := newTestWorld()

	neighbours := []vec.ChunkPos{
		{X: -1}, {X: 1}, {Y: -1}, {Y: 1}, {Z: -1}, {Z: 1},
	}
	for _, p := range append(neighbours, vec.ChunkPos{}) {
		_, err := w.LoadChunk(p)
		require.NoError(t, err)
	}
	w.ConsumeDirtyChunks()
	require.False(t, w.HasDirtyChunks())

	// Угол чанка (0,0,0): граничит с -X, -Y, -Z
	require.True(t, w.SetVoxel(0, 0, 0, voxel.New(1)))
	assert.Equal(t, []vec.ChunkPos{
		{X: -1, Y: 0, Z: 0},
		{X: 0, Y: -1, Z: 0},
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: 0},
	}, w.ConsumeDirtyChunks())

	// Противоположный угол: +X, +Y, +Z
	require.True(t, w.SetVoxel(63, 63, 63, voxel.New(1)))
	assert.Equal(t, []vec.ChunkPos{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 1},
		{X: 0, Y: 1, Z: 0},
		{X: 1, Y: 0, Z: 0},
	}, w.ConsumeDirtyChunks())

	// Внутренний воксель не трогает соседей
	require.True(t, w.SetVoxel(10, 10, 10, voxel.New(1)))
	assert.Equal(t, []vec.ChunkPos{{}}, w.ConsumeDirtyChunks())
}

func TestWorld_DirtyIgnoresUnloadedNeighbours(t *testing.T) {
	w := newTestWorld()

	require.True(t, w.SetVoxel(0, 5, 5, voxel.New(1)))
	assert.Equal(t, []vec.ChunkPos{{}}, w.ConsumeDirtyChunks())

	w.MarkChunkDirty(vec.ChunkPos{X: 9})
	assert.False(t, w.HasDirtyChunks())
}

func TestWorld_LoadMarksNeighboursDirty(t *testing.T) {
	w := newTestWorld()
	_, err := w.LoadChunk(vec.ChunkPos{})
	require.NoError(t, err)
	w.ConsumeDirtyChunks()

	_, err = w.LoadChunk(vec.ChunkPos{X: 1})
	require.NoError(t, err)
	assert.Equal(t, []vec.ChunkPos{{}, {X: 1}}, w.ConsumeDirtyChunks())
}

func TestWorld_BreakAndPlace(t *testing.T) {
	w := newTestWorld()
	stone := voxel.New(block.StoneBlockID)

	assert.Equal(t, voxel.Air, w.BreakBlock(1, 1, 1), "Ломать воздух: no-op")
	assert.Equal(t, 0, w.ChunkCount(), "BreakBlock не загружает чанки")

	assert.True(t, w.PlaceBlock(1, 1, 1, stone))
	assert.False(t, w.PlaceBlock(1, 1, 1, voxel.New(block.DirtBlockID)), "Нельзя ставить на занятое место")
	assert.Equal(t, stone, w.GetVoxel(1, 1, 1))

	w.ConsumeDirtyChunks()
	assert.Equal(t, stone, w.BreakBlock(1, 1, 1))
	assert.True(t, w.GetVoxel(1, 1, 1).IsAir())
	assert.True(t, w.HasDirtyChunks())

	w.ConsumeDirtyChunks()
	assert.Equal(t, voxel.Air, w.BreakBlock(1, 1, 1))
	assert.False(t, w.HasDirtyChunks(), "Повторный break ничего не помечает")
}

func TestWorld_InsertRemoveUnload(t *testing.T) {
	w := newTestWorld()
	pos := vec.ChunkPos{X: 2, Y: 1, Z: 3}

	c := NewChunk(vec.ChunkPos{})
	c.Fill(voxel.New(block.StoneBlockID))
	require.NoError(t, w.InsertChunk(pos, c))
	assert.Equal(t, pos, c.Position, "Позиция чанка должна обновиться")
	assert.Equal(t, voxel.New(block.StoneBlockID), w.GetVoxel(128, 64, 192))

	err := w.InsertChunk(pos, NewChunk(pos))
	assert.True(t, errors.Is(err, ErrChunkExists))

	removed, ok := w.RemoveChunk(pos)
	assert.True(t, ok)
	assert.Same(t, c, removed)
	assert.True(t, removed.IsAllocated(), "RemoveChunk не освобождает память")
	assert.False(t, w.HasChunk(pos))

	require.NoError(t, w.InsertChunk(pos, removed))
	assert.True(t, w.UnloadChunk(pos))
	assert.False(t, w.UnloadChunk(pos))
	assert.False(t, removed.IsAllocated())
	assert.Equal(t, uint64(1), w.Stats().ChunksUnloaded)
}

func TestWorld_UnloadAllAndIteration(t *testing.T) {
	w := newTestWorld()
	for x := int64(0); x < 3; x++ {
		_, err := w.LoadChunk(vec.ChunkPos{X: x})
		require.NoError(t, err)
	}

	count := 0
	w.ForEachChunk(func(pos vec.ChunkPos, c *Chunk) {
		assert.Equal(t, pos, c.Position)
		count++
	})
	assert.Equal(t, 3, count)
	assert.Equal(t, []vec.ChunkPos{{X: 0}, {X: 1}, {X: 2}}, w.LoadedPositions())

	w.UnloadAll()
	assert.Equal(t, 0, w.ChunkCount())
	assert.False(t, w.HasDirtyChunks())
	assert.Equal(t, uint64(3), w.Stats().ChunksUnloaded)
}

func TestWorld_ChunkSourceCopies(t *testing.T) {
	w := newTestWorld()
	require.True(t, w.SetVoxel(5, 6, 7, voxel.New(9)))

	dst := make([]voxel.Voxel, voxel.ChunkVolume)
	assert.True(t, w.ChunkSource(vec.ChunkPos{}).CopyVoxels(dst))
	assert.Equal(t, voxel.New(9), dst[voxel.ToIndex(5, 6, 7)])
	assert.False(t, w.ChunkSource(vec.ChunkPos{X: 4}).CopyVoxels(dst))
}

func TestWorld_PreloadArea(t *testing.T) {
	w := NewWorld(DefaultConfig())

	n, err := w.PreloadArea(vec.ChunkPos{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, n, "Суперплоский мир заполняет только чанк Y=0")
	assert.Equal(t, 9, w.ChunkCount())
}

func TestWorld_ImplementsVoxelAPI(t *testing.T) {
	var api block.VoxelAPI = newTestWorld()
	assert.True(t, api.SetVoxel(1, 2, 3, voxel.New(4)))
	assert.Equal(t, voxel.New(4), api.GetVoxel(1, 2, 3))
}
