package sim

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/voxel-core/internal/config"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.PreloadRadius = 0
	cfg.Mesh.Workers = 2
	return cfg
}

func newTestSimulation(t *testing.T, cfg *config.Config) *Simulation {
	t.Helper()
	s, err := New(cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.Start()
	return s
}

// settle дожидается воркеров и забирает все готовые сетки
func settle(s *Simulation) {
	for s.World().HasDirtyChunks() || s.MeshQueue().PendingCount() > 0 || s.MeshQueue().HasCompleted() {
		s.DispatchRemesh()
		s.MeshQueue().WaitIdle()
		s.CollectMeshes()
	}
}

func TestNew_UnknownGenerator(t *testing.T) {
	cfg := testConfig()
	cfg.World.Generator = "moon"

	_, err := New(cfg, nil, nil)
	assert.Error(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Mesh.Workers = 0

	_, err := New(cfg, nil, nil)
	assert.Error(t, err)
}

func TestSimulation_PreloadProducesMesh(t *testing.T) {
	s := newTestSimulation(t, testConfig())

	n, err := s.Preload(vec.ChunkPos{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s.Frame(50 * time.Millisecond)
	settle(s)

	m, ok := s.Mesh(vec.ChunkPos{})
	require.True(t, ok)
	assert.False(t, m.IsEmpty())
	assert.Equal(t, 1, s.MeshCount())
	assert.Positive(t, s.MeshMemory())
	assert.Equal(t, world.StateReady, s.World().GetChunk(vec.ChunkPos{}).State())
}

func TestSimulation_EmptyMeshIsNotStored(t *testing.T) {
	s := newTestSimulation(t, testConfig())

	_, err := s.World().LoadChunk(vec.ChunkPos{Y: 2})
	require.NoError(t, err)
	settle(s)

	_, ok := s.Mesh(vec.ChunkPos{Y: 2})
	assert.False(t, ok)
	assert.Equal(t, uint64(1), s.AppliedMeshes())
}

func TestSimulation_OverflowedResultsAreRemeshed(t *testing.T) {
	cfg := testConfig()
	cfg.World.PreloadRadius = 2
	cfg.Mesh.ResultCapacity = 2
	cfg.Mesh.MaxResultsPerTick = 1
	s := newTestSimulation(t, cfg)

	n, err := s.Preload(vec.ChunkPos{})
	require.NoError(t, err)
	require.Equal(t, 25, n)
	settle(s)

	assert.Positive(t, s.MeshQueue().DroppedCount(), "Очередь результатов переполнялась")
	assert.Equal(t, 25, s.MeshCount(), "Каждый чанк в итоге получил сетку")
	for _, pos := range s.World().LoadedPositions() {
		c := s.World().GetChunk(pos)
		assert.Equal(t, world.StateReady, c.State(), "чанк %s", pos)
		assert.False(t, c.IsFullyDirty(), "чанк %s", pos)
	}
	assert.Zero(t, s.World().DirtyCount())
}

func TestSimulation_EditDuringBuildKeepsChunkDirty(t *testing.T) {
	s := newTestSimulation(t, testConfig())
	_, err := s.Preload(vec.ChunkPos{})
	require.NoError(t, err)
	settle(s)
	pos := vec.ChunkPos{}

	require.True(t, s.PlaceBlock(10, 10, 10, voxel.New(block.StoneBlockID)))
	require.Equal(t, 1, s.DispatchRemesh())

	// Правка после копирования вокселей: готовая сетка уже устарела
	require.True(t, s.PlaceBlock(20, 10, 20, voxel.New(block.StoneBlockID)))
	s.MeshQueue().WaitIdle()
	require.Equal(t, 1, s.CollectMeshes())

	c := s.World().GetChunk(pos)
	assert.Equal(t, world.StateDirty, c.State())
	assert.True(t, c.IsFullyDirty())
	assert.True(t, s.World().HasDirtyChunks())

	settle(s)
	assert.Equal(t, world.StateReady, c.State())
	assert.False(t, c.IsFullyDirty())
}

func TestSimulation_BlockEditsRemesh(t *testing.T) {
	s := newTestSimulation(t, testConfig())
	_, err := s.Preload(vec.ChunkPos{})
	require.NoError(t, err)
	settle(s)
	before, _ := s.Mesh(vec.ChunkPos{})

	stone := voxel.New(block.StoneBlockID)
	require.True(t, s.PlaceBlock(10, 10, 10, stone))
	assert.False(t, s.PlaceBlock(10, 10, 10, stone), "клетка занята")
	settle(s)

	after, _ := s.Mesh(vec.ChunkPos{})
	assert.Equal(t, before.QuadCount+6, after.QuadCount)

	assert.Equal(t, stone, s.BreakBlock(10, 10, 10))
	assert.Equal(t, voxel.Air, s.BreakBlock(10, 10, 10))
}

func TestSimulation_WaterFallsToGround(t *testing.T) {
	cfg := testConfig()
	cfg.Tick.MaxTicksPerFrame = 10
	s := newTestSimulation(t, cfg)
	_, err := s.Preload(vec.ChunkPos{})
	require.NoError(t, err)

	ground := s.World().SurfaceHeight(5, 5)
	require.True(t, s.PlaceBlock(5, ground+6, 5, voxel.New(block.WaterBlockID)))

	for i := 0; i < 10; i++ {
		s.Frame(time.Second)
	}

	got := s.World().GetVoxel(5, ground, 5)
	assert.Equal(t, block.WaterBlockID, got.TypeID())
	assert.Zero(t, got.FluidLevel())
	assert.Positive(t, s.Fluid().Stats().Processed)
	assert.Positive(t, s.Snapshot().TicksTotal)
}

func TestSimulation_FluidDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Fluid.Enabled = false
	s := newTestSimulation(t, cfg)
	_, err := s.Preload(vec.ChunkPos{})
	require.NoError(t, err)

	ground := s.World().SurfaceHeight(5, 5)
	require.True(t, s.PlaceBlock(5, ground+3, 5, voxel.New(block.WaterBlockID)))
	s.Frame(time.Second)

	assert.True(t, s.World().GetVoxel(5, ground+2, 5).IsAir())
	assert.Equal(t, 1, s.Fluid().PendingCount())
}

func TestSimulation_TargetAndCollision(t *testing.T) {
	s := newTestSimulation(t, testConfig())
	_, err := s.Preload(vec.ChunkPos{})
	require.NoError(t, err)
	ground := s.World().SurfaceHeight(0, 0)

	hit := s.Target(mgl64.Vec3{3.5, float64(ground) + 5, 3.5}, mgl64.Vec3{0, -1, 0}, 10)
	require.True(t, hit.Hit)
	assert.Equal(t, vec.Vec3{X: 3, Y: ground - 1, Z: 3}, hit.Block)
	assert.Equal(t, vec.Vec3{X: 3, Y: ground, Z: 3}, hit.AdjacentBlock())

	pos, onGround := s.Collision().MoveWithCollision(mgl64.Vec3{3.5, float64(ground) + 1, 3.5}, mgl64.Vec3{0, -20, 0}, 0.1)
	assert.True(t, onGround)
	assert.InDelta(t, float64(ground), pos.Y(), 0.1+1e-9)
}

func TestSimulation_SnapshotReflectsSubsystems(t *testing.T) {
	s := newTestSimulation(t, testConfig())
	_, err := s.Preload(vec.ChunkPos{})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.ChunksResident)
	assert.Equal(t, 1, snap.DirtyChunks)
	assert.Equal(t, uint64(1), snap.ChunksGenerated)

	settle(s)
	snap = s.Snapshot()
	assert.Zero(t, snap.DirtyChunks)
	assert.Equal(t, uint64(1), snap.MeshCompleted)
}

func TestSimulation_RunStopsOnCancel(t *testing.T) {
	s := newTestSimulation(t, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.Ticks().IsRunning())
}
