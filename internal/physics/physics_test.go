package physics

import (
	"testing"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stone = voxel.New(block.StoneBlockID)

// singleBlock: мир из одного каменного блока в начале координат
func singleBlock(x, y, z int64) voxel.Voxel {
	if x == 0 && y == 0 && z == 0 {
		return stone
	}
	return voxel.Air
}

// openRoom: камень везде, кроме пустой комнаты [0,3)³
func openRoom(x, y, z int64) voxel.Voxel {
	if x >= 0 && x < 3 && y >= 0 && y < 3 && z >= 0 && z < 3 {
		return voxel.Air
	}
	return stone
}

func TestAABB_Intersects(t *testing.T) {
	a := FromBlock(0, 0, 0)

	assert.True(t, a.Intersects(FromCenter(mgl64.Vec3{0.5, 0.5, 0.5}, 0.1, 0.1, 0.1)))
	assert.False(t, a.Intersects(FromBlock(1, 0, 0)), "касание гранями не пересечение")
	assert.True(t, a.Intersects(FromBlock(1, 0, 0).Offset(mgl64.Vec3{-0.01, 0, 0})))
	assert.True(t, a.Intersects(FromBlock(1, 0, 0).Expand(0.01)))

	assert.Equal(t, mgl64.Vec3{1, 1, 1}, a.Size())
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, a.Center())
}

func TestRaycast_StraightDown(t *testing.T) {
	rc := NewRaycaster()
	res := rc.Cast(mgl64.Vec3{0.5, 5, 0.5}, mgl64.Vec3{0, -1, 0}, 10, singleBlock)

	require.True(t, res.Hit)
	assert.Equal(t, vec.Vec3{}, res.Block)
	assert.Equal(t, [3]int{0, 1, 0}, res.Normal)
	assert.InDelta(t, 4.0, res.Distance, 1e-9)
	assert.InDelta(t, 1.0, res.Point.Y(), 1e-9)
	assert.Equal(t, stone, res.Voxel)
	assert.Equal(t, vec.Vec3{Y: 1}, res.AdjacentBlock())
}

func TestRaycast_Sideways(t *testing.T) {
	rc := NewRaycaster()
	res := rc.Cast(mgl64.Vec3{-3.5, 0.5, 0.5}, mgl64.Vec3{2, 0, 0}, 10, singleBlock)

	require.True(t, res.Hit)
	assert.Equal(t, [3]int{-1, 0, 0}, res.Normal)
	assert.InDelta(t, 3.5, res.Distance, 1e-9)
}

func TestRaycast_MissesBeyondRange(t *testing.T) {
	rc := NewRaycaster()

	res := rc.Cast(mgl64.Vec3{0.5, 5, 0.5}, mgl64.Vec3{0, -1, 0}, 3, singleBlock)
	assert.False(t, res.Hit)

	res = rc.Cast(mgl64.Vec3{0.5, 5, 0.5}, mgl64.Vec3{0, 1, 0}, 100, singleBlock)
	assert.False(t, res.Hit)

	res = rc.Cast(mgl64.Vec3{0.5, 5, 0.5}, mgl64.Vec3{}, 100, singleBlock)
	assert.False(t, res.Hit, "нулевое направление")
}

func TestRaycast_StartInsideBlock(t *testing.T) {
	res := NewRaycaster().Cast(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{1, 0, 0}, 5, singleBlock)

	require.True(t, res.Hit)
	assert.Equal(t, [3]int{}, res.Normal)
	assert.Zero(t, res.Distance)
}

func TestRaycast_SkipFluids(t *testing.T) {
	water := voxel.New(block.WaterBlockID)
	get := func(x, y, z int64) voxel.Voxel {
		switch {
		case y == 2:
			return water
		case y == 0:
			return stone
		}
		return voxel.Air
	}

	rc := NewRaycaster()
	res := rc.Cast(mgl64.Vec3{0.5, 5, 0.5}, mgl64.Vec3{0, -1, 0}, 10, get)
	require.True(t, res.Hit)
	assert.Equal(t, int64(2), res.Block.Y)

	registry := block.NewRegistry()
	rc.Skip = func(v voxel.Voxel) bool { return registry.IsFluid(v.TypeID()) }
	res = rc.Cast(mgl64.Vec3{0.5, 5, 0.5}, mgl64.Vec3{0, -1, 0}, 10, get)
	require.True(t, res.Hit)
	assert.Equal(t, int64(0), res.Block.Y)
}

func TestWouldCollide_OpenRoom(t *testing.T) {
	cr := NewCollisionResolver(openRoom, nil)
	const hw, hh = 0.3, 0.9

	assert.False(t, cr.WouldCollide(mgl64.Vec3{1.5, 0.1, 1.5}, hw, hh))
	assert.False(t, cr.WouldCollide(mgl64.Vec3{1.5, 0, 1.5}, hw, hh), "стоит ровно на полу")
	assert.False(t, cr.WouldCollide(mgl64.Vec3{0.3, 0, 0.3}, hw, hh), "прижат к стенам")

	assert.True(t, cr.WouldCollide(mgl64.Vec3{1.5, -0.01, 1.5}, hw, hh))
	assert.True(t, cr.WouldCollide(mgl64.Vec3{0.29, 0.5, 1.5}, hw, hh))
	assert.True(t, cr.WouldCollide(mgl64.Vec3{1.5, 1.21, 1.5}, hw, hh), "голова в потолке")
}

func TestWouldCollide_RegistryIgnoresFluids(t *testing.T) {
	water := func(x, y, z int64) voxel.Voxel { return voxel.New(block.WaterBlockID) }
	pos := mgl64.Vec3{0.5, 0, 0.5}

	assert.True(t, NewCollisionResolver(water, nil).WouldCollide(pos, 0.3, 0.9))
	assert.False(t, NewCollisionResolver(water, block.NewRegistry()).WouldCollide(pos, 0.3, 0.9))

	strict := NewCollisionResolver(water, block.NewRegistry())
	strict.SetSolid(NonAir)
	assert.True(t, strict.WouldCollide(pos, 0.3, 0.9), "Строгое правило: любая непустая клетка")
}

func TestMoveWithCollision_LandsOnFloor(t *testing.T) {
	cr := NewCollisionResolver(openRoom, nil)

	pos, onGround := cr.MoveWithCollision(mgl64.Vec3{1.5, 0.5, 1.5}, mgl64.Vec3{0, -10, 0}, 0.1)

	assert.True(t, onGround)
	assert.GreaterOrEqual(t, pos.Y(), 0.0)
	assert.Less(t, pos.Y(), moveStep+1e-9)
	assert.Equal(t, 1.5, pos.X())
	assert.Equal(t, 1.5, pos.Z())
	assert.True(t, cr.IsOnGround(mgl64.Vec3{1.5, 0, 1.5}))
}

func TestMoveWithCollision_WallStopsHorizontal(t *testing.T) {
	cr := NewCollisionResolver(openRoom, nil)

	pos, onGround := cr.MoveWithCollision(mgl64.Vec3{1.5, 0, 1.5}, mgl64.Vec3{50, 0, 0}, 0.1)

	assert.False(t, onGround)
	assert.Greater(t, pos.X(), 2.5)
	assert.LessOrEqual(t, pos.X(), 3-cr.HalfWidth+1e-9)
	assert.Equal(t, 0.0, pos.Y())
}

func TestMoveWithCollision_FreeMovement(t *testing.T) {
	cr := NewCollisionResolver(func(x, y, z int64) voxel.Voxel { return voxel.Air }, nil)

	start := mgl64.Vec3{0, 10, 0}
	pos, onGround := cr.MoveWithCollision(start, mgl64.Vec3{1, -2, 3}, 0.5)

	assert.False(t, onGround)
	assert.InDelta(t, 0.5, pos.X(), 1e-9)
	assert.InDelta(t, 9.0, pos.Y(), 1e-9)
	assert.InDelta(t, 1.5, pos.Z(), 1e-9)
}

func TestEyePosition(t *testing.T) {
	assert.Equal(t, mgl64.Vec3{1, 2 + PlayerEyeHeight, 3}, EyePosition(mgl64.Vec3{1, 2, 3}))
}
