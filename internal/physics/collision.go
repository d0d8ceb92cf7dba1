package physics

import (
	"math"

	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// Размеры игрока в блоках
const (
	PlayerWidth     = 0.6
	PlayerHeight    = 1.8
	PlayerEyeHeight = 1.62
)

const (
	moveStep    = 0.1
	moveEpsilon = 0.001
)

// CollisionResolver проверяет пересечение коробки сущности с блоками мира
// и разрешает движение по осям X, Y, Z по очереди.
type CollisionResolver struct {
	voxels VoxelFunc
	solid  func(v voxel.Voxel) bool

	HalfWidth  float64
	HalfHeight float64
}

// NewCollisionResolver создаёт резолвер размером с игрока.
// Без реестра твёрдым считается любой непустой воксель. С реестром правило мягче:
// сталкиваются только блоки с HasCollision, жидкости и декор проходимы.
// Строгое правило с реестром включается через SetSolid(NonAir).
func NewCollisionResolver(voxels VoxelFunc, registry *block.Registry) *CollisionResolver {
	cr := &CollisionResolver{
		voxels:     voxels,
		HalfWidth:  PlayerWidth / 2,
		HalfHeight: PlayerHeight / 2,
	}
	if registry != nil {
		cr.solid = func(v voxel.Voxel) bool {
			return registry.HasCollision(v.TypeID())
		}
	} else {
		cr.solid = NonAir
	}
	return cr
}

// NonAir: любой непустой воксель твёрдый
func NonAir(v voxel.Voxel) bool { return !v.IsAir() }

// SetSolid заменяет правило твёрдости вокселя
func (cr *CollisionResolver) SetSolid(solid func(v voxel.Voxel) bool) {
	if solid == nil {
		solid = NonAir
	}
	cr.solid = solid
}

// EntityBox возвращает коробку сущности; pos: точка у ног (центр нижней грани)
func EntityBox(pos mgl64.Vec3, halfWidth, halfHeight float64) AABB {
	center := mgl64.Vec3{pos.X(), pos.Y() + halfHeight, pos.Z()}
	return FromCenter(center, halfWidth, halfHeight, halfWidth)
}

// EyePosition возвращает позицию глаз игрока
func EyePosition(pos mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{pos.X(), pos.Y() + PlayerEyeHeight, pos.Z()}
}

// WouldCollide проверяет, пересекает ли коробка в позиции pos хоть один твёрдый блок
func (cr *CollisionResolver) WouldCollide(pos mgl64.Vec3, halfWidth, halfHeight float64) bool {
	box := EntityBox(pos, halfWidth, halfHeight)
	lo, hi := box.blockRange()

	for bx := lo[0]; bx <= hi[0]; bx++ {
		for by := lo[1]; by <= hi[1]; by++ {
			for bz := lo[2]; bz <= hi[2]; bz++ {
				if !cr.solid(cr.voxels(bx, by, bz)) {
					continue
				}
				if box.Intersects(FromBlock(bx, by, bz)) {
					return true
				}
			}
		}
	}
	return false
}

// MoveWithCollision сдвигает игрока на velocity*dt.
// onGround становится true, если движение вниз упёрлось в пол.
func (cr *CollisionResolver) MoveWithCollision(pos, velocity mgl64.Vec3, dt float64) (mgl64.Vec3, bool) {
	return cr.MoveBox(pos, velocity.Mul(dt), cr.HalfWidth, cr.HalfHeight)
}

// MoveBox сдвигает коробку произвольного размера на delta
func (cr *CollisionResolver) MoveBox(pos, delta mgl64.Vec3, halfWidth, halfHeight float64) (mgl64.Vec3, bool) {
	onGround := false
	for axis := 0; axis < 3; axis++ {
		blocked := cr.moveAxis(&pos, axis, delta[axis], halfWidth, halfHeight)
		if axis == 1 && blocked && delta[axis] < 0 {
			onGround = true
		}
	}
	return pos, onGround
}

// moveAxis двигает pos вдоль одной оси шагами moveStep до первого столкновения.
// Возвращает true, если движение было остановлено.
func (cr *CollisionResolver) moveAxis(pos *mgl64.Vec3, axis int, d, halfWidth, halfHeight float64) bool {
	if math.Abs(d) <= moveEpsilon {
		return false
	}

	step := moveStep
	if d < 0 {
		step = -moveStep
	}

	remaining := d
	for math.Abs(remaining) > moveEpsilon {
		move := step
		if math.Abs(remaining) < math.Abs(step) {
			move = remaining
		}

		next := *pos
		next[axis] += move
		if cr.WouldCollide(next, halfWidth, halfHeight) {
			return true
		}
		*pos = next
		remaining -= move
	}
	return false
}

// IsOnGround проверяет, стоит ли коробка на твёрдом блоке
func (cr *CollisionResolver) IsOnGround(pos mgl64.Vec3) bool {
	probe := mgl64.Vec3{pos.X(), pos.Y() - moveEpsilon*2, pos.Z()}
	return cr.WouldCollide(probe, cr.HalfWidth, cr.HalfHeight)
}
