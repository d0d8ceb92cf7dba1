package physics

import (
	"math"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/go-gl/mathgl/mgl64"
)

// VoxelFunc возвращает воксель по мировым координатам.
// Для незагруженных областей должна возвращать воздух.
type VoxelFunc func(x, y, z int64) voxel.Voxel

const (
	minDirLength = 1e-4
	farAway      = 1e30
)

// RaycastResult: результат трассировки луча
type RaycastResult struct {
	Hit      bool
	Block    vec.Vec3
	Normal   [3]int // нормаль грани, через которую луч вошёл в блок
	Distance float64
	Point    mgl64.Vec3 // точка входа луча в блок
	Voxel    voxel.Voxel
}

// Raycaster обходит сетку вокселей методом Amanatides–Woo.
// Skip позволяет пропускать воксели (например, жидкости при выборе блока).
type Raycaster struct {
	Skip func(v voxel.Voxel) bool
}

// NewRaycaster создаёт трассировщик, останавливающийся на первом непустом вокселе
func NewRaycaster() *Raycaster {
	return &Raycaster{}
}

// Cast пускает луч из origin в направлении dir на расстояние не больше maxDist.
// Если origin уже внутри блока, возвращается попадание с нулевой нормалью.
func (r *Raycaster) Cast(origin, dir mgl64.Vec3, maxDist float64, get VoxelFunc) RaycastResult {
	var result RaycastResult

	length := dir.Len()
	if length < minDirLength || get == nil {
		return result
	}
	dir = dir.Mul(1 / length)

	cell := [3]int64{floorInt(origin[0]), floorInt(origin[1]), floorInt(origin[2])}
	var step [3]int64
	var tMax, tDelta [3]float64

	for i := 0; i < 3; i++ {
		if dir[i] >= 0 {
			step[i] = 1
		} else {
			step[i] = -1
		}

		if math.Abs(dir[i]) > minDirLength {
			tDelta[i] = math.Abs(1 / dir[i])
		} else {
			tDelta[i] = farAway
		}

		if step[i] > 0 {
			tMax[i] = (float64(cell[i]+1) - origin[i]) * tDelta[i]
		} else {
			tMax[i] = (origin[i] - float64(cell[i])) * tDelta[i]
		}
	}

	lastAxis := -1
	distance := 0.0

	for distance <= maxDist {
		v := get(cell[0], cell[1], cell[2])
		if !v.IsAir() && (r.Skip == nil || !r.Skip(v)) {
			result.Hit = true
			result.Block = vec.Vec3{X: cell[0], Y: cell[1], Z: cell[2]}
			result.Distance = distance
			result.Point = origin.Add(dir.Mul(distance))
			result.Voxel = v
			if lastAxis >= 0 {
				result.Normal[lastAxis] = int(-step[lastAxis])
			}
			return result
		}

		// Ось с наименьшим накопленным параметром; при равенстве X < Y < Z
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}

		cell[axis] += step[axis]
		distance = tMax[axis]
		tMax[axis] += tDelta[axis]
		lastAxis = axis
	}

	return result
}

// AdjacentBlock возвращает позицию, куда ставится блок при клике по попаданию
func (r RaycastResult) AdjacentBlock() vec.Vec3 {
	return vec.Vec3{
		X: r.Block.X + int64(r.Normal[0]),
		Y: r.Block.Y + int64(r.Normal[1]),
		Z: r.Block.Z + int64(r.Normal[2]),
	}
}

func floorInt(f float64) int64 {
	return int64(math.Floor(f))
}
