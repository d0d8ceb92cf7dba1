package vec

import (
	"fmt"
	"math"

	"github.com/annel0/voxel-core/internal/voxel"
)

// Vec3 представляет координаты блока в мире
type Vec3 struct {
	X int64
	Y int64
	Z int64
}

// Directions6: шесть соседей по граням в порядке -X, +X, -Y, +Y, -Z, +Z.
var Directions6 = [6]Vec3{
	{X: -1}, {X: 1},
	{Y: -1}, {Y: 1},
	{Z: -1}, {Z: 1},
}

// ChunkPos возвращает координаты чанка, которому принадлежит блок.
// Арифметический сдвиг даёт округление вниз и для отрицательных координат.
func (v Vec3) ChunkPos() ChunkPos {
	return ChunkPos{
		X: v.X >> voxel.ChunkShift,
		Y: v.Y >> voxel.ChunkShift,
		Z: v.Z >> voxel.ChunkShift,
	}
}

// Local возвращает локальные координаты внутри чанка
func (v Vec3) Local() (x, y, z int) {
	return int(v.X & voxel.ChunkMask), int(v.Y & voxel.ChunkMask), int(v.Z & voxel.ChunkMask)
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// DistanceTo возвращает евклидово расстояние до другого блока
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Neighbors6 возвращает соседние блоки по граням
func (v Vec3) Neighbors6() [6]Vec3 {
	var out [6]Vec3
	for i, d := range Directions6 {
		out[i] = v.Add(d)
	}
	return out
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// WorldToChunk переводит мировую координату в координату чанка (floor(x/64)).
func WorldToChunk(w int64) int64 { return w >> voxel.ChunkShift }

// WorldToLocal возвращает локальную координату внутри чанка (0..63).
func WorldToLocal(w int64) int { return int(w & voxel.ChunkMask) }

// ChunkToWorld возвращает мировую координату начала чанка.
func ChunkToWorld(c int64) int64 { return c << voxel.ChunkShift }

// IsValidWorldXZ проверяет горизонтальные границы мира
func IsValidWorldXZ(x, z int64) bool {
	return x >= -voxel.WorldLimit && x <= voxel.WorldLimit &&
		z >= -voxel.WorldLimit && z <= voxel.WorldLimit
}
