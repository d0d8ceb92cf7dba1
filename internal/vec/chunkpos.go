package vec

import (
	"fmt"

	"github.com/annel0/voxel-core/internal/voxel"
)

// ChunkPos: координаты чанка. Структура сравнима и служит ключом карты чанков.
type ChunkPos struct {
	X, Y, Z int64
}

// Origin возвращает мировые координаты угла чанка (0,0,0 в локальных)
func (c ChunkPos) Origin() Vec3 {
	return Vec3{X: ChunkToWorld(c.X), Y: ChunkToWorld(c.Y), Z: ChunkToWorld(c.Z)}
}

// Offset возвращает соседний чанк со смещением
func (c ChunkPos) Offset(dx, dy, dz int64) ChunkPos {
	return ChunkPos{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// IsValidXZ проверяет, что чанк лежит в горизонтальных границах мира
func (c ChunkPos) IsValidXZ() bool {
	const limit = voxel.WorldLimit >> voxel.ChunkShift
	return c.X >= -limit && c.X <= limit && c.Z >= -limit && c.Z <= limit
}

// ToWorld переводит локальные координаты чанка в мировые
func (c ChunkPos) ToWorld(x, y, z int) Vec3 {
	return Vec3{
		X: ChunkToWorld(c.X) + int64(x),
		Y: ChunkToWorld(c.Y) + int64(y),
		Z: ChunkToWorld(c.Z) + int64(z),
	}
}

func (c ChunkPos) String() string {
	return fmt.Sprintf("[%d,%d,%d]", c.X, c.Y, c.Z)
}
