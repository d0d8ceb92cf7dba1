package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// AABB: ось-ориентированный параллелепипед в мировых координатах
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// FromCenter строит коробку по центру и полуразмерам
func FromCenter(center mgl64.Vec3, halfWidth, halfHeight, halfDepth float64) AABB {
	half := mgl64.Vec3{halfWidth, halfHeight, halfDepth}
	return AABB{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// FromBlock возвращает единичный куб блока (x,y,z)
func FromBlock(x, y, z int64) AABB {
	corner := mgl64.Vec3{float64(x), float64(y), float64(z)}
	return AABB{
		Min: corner,
		Max: corner.Add(mgl64.Vec3{1, 1, 1}),
	}
}

// Intersects проверяет строгое пересечение: касание гранями столкновением не считается
func (b AABB) Intersects(other AABB) bool {
	return b.Max.X() > other.Min.X() && b.Min.X() < other.Max.X() &&
		b.Max.Y() > other.Min.Y() && b.Min.Y() < other.Max.Y() &&
		b.Max.Z() > other.Min.Z() && b.Min.Z() < other.Max.Z()
}

// Offset сдвигает коробку на d
func (b AABB) Offset(d mgl64.Vec3) AABB {
	return AABB{
		Min: b.Min.Add(d),
		Max: b.Max.Add(d),
	}
}

// Expand расширяет коробку на amount во все стороны
func (b AABB) Expand(amount float64) AABB {
	e := mgl64.Vec3{amount, amount, amount}
	return AABB{
		Min: b.Min.Sub(e),
		Max: b.Max.Add(e),
	}
}

// Size возвращает размеры коробки
func (b AABB) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center возвращает центр коробки
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// blockRange возвращает диапазон целых клеток, которые задевает коробка (включительно)
func (b AABB) blockRange() (lo, hi [3]int64) {
	for i := 0; i < 3; i++ {
		lo[i] = floorInt(b.Min[i])
		hi[i] = floorInt(b.Max[i])
	}
	return lo, hi
}
