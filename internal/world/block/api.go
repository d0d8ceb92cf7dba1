package block

import (
	"github.com/annel0/voxel-core/internal/voxel"
)

// VoxelAPI: доступ к вокселям мира по мировым координатам.
// Через него симуляции (жидкости и т.п.) читают и меняют мир,
// не завися от конкретной реализации хранилища чанков.
type VoxelAPI interface {
	// GetVoxel возвращает воксель; для незагруженных чанков: воздух.
	GetVoxel(x, y, z int64) voxel.Voxel

	// SetVoxel записывает воксель, загружая чанк при необходимости.
	// Возвращает false, если координаты вне границ мира.
	SetVoxel(x, y, z int64, v voxel.Voxel) bool
}

// LoadedVoxelAPI различает воздух и незагруженный чанк.
// Симуляции, получившие такой доступ, не пишут в незагруженные чанки.
type LoadedVoxelAPI interface {
	VoxelAPI

	// GetVoxelSafe возвращает false, если чанк не загружен или координаты вне мира.
	GetVoxelSafe(x, y, z int64) (voxel.Voxel, bool)
}
