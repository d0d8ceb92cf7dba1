package voxel

// Размеры чанка. Все вычисления индексов построены на сдвигах.
const (
	ChunkShift  = 6
	ChunkSize   = 1 << ChunkShift // 64
	ChunkMask   = ChunkSize - 1   // 63
	ChunkArea   = ChunkSize * ChunkSize
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize // 262144

	// ChunkBytes: размер массива вокселей одного чанка (1 МиБ).
	ChunkBytes = ChunkVolume * 4

	// WorldLimit: граница мира по горизонтали в блоках.
	WorldLimit = 10_000_000
)

// ToIndex переводит локальные координаты в индекс массива.
// Y меняется быстрее всего, чтобы вертикальные проходы шли по памяти подряд.
func ToIndex(x, y, z int) int {
	return x<<(2*ChunkShift) | z<<ChunkShift | y
}

// FromIndex: обратное преобразование к ToIndex.
func FromIndex(idx int) (x, y, z int) {
	x = idx >> (2 * ChunkShift) & ChunkMask
	z = idx >> ChunkShift & ChunkMask
	y = idx & ChunkMask
	return x, y, z
}

// InBounds проверяет, что локальные координаты лежат внутри чанка.
func InBounds(x, y, z int) bool {
	return uint(x) < ChunkSize && uint(y) < ChunkSize && uint(z) < ChunkSize
}
