package world

import (
	"github.com/annel0/voxel-core/internal/util"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
)

// TerrainConfig: параметры генератора холмистого ландшафта
type TerrainConfig struct {
	Seed       int64
	BaseHeight int64   // минимальная высота поверхности
	Amplitude  int64   // разброс высоты над BaseHeight
	SeaLevel   int64   // ниже этой высоты пустоты заливаются водой
	NoiseScale float64 // масштаб шума высоты
	DirtDepth  int64   // толщина земли под травой
}

// DefaultTerrainConfig возвращает параметры по умолчанию
func DefaultTerrainConfig(seed int64) TerrainConfig {
	return TerrainConfig{
		Seed:       seed,
		BaseHeight: 16,
		Amplitude:  48,
		SeaLevel:   30,
		NoiseScale: 0.01,
		DirtDepth:  3,
	}
}

// TerrainGenerator строит карту высот по шуму Перлина.
// Вывод детерминирован для пары (сид, координаты).
type TerrainGenerator struct {
	config TerrainConfig
	noise  *util.Noise
}

// NewTerrainGenerator создаёт генератор ландшафта
func NewTerrainGenerator(cfg TerrainConfig) *TerrainGenerator {
	g := &TerrainGenerator{config: cfg}
	g.Initialize()
	return g
}

func (g *TerrainGenerator) TypeName() string { return "terrain" }

func (g *TerrainGenerator) Seed() int64 { return g.config.Seed }

// Initialize пересоздаёт шум под текущий сид
func (g *TerrainGenerator) Initialize() {
	g.noise = util.NewNoise(g.config.Seed)
}

// maxHeight: верхняя граница, выше которой ландшафта нет
func (g *TerrainGenerator) maxHeight() int64 {
	return max(g.config.BaseHeight+g.config.Amplitude, g.config.SeaLevel) + 1
}

// ShouldGenerate отсекает чанки над максимальной высотой и ниже нуля
func (g *TerrainGenerator) ShouldGenerate(pos vec.ChunkPos) bool {
	base := vec.ChunkToWorld(pos.Y)
	return base < g.maxHeight() && base+voxel.ChunkSize > 0
}

// SurfaceHeight возвращает высоту верхнего твёрдого блока плюс один
func (g *TerrainGenerator) SurfaceHeight(x, z int64) int64 {
	n := g.noise.Noise2D(float64(x)*g.config.NoiseScale, float64(z)*g.config.NoiseScale)
	return g.config.BaseHeight + int64(n*float64(g.config.Amplitude))
}

// Generate заполняет чанк колоннами камня, земли и травы; низины заливаются водой
func (g *TerrainGenerator) Generate(c *Chunk) {
	if !c.IsAllocated() || !g.ShouldGenerate(c.Position) {
		return
	}
	origin := c.Position.Origin()
	voxels := c.Voxels()
	changed := false

	for x := 0; x < voxel.ChunkSize; x++ {
		for z := 0; z < voxel.ChunkSize; z++ {
			surface := g.SurfaceHeight(origin.X+int64(x), origin.Z+int64(z))
			column := voxel.ToIndex(x, 0, z)

			for y := 0; y < voxel.ChunkSize; y++ {
				wy := origin.Y + int64(y)
				if wy < 0 {
					continue
				}
				id := g.blockAt(wy, surface)
				if id == block.AirBlockID {
					continue
				}
				voxels[column+y] = voxel.New(id)
				changed = true
			}
		}
	}
	if changed {
		c.MarkDirty()
	}
}

func (g *TerrainGenerator) blockAt(y, surface int64) block.BlockID {
	top := surface - 1
	switch {
	case y < top-g.config.DirtDepth:
		return block.StoneBlockID
	case y < top:
		return block.DirtBlockID
	case y == top:
		if top <= g.config.SeaLevel {
			return block.SandBlockID
		}
		return block.GrassBlockID
	case y <= g.config.SeaLevel:
		return block.WaterBlockID
	}
	return block.AirBlockID
}
