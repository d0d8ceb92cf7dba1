package world

import (
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
)

// DefaultSurfaceHeight: высота поверхности для генераторов, которые её не знают.
const DefaultSurfaceHeight = 64

// Generator заполняет свежесозданный чанк ландшафтом.
type Generator interface {
	// Generate заполняет чанк (выделенный и заполненный воздухом) на месте.
	Generate(c *Chunk)
	// TypeName возвращает идентификатор типа генератора
	TypeName() string
	// Seed возвращает сид генерации
	Seed() int64
	// Initialize вызывается один раз перед первой генерацией
	Initialize()
	// ShouldGenerate позволяет пропустить чанки, в которых заведомо нет ландшафта
	ShouldGenerate(pos vec.ChunkPos) bool
	// SurfaceHeight возвращает естественную высоту поверхности в колонне (x, z)
	SurfaceHeight(x, z int64) int64
}

// Layer: слой суперплоского мира: тип блока и толщина
type Layer struct {
	BlockType block.BlockID `yaml:"block"`
	Thickness int           `yaml:"thickness"`
}

// MaxSuperflatLayers: максимальное число слоёв суперплоского мира
const MaxSuperflatLayers = 16

// SuperflatConfig описывает слои снизу вверх
type SuperflatConfig struct {
	Seed   int64
	Layers []Layer
}

// DefaultSuperflatConfig: основание(1) + камень(3) + земля(3) + трава(1) = 8 блоков
func DefaultSuperflatConfig() SuperflatConfig {
	return SuperflatConfig{Layers: []Layer{
		{BlockType: block.StoneBlockID, Thickness: 1},
		{BlockType: block.StoneBlockID, Thickness: 3},
		{BlockType: block.DirtBlockID, Thickness: 3},
		{BlockType: block.GrassBlockID, Thickness: 1},
	}}
}

// ClassicSuperflat: основание, два слоя земли, трава
func ClassicSuperflat() SuperflatConfig {
	return SuperflatConfig{Layers: []Layer{
		{BlockType: block.StoneBlockID, Thickness: 1},
		{BlockType: block.DirtBlockID, Thickness: 2},
		{BlockType: block.GrassBlockID, Thickness: 1},
	}}
}

// StoneWorld: один слой камня указанной высоты
func StoneWorld(height int) SuperflatConfig {
	return SuperflatConfig{Layers: []Layer{
		{BlockType: block.StoneBlockID, Thickness: height},
	}}
}

// TotalHeight возвращает суммарную толщину слоёв
func (c SuperflatConfig) TotalHeight() int64 {
	var h int64
	for i, l := range c.Layers {
		if i >= MaxSuperflatLayers {
			break
		}
		h += int64(max(l.Thickness, 0))
	}
	return h
}

// SuperflatGenerator генерирует плоский мир из слоёв.
// Результат зависит только от Y чанка и слоёв, сид хранится для совместимости.
type SuperflatGenerator struct {
	config SuperflatConfig
}

// NewSuperflatGenerator создаёт генератор; слои сверх MaxSuperflatLayers отбрасываются
func NewSuperflatGenerator(cfg SuperflatConfig) *SuperflatGenerator {
	if len(cfg.Layers) > MaxSuperflatLayers {
		cfg.Layers = cfg.Layers[:MaxSuperflatLayers]
	}
	return &SuperflatGenerator{config: cfg}
}

// Config возвращает конфигурацию слоёв
func (g *SuperflatGenerator) Config() SuperflatConfig { return g.config }

func (g *SuperflatGenerator) TypeName() string { return "superflat" }

func (g *SuperflatGenerator) Seed() int64 { return g.config.Seed }

func (g *SuperflatGenerator) Initialize() {}

// ShouldGenerate отсекает чанки целиком выше слоёв или ниже Y=0
func (g *SuperflatGenerator) ShouldGenerate(pos vec.ChunkPos) bool {
	base := vec.ChunkToWorld(pos.Y)
	if base >= g.config.TotalHeight() {
		return false
	}
	return base+voxel.ChunkSize > 0
}

// SurfaceHeight одинакова во всех колоннах
func (g *SuperflatGenerator) SurfaceHeight(x, z int64) int64 {
	return g.config.TotalHeight()
}

// Generate заполняет чанк слоями
func (g *SuperflatGenerator) Generate(c *Chunk) {
	if !c.IsAllocated() {
		return
	}
	base := vec.ChunkToWorld(c.Position.Y)
	total := g.config.TotalHeight()
	if base >= total || base+voxel.ChunkSize <= 0 {
		return
	}

	// Тип блока для каждой локальной высоты считается один раз на чанк
	var column [voxel.ChunkSize]voxel.Voxel
	filled := false
	for y := 0; y < voxel.ChunkSize; y++ {
		column[y] = g.layerAt(base + int64(y))
		if !column[y].IsAir() {
			filled = true
		}
	}
	if !filled {
		return
	}

	// Обход в родном порядке индексов: x, z, затем y
	voxels := c.Voxels()
	for x := 0; x < voxel.ChunkSize; x++ {
		for z := 0; z < voxel.ChunkSize; z++ {
			idx := voxel.ToIndex(x, 0, z)
			copy(voxels[idx:idx+voxel.ChunkSize], column[:])
		}
	}
	c.MarkDirty()
}

// layerAt возвращает воксель слоя на мировой высоте y
func (g *SuperflatGenerator) layerAt(y int64) voxel.Voxel {
	if y < 0 {
		return voxel.Air
	}
	var top int64
	for i, l := range g.config.Layers {
		if i >= MaxSuperflatLayers {
			break
		}
		top += int64(max(l.Thickness, 0))
		if y < top {
			return voxel.New(l.BlockType)
		}
	}
	return voxel.Air
}

// NewGenerator создаёт генератор по имени типа.
// Неизвестные имена получают суперплоский мир по умолчанию.
func NewGenerator(typeName string, seed int64) Generator {
	switch typeName {
	case "terrain":
		return NewTerrainGenerator(DefaultTerrainConfig(seed))
	default:
		cfg := DefaultSuperflatConfig()
		cfg.Seed = seed
		return NewSuperflatGenerator(cfg)
	}
}
