package mesh

import (
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
)

// NeighborFunc возвращает воксель по мировым координатам (для граней на границе чанка)
type NeighborFunc func(x, y, z int64) voxel.Voxel

// Config: параметры построения сетки
type Config struct {
	Greedy           bool // объединять одинаковые грани в прямоугольники
	AmbientOcclusion bool // считать затенение по соседям перед гранью
	FaceCulling      bool // отсекать закрытые грани
	WaterMesh        bool // строить грани жидкостей
}

// DefaultConfig возвращает конфигурацию со всеми возможностями
func DefaultConfig() Config {
	return Config{Greedy: true, AmbientOcclusion: true, FaceCulling: true, WaterMesh: true}
}

// Stats: статистика последнего вызова Generate
type Stats struct {
	FacesGenerated int // видимых граней вокселей до объединения
	FacesCulled    int // граней, закрытых соседом
	Quads          int
}

// Ключ грани в срезе, 0 означает отсутствие грани.
// id[0:16] light[16:20] level[20:28] ao[28:30]
type faceKey uint32

func makeFaceKey(id uint16, light, level, ao uint8) faceKey {
	return faceKey(uint32(id) | uint32(light&0x0F)<<16 | uint32(level)<<20 | uint32(ao&0x03)<<28)
}

func (k faceKey) id() uint16   { return uint16(k) }
func (k faceKey) light() uint8 { return uint8(k >> 16 & 0x0F) }
func (k faceKey) ao() uint8    { return uint8(k >> 28 & 0x03) }

// Generator строит сетку чанка жадным объединением граней.
// Держит рабочие буферы между вызовами, поэтому не безопасен для параллельного использования:
// каждому потоку нужен свой Generator.
type Generator struct {
	config   Config
	registry *block.Registry
	table    [block.MaxBlockTypes]block.Properties

	faces   []faceKey // [срез][v][u] для текущего направления
	visited [voxel.ChunkSize]uint64
	stats   Stats
}

// NewGenerator создаёт генератор сетки. registry == nil: стандартный набор блоков.
func NewGenerator(config Config, registry *block.Registry) *Generator {
	if registry == nil {
		registry = block.NewRegistry()
	}
	return &Generator{
		config:   config,
		registry: registry,
		faces:    make([]faceKey, voxel.ChunkVolume),
	}
}

// Config возвращает параметры генератора
func (g *Generator) Config() Config { return g.config }

// Stats возвращает статистику последнего вызова Generate
func (g *Generator) Stats() Stats { return g.stats }

// props возвращает свойства типа; неизвестные типы получают запись 0
func (g *Generator) props(id uint16) *block.Properties {
	if int(id) >= block.MaxBlockTypes || g.table[id].Name == "" {
		return &g.table[block.AirBlockID]
	}
	return &g.table[id]
}

// Generate строит сетку чанка по массиву вокселей в родном порядке индексов.
// neighbor может быть nil: тогда грани на границе чанка всегда рисуются.
// Пустой или невыделенный чанк даёт пустую сетку.
func (g *Generator) Generate(voxels []voxel.Voxel, pos vec.ChunkPos, neighbor NeighborFunc) *ChunkMesh {
	m := NewChunkMesh(pos)
	m.NeedsUpdate = true
	g.stats = Stats{}

	if len(voxels) != voxel.ChunkVolume || isAllAir(voxels) {
		return m
	}
	g.registry.CopyTable(&g.table)

	origin := pos.Origin()
	for f := Face(0); f < FaceCount; f++ {
		g.buildFaces(voxels, f, origin, neighbor)
		for slice := 0; slice < voxel.ChunkSize; slice++ {
			g.mergeSlice(slice, f, m)
		}
	}
	g.stats.Quads = m.QuadCount
	return m
}

func isAllAir(voxels []voxel.Voxel) bool {
	for _, v := range voxels {
		if !v.IsAir() {
			return false
		}
	}
	return true
}

// buildFaces заполняет буфер видимых граней направления f
func (g *Generator) buildFaces(voxels []voxel.Voxel, f Face, origin vec.Vec3, neighbor NeighborFunc) {
	clear(g.faces)
	n := f.Normal()

	for x := 0; x < voxel.ChunkSize; x++ {
		for z := 0; z < voxel.ChunkSize; z++ {
			column := voxel.ToIndex(x, 0, z)
			for y := 0; y < voxel.ChunkSize; y++ {
				cur := voxels[column+y]
				if cur.IsAir() {
					continue
				}
				cp := g.props(cur.TypeID())
				if cp.IsFluid && !g.config.WaterMesh {
					continue
				}

				nx, ny, nz := x+n[0], y+n[1], z+n[2]
				if g.config.FaceCulling {
					if nv, ok := g.voxelAt(voxels, nx, ny, nz, origin, neighbor); ok && g.culled(cur, cp, nv) {
						g.stats.FacesCulled++
						continue
					}
				}

				var ao uint8
				if g.config.AmbientOcclusion {
					ao = g.occlusion(voxels, f, nx, ny, nz, origin, neighbor)
				}
				slice, u, v := f.Plane(x, y, z)
				var level uint8
				if cp.IsFluid {
					level = cur.FluidLevel()
				}
				g.faces[slice<<12|v<<6|u] = makeFaceKey(cur.TypeID(), cur.LightLevel(), level, ao)
				g.stats.FacesGenerated++
			}
		}
	}
}

// voxelAt читает воксель внутри чанка или через neighbor; ok=false, если соседа узнать нельзя
func (g *Generator) voxelAt(voxels []voxel.Voxel, x, y, z int, origin vec.Vec3, neighbor NeighborFunc) (voxel.Voxel, bool) {
	if voxel.InBounds(x, y, z) {
		return voxels[voxel.ToIndex(x, y, z)], true
	}
	if neighbor == nil {
		return voxel.Air, false
	}
	return neighbor(origin.X+int64(x), origin.Y+int64(y), origin.Z+int64(z)), true
}

// culled решает, закрыта ли грань cur соседом n
func (g *Generator) culled(cur voxel.Voxel, cp *block.Properties, n voxel.Voxel) bool {
	if n.IsAir() {
		return false
	}
	np := g.props(n.TypeID())

	if !cp.IsTransparent && !np.IsTransparent {
		return true
	}
	if n.TypeID() != cur.TypeID() {
		return false
	}
	if cp.IsFluid {
		return n.FluidLevel() >= cur.FluidLevel()
	}
	return cp.IsTransparent && !cp.RenderAllFaces
}

func (g *Generator) isOccluder(v voxel.Voxel) bool {
	if v.IsAir() {
		return false
	}
	return !g.props(v.TypeID()).IsTransparent
}

// occlusion считает непрозрачные блоки, примыкающие по рёбрам к клетке перед гранью (0..3)
func (g *Generator) occlusion(voxels []voxel.Voxel, f Face, nx, ny, nz int, origin vec.Vec3, neighbor NeighborFunc) uint8 {
	var du, dv [3]int
	switch f.Axis() {
	case 0:
		du, dv = [3]int{0, 0, 1}, [3]int{0, 1, 0}
	case 1:
		du, dv = [3]int{1, 0, 0}, [3]int{0, 0, 1}
	default:
		du, dv = [3]int{1, 0, 0}, [3]int{0, 1, 0}
	}

	count := uint8(0)
	for _, d := range [4][3]int{du, {-du[0], -du[1], -du[2]}, dv, {-dv[0], -dv[1], -dv[2]}} {
		v, ok := g.voxelAt(voxels, nx+d[0], ny+d[1], nz+d[2], origin, neighbor)
		if ok && g.isOccluder(v) {
			count++
		}
	}
	return min(count, 3)
}

// mergeSlice объединяет грани среза: сначала по ширине (u), затем по высоте (v)
func (g *Generator) mergeSlice(slice int, f Face, m *ChunkMesh) {
	const size = voxel.ChunkSize
	faces := g.faces[slice<<12 : (slice+1)<<12]
	g.visited = [size]uint64{}

	for v := 0; v < size; v++ {
		for u := 0; u < size; u++ {
			if g.visited[v]&(1<<u) != 0 {
				continue
			}
			key := faces[v<<6|u]
			if key == 0 {
				continue
			}

			width, height := 1, 1
			if g.config.Greedy {
				for u+width < size && g.visited[v]&(1<<(u+width)) == 0 && faces[v<<6|(u+width)] == key {
					width++
				}
			rows:
				for v+height < size {
					row := v + height
					for du := 0; du < width; du++ {
						if g.visited[row]&(1<<(u+du)) != 0 || faces[row<<6|(u+du)] != key {
							break rows
						}
					}
					height++
				}
			}

			var mask uint64
			if width == size {
				mask = ^uint64(0)
			} else {
				mask = (uint64(1)<<width - 1) << u
			}
			for dv := 0; dv < height; dv++ {
				g.visited[v+dv] |= mask
			}

			x, y, z := f.Unplane(slice, u, v)
			g.emitQuad(m, f, x, y, z, width, height, key)
		}
	}
}

// emitQuad добавляет квад с вершинами против часовой стрелки, если смотреть снаружи
func (g *Generator) emitQuad(m *ChunkMesh, f Face, x, y, z, w, h int, key faceKey) {
	bx, by, bz := uint8(x), uint8(y), uint8(z)
	uw, uh := uint8(w), uint8(h)

	var c [4][3]uint8
	switch f {
	case FaceNegX:
		c = [4][3]uint8{{bx, by, bz}, {bx, by, bz + uw}, {bx, by + uh, bz + uw}, {bx, by + uh, bz}}
	case FacePosX:
		c = [4][3]uint8{{bx + 1, by, bz + uw}, {bx + 1, by, bz}, {bx + 1, by + uh, bz}, {bx + 1, by + uh, bz + uw}}
	case FaceNegY:
		c = [4][3]uint8{{bx, by, bz}, {bx + uw, by, bz}, {bx + uw, by, bz + uh}, {bx, by, bz + uh}}
	case FacePosY:
		c = [4][3]uint8{{bx, by + 1, bz + uh}, {bx + uw, by + 1, bz + uh}, {bx + uw, by + 1, bz}, {bx, by + 1, bz}}
	case FaceNegZ:
		c = [4][3]uint8{{bx + uw, by, bz}, {bx, by, bz}, {bx, by + uh, bz}, {bx + uw, by + uh, bz}}
	default:
		c = [4][3]uint8{{bx, by, bz + 1}, {bx + uw, by, bz + 1}, {bx + uw, by + uh, bz + 1}, {bx, by + uh, bz + 1}}
	}

	// Текстурные координаты растягиваются на весь прямоугольник
	uv := [4][2]uint8{{0, 0}, {uw, 0}, {uw, uh}, {0, uh}}
	id, light, ao := key.id(), key.light(), key.ao()

	var verts [4]PackedVertex
	for i := range verts {
		verts[i] = NewPackedVertex(c[i][0], c[i][1], c[i][2], f, uv[i][0], uv[i][1], id, light, ao)
	}
	m.AddQuad(verts[0], verts[1], verts[2], verts[3])
}
