package mesh

import (
	"github.com/annel0/voxel-core/internal/vec"
)

// DrawCommand повторяет раскладку DrawElementsIndirectCommand (20 байт)
type DrawCommand struct {
	Count         uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	BaseInstance  uint32
}

// ChunkMesh: сетка одного чанка, готовая к загрузке на GPU.
// Принадлежит тому, кто её получил: генератору, затем очереди, затем отрисовке.
type ChunkMesh struct {
	Position vec.ChunkPos
	Vertices []PackedVertex
	Indices  []uint32

	QuadCount     int
	TriangleCount int

	Uploaded    bool
	NeedsUpdate bool
}

// NewChunkMesh создаёт пустую сетку чанка
func NewChunkMesh(pos vec.ChunkPos) *ChunkMesh {
	return &ChunkMesh{Position: pos}
}

// AddQuad добавляет четыре вершины и два треугольника (0,1,2) и (2,3,0)
func (m *ChunkMesh) AddQuad(v0, v1, v2, v3 PackedVertex) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, v0, v1, v2, v3)
	m.Indices = append(m.Indices,
		base, base+1, base+2,
		base+2, base+3, base,
	)
	m.QuadCount++
	m.TriangleCount = m.QuadCount * 2
}

// Clear очищает данные, сохраняя выделенную память
func (m *ChunkMesh) Clear() {
	m.Vertices = m.Vertices[:0]
	m.Indices = m.Indices[:0]
	m.QuadCount = 0
	m.TriangleCount = 0
	m.NeedsUpdate = true
}

// Reserve резервирует место под quads квадов
func (m *ChunkMesh) Reserve(quads int) {
	if need := len(m.Vertices) + quads*4; cap(m.Vertices) < need {
		v := make([]PackedVertex, len(m.Vertices), need)
		copy(v, m.Vertices)
		m.Vertices = v
	}
	if need := len(m.Indices) + quads*6; cap(m.Indices) < need {
		idx := make([]uint32, len(m.Indices), need)
		copy(idx, m.Indices)
		m.Indices = idx
	}
}

// IsEmpty возвращает true, если в сетке нет квадов
func (m *ChunkMesh) IsEmpty() bool {
	return m.QuadCount == 0
}

// MemoryUsage возвращает объём данных вершин и индексов в байтах
func (m *ChunkMesh) MemoryUsage() int {
	return len(m.Vertices)*PackedVertexSize + len(m.Indices)*4
}

// DrawCommand возвращает команду отрисовки всей сетки
func (m *ChunkMesh) DrawCommand() DrawCommand {
	return DrawCommand{Count: uint32(len(m.Indices)), InstanceCount: 1}
}
