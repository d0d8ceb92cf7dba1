package mesh

// PackedVertex: вершина сетки в 8 байтах.
//
//	Data1: x[0:7] y[7:14] z[14:21] normal[21:24] u[24:31]
//	Data2: voxel id[0:16] light[16:20] ao[20:22] v[22:29]
//
// Координаты занимают 7 бит: вершины лежат на сетке 0..64 включительно.
// u и v: текстурные координаты угла квада в блоках (0..64), поэтому
// текстура с повтором тайлится по объединённому прямоугольнику.
type PackedVertex struct {
	Data1 uint32
	Data2 uint32
}

// PackedVertexSize: размер вершины в байтах
const PackedVertexSize = 8

const (
	posMask    = 0x7F
	normalMask = 0x07
	uvMask     = 0x7F
	lightMask  = 0x0F
	aoMask     = 0x03

	posYShift   = 7
	posZShift   = 14
	normalShift = 21
	uShift      = 24

	lightShift = 16
	aoShift    = 20
	vShift     = 22
)

// NewPackedVertex упаковывает атрибуты вершины; лишние биты отбрасываются
func NewPackedVertex(x, y, z uint8, normal Face, u, v uint8, voxelID uint16, light, ao uint8) PackedVertex {
	return PackedVertex{
		Data1: uint32(x)&posMask |
			(uint32(y)&posMask)<<posYShift |
			(uint32(z)&posMask)<<posZShift |
			(uint32(normal)&normalMask)<<normalShift |
			(uint32(u)&uvMask)<<uShift,
		Data2: uint32(voxelID) |
			(uint32(light)&lightMask)<<lightShift |
			(uint32(ao)&aoMask)<<aoShift |
			(uint32(v)&uvMask)<<vShift,
	}
}

func (p PackedVertex) X() uint8 { return uint8(p.Data1 & posMask) }

func (p PackedVertex) Y() uint8 { return uint8(p.Data1 >> posYShift & posMask) }

func (p PackedVertex) Z() uint8 { return uint8(p.Data1 >> posZShift & posMask) }

func (p PackedVertex) Normal() Face { return Face(p.Data1 >> normalShift & normalMask) }

// U возвращает текстурную координату вдоль ширины квада
func (p PackedVertex) U() uint8 { return uint8(p.Data1 >> uShift & uvMask) }

func (p PackedVertex) VoxelID() uint16 { return uint16(p.Data2) }

func (p PackedVertex) Light() uint8 { return uint8(p.Data2 >> lightShift & lightMask) }

func (p PackedVertex) AO() uint8 { return uint8(p.Data2 >> aoShift & aoMask) }

// V возвращает текстурную координату вдоль высоты квада
func (p PackedVertex) V() uint8 { return uint8(p.Data2 >> vShift & uvMask) }
