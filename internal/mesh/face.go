package mesh

// Face: направление грани вокселя. Значение совпадает с индексом нормали в вершине.
type Face uint8

const (
	FaceNegX Face = iota // -X (запад)
	FacePosX             // +X (восток)
	FaceNegY             // -Y (низ)
	FacePosY             // +Y (верх)
	FaceNegZ             // -Z (север)
	FacePosZ             // +Z (юг)

	FaceCount = 6
)

var faceNormals = [FaceCount][3]int{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// Normal возвращает единичную нормаль грани
func (f Face) Normal() [3]int { return faceNormals[f] }

// Opposite возвращает противоположную грань
func (f Face) Opposite() Face { return f ^ 1 }

// Axis возвращает ось нормали (0=X, 1=Y, 2=Z)
func (f Face) Axis() int { return int(f) >> 1 }

// Positive возвращает true для граней, смотрящих в положительную сторону оси
func (f Face) Positive() bool { return f&1 == 1 }

// Plane раскладывает локальные координаты на (срез, u, v) для грани.
// X-грани: u=z, v=y; Y-грани: u=x, v=z; Z-грани: u=x, v=y.
func (f Face) Plane(x, y, z int) (slice, u, v int) {
	switch f.Axis() {
	case 0:
		return x, z, y
	case 1:
		return y, x, z
	default:
		return z, x, y
	}
}

// Unplane: обратное к Plane преобразование
func (f Face) Unplane(slice, u, v int) (x, y, z int) {
	switch f.Axis() {
	case 0:
		return slice, v, u
	case 1:
		return u, slice, v
	default:
		return u, v, slice
	}
}

func (f Face) String() string {
	switch f {
	case FaceNegX:
		return "-X"
	case FacePosX:
		return "+X"
	case FaceNegY:
		return "-Y"
	case FacePosY:
		return "+Y"
	case FaceNegZ:
		return "-Z"
	case FacePosZ:
		return "+Z"
	default:
		return "?"
	}
}
