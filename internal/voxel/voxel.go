package voxel

// Voxel: упакованное 32-битное состояние одной клетки мира.
//
//	биты 0-15  : ID типа блока (0 = воздух)
//	биты 16-19 : солнечный свет
//	биты 20-23 : свет от источников (факелы)
//	биты 24-31 : метаданные (уровень жидкости 0-8, поворот)
type Voxel uint32

const (
	typeMask  = 0xFFFF
	sunShift  = 16
	torchShft = 20
	metaShift = 24
	lightMask = 0xF
	metaMask  = 0xFF
)

// Air: пустой воксель без света и метаданных.
const Air Voxel = 0

// MaxOpaqueID: типы с ID ниже этого значения считаются непрозрачными
// при быстрой проверке без обращения к реестру блоков.
const MaxOpaqueID = 256

// New создаёт воксель указанного типа без света и метаданных.
func New(typeID uint16) Voxel {
	return Voxel(typeID)
}

// NewFull создаёт воксель со всеми полями. Лишние биты света и метаданных отбрасываются.
func NewFull(typeID uint16, sunlight, torchlight, metadata uint8) Voxel {
	return Voxel(uint32(typeID) |
		uint32(sunlight&lightMask)<<sunShift |
		uint32(torchlight&lightMask)<<torchShft |
		uint32(metadata)<<metaShift)
}

// TypeID возвращает ID типа блока
func (v Voxel) TypeID() uint16 { return uint16(v & typeMask) }

// Sunlight возвращает уровень солнечного света (0-15)
func (v Voxel) Sunlight() uint8 { return uint8(v>>sunShift) & lightMask }

// Torchlight возвращает уровень света от источников (0-15)
func (v Voxel) Torchlight() uint8 { return uint8(v>>torchShft) & lightMask }

// Metadata возвращает байт метаданных
func (v Voxel) Metadata() uint8 { return uint8(v >> metaShift) }

// FluidLevel возвращает уровень жидкости. Значение осмысленно только для жидких типов.
func (v Voxel) FluidLevel() uint8 { return v.Metadata() }

// LightLevel возвращает максимум из солнечного и факельного света.
func (v Voxel) LightLevel() uint8 {
	return max(v.Sunlight(), v.Torchlight())
}

// IsAir проверяет, является ли воксель воздухом
func (v Voxel) IsAir() bool { return v.TypeID() == 0 }

// IsOpaque: быстрая проверка непрозрачности по диапазону ID.
func (v Voxel) IsOpaque() bool {
	id := v.TypeID()
	return id > 0 && id < MaxOpaqueID
}

// WithType возвращает копию с другим типом
func (v Voxel) WithType(typeID uint16) Voxel {
	return v&^typeMask | Voxel(typeID)
}

// WithSunlight возвращает копию с другим уровнем солнечного света
func (v Voxel) WithSunlight(level uint8) Voxel {
	return v&^(lightMask<<sunShift) | Voxel(level&lightMask)<<sunShift
}

// WithTorchlight возвращает копию с другим уровнем факельного света
func (v Voxel) WithTorchlight(level uint8) Voxel {
	return v&^(lightMask<<torchShft) | Voxel(level&lightMask)<<torchShft
}

// WithMetadata возвращает копию с другими метаданными
func (v Voxel) WithMetadata(meta uint8) Voxel {
	return v&^(metaMask<<metaShift) | Voxel(meta)<<metaShift
}
