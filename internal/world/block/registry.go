package block

import (
	"sync"
)

// BlockID представляет идентификатор типа блока (совпадает с TypeID вокселя)
type BlockID = uint16

// Константы ID стандартных блоков
const (
	AirBlockID    BlockID = iota // 0
	StoneBlockID                 // 1
	DirtBlockID                  // 2
	GrassBlockID                 // 3
	WaterBlockID                 // 4
	SandBlockID                  // 5
	WoodBlockID                  // 6
	LeavesBlockID                // 7
	GlassBlockID                 // 8
	LightBlockID                 // 9
)

const (
	// MaxBlockTypes: размер таблицы свойств; ID >= MaxBlockTypes отображаются на воздух.
	MaxBlockTypes = 256
	// MaxFluidTypes: сколько жидких типов отслеживается в списке жидкостей.
	MaxFluidTypes = 16

	DefaultFluidViscosity   = 2
	DefaultFluidMaxDistance = 7
	DefaultLightFilter      = 15
)

// Properties описывает физические и визуальные свойства типа блока
type Properties struct {
	Name string
	ID   BlockID

	// Слои текстурного массива для граней +Y, ±X/±Z и -Y
	TextureTop    uint8
	TextureSide   uint8
	TextureBottom uint8

	// Имена файлов текстур; разрешаются в слои через ResolveTextures
	TextureTopFile    string
	TextureSideFile   string
	TextureBottomFile string

	IsSolid       bool
	IsTransparent bool
	IsFluid       bool

	FluidViscosity   uint8   // тиков между шагами растекания
	FluidMaxDistance uint8   // максимальная дальность растекания по горизонтали
	FluidSourceID    BlockID // ID источника для текущей жидкости

	LightEmission uint8 // 0-15
	LightFilter   uint8 // сколько света поглощает блок

	RenderAllFaces bool // не отсекать грани между одинаковыми прозрачными блоками

	Tint [4]uint8 // RGBA
}

// BlocksLight возвращает true, если блок задерживает свет
func (p *Properties) BlocksLight() bool {
	return p.LightFilter > 0 && !p.IsTransparent
}

// HasCollision возвращает true, если сквозь блок нельзя пройти
func (p *Properties) HasCollision() bool {
	return p.IsSolid && !p.IsFluid
}

// newProperties возвращает запись со значениями по умолчанию для загрузчика
func newProperties() Properties {
	return Properties{
		FluidViscosity:   DefaultFluidViscosity,
		FluidMaxDistance: DefaultFluidMaxDistance,
		LightFilter:      DefaultLightFilter,
		Tint:             [4]uint8{255, 255, 255, 255},
	}
}

// Registry: таблица свойств блоков. Создаётся явно и передаётся потребителям.
// Запись читается часто, а изменяется только при загрузке, поэтому доступ защищён RWMutex.
type Registry struct {
	mu         sync.RWMutex
	blocks     [MaxBlockTypes]Properties
	fluidIDs   []BlockID
	registered int
}

// NewRegistry создаёт реестр со стандартным набором блоков
func NewRegistry() *Registry {
	r := &Registry{}
	r.RegisterDefaults()
	return r
}

// RegisterDefaults сбрасывает таблицу к встроенному набору блоков
func (r *Registry) RegisterDefaults() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blocks = [MaxBlockTypes]Properties{}
	r.registered = 0
	for _, p := range defaultBlocks() {
		r.blocks[p.ID] = p
		r.registered++
	}
	r.updateFluidListLocked()
}

func defaultBlocks() []Properties {
	solid := func(name string, id BlockID, top, side, bottom uint8) Properties {
		p := newProperties()
		p.Name, p.ID = name, id
		p.TextureTop, p.TextureSide, p.TextureBottom = top, side, bottom
		p.IsSolid = true
		p.FluidViscosity, p.FluidMaxDistance = 0, 0
		return p
	}

	air := newProperties()
	air.Name = "air"
	air.IsTransparent = true
	air.FluidViscosity, air.FluidMaxDistance, air.LightFilter = 0, 0, 0

	water := newProperties()
	water.Name, water.ID = "water", WaterBlockID
	water.TextureTop, water.TextureSide, water.TextureBottom = 5, 5, 5
	water.IsTransparent = true
	water.IsFluid = true
	water.FluidViscosity = 4
	water.FluidMaxDistance = 7
	water.FluidSourceID = WaterBlockID
	water.LightFilter = 2
	water.RenderAllFaces = true

	leaves := solid("leaves", LeavesBlockID, 9, 9, 9)
	leaves.IsTransparent = true
	leaves.LightFilter = 1
	leaves.RenderAllFaces = true

	glass := solid("glass", GlassBlockID, 10, 10, 10)
	glass.IsTransparent = true
	glass.LightFilter = 0
	glass.RenderAllFaces = true

	light := solid("light", LightBlockID, 11, 11, 11)
	light.LightEmission = 15

	return []Properties{
		air,
		solid("stone", StoneBlockID, 1, 1, 1),
		solid("dirt", DirtBlockID, 2, 2, 2),
		solid("grass", GrassBlockID, 3, 4, 2),
		water,
		solid("sand", SandBlockID, 6, 6, 6),
		solid("wood", WoodBlockID, 7, 8, 7),
		leaves,
		glass,
		light,
	}
}

// Get возвращает свойства блока. Неизвестные ID получают свойства воздуха.
func (r *Registry) Get(id BlockID) Properties {
	if int(id) >= MaxBlockTypes {
		id = AirBlockID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blocks[id]
}

// Set регистрирует или заменяет запись. ID вне таблицы игнорируются.
func (r *Registry) Set(p Properties) bool {
	if int(p.ID) >= MaxBlockTypes {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.blocks[p.ID].Name == "" {
		r.registered++
	}
	r.blocks[p.ID] = p
	r.updateFluidListLocked()
	return true
}

// CopyTable копирует всю таблицу свойств в dst одним захватом блокировки.
// Используется горячими циклами (построение сетки), которым нужен снимок без блокировок.
func (r *Registry) CopyTable(dst *[MaxBlockTypes]Properties) {
	r.mu.RLock()
	*dst = r.blocks
	r.mu.RUnlock()
}

// IsSolid проверяет твёрдость блока
func (r *Registry) IsSolid(id BlockID) bool {
	p := r.Get(id)
	return p.IsSolid
}

// IsTransparent проверяет прозрачность блока
func (r *Registry) IsTransparent(id BlockID) bool {
	p := r.Get(id)
	return p.IsTransparent
}

// IsFluid проверяет, является ли блок жидкостью
func (r *Registry) IsFluid(id BlockID) bool {
	p := r.Get(id)
	return p.IsFluid
}

// HasCollision проверяет, участвует ли блок в столкновениях
func (r *Registry) HasCollision(id BlockID) bool {
	p := r.Get(id)
	return p.HasCollision()
}

// Name возвращает имя блока
func (r *Registry) Name(id BlockID) string {
	p := r.Get(id)
	return p.Name
}

// FluidTypes возвращает копию списка жидких типов
func (r *Registry) FluidTypes() []BlockID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BlockID, len(r.fluidIDs))
	copy(out, r.fluidIDs)
	return out
}

// FluidCount возвращает количество жидких типов
func (r *Registry) FluidCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fluidIDs)
}

// Count возвращает количество зарегистрированных типов
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registered
}

// ResolveTextures заменяет имена файлов текстур на индексы слоёв.
// Отрицательный результат resolver оставляет индекс без изменений.
func (r *Registry) ResolveTextures(resolver func(name string) int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	resolved := 0
	apply := func(file string, dst *uint8) {
		if file == "" {
			return
		}
		if layer := resolver(file); layer >= 0 {
			*dst = uint8(layer)
			resolved++
		}
	}

	for i := range r.blocks {
		b := &r.blocks[i]
		if b.Name == "" {
			continue
		}
		apply(b.TextureTopFile, &b.TextureTop)
		apply(b.TextureSideFile, &b.TextureSide)
		apply(b.TextureBottomFile, &b.TextureBottom)
	}
	return resolved
}

func (r *Registry) updateFluidListLocked() {
	r.fluidIDs = r.fluidIDs[:0]
	for i := 0; i < MaxBlockTypes && len(r.fluidIDs) < MaxFluidTypes; i++ {
		if r.blocks[i].IsFluid {
			r.fluidIDs = append(r.fluidIDs, BlockID(i))
		}
	}
}
