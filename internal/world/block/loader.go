package block

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// blockFile: корневая структура файла описаний блоков:
//
//	[[blocks.stone]]
//	id = 1
//	is_solid = true
//	texture_all = "stone.png"
type blockFile struct {
	Blocks map[string][]map[string]any `toml:"blocks"`
}

// LoadFile загружает описания блоков из файла поверх текущей таблицы.
// Если файл не открывается, таблица сбрасывается к стандартному набору и возвращается ошибка.
func (r *Registry) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		r.RegisterDefaults()
		return 0, fmt.Errorf("открытие файла блоков %s: %w", path, err)
	}
	defer f.Close()

	n, err := r.Load(f)
	if err != nil {
		return n, fmt.Errorf("загрузка блоков из %s: %w", path, err)
	}
	return n, nil
}

// Load читает описания блоков из reader и возвращает число загруженных записей.
func (r *Registry) Load(reader io.Reader) (int, error) {
	var doc blockFile
	if err := toml.NewDecoder(reader).Decode(&doc); err != nil {
		return 0, fmt.Errorf("разбор TOML: %w", err)
	}

	names := make([]string, 0, len(doc.Blocks))
	for name := range doc.Blocks {
		names = append(names, name)
	}
	sort.Strings(names)

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, name := range names {
		for _, entry := range doc.Blocks[name] {
			p := newProperties()
			p.Name = name
			for key, value := range entry {
				applyProperty(&p, key, value)
			}
			if int(p.ID) >= MaxBlockTypes {
				continue
			}
			if r.blocks[p.ID].Name == "" {
				r.registered++
			}
			r.blocks[p.ID] = p
			loaded++
		}
	}

	r.ensureAirLocked()
	r.updateFluidListLocked()
	return loaded, nil
}

// ensureAirLocked гарантирует корректную запись воздуха в слоте 0
func (r *Registry) ensureAirLocked() {
	if r.blocks[0].Name != "" && !r.blocks[0].IsSolid && !r.blocks[0].IsFluid {
		return
	}
	if r.blocks[0].Name == "" {
		r.registered++
	}
	r.blocks[0] = defaultBlocks()[0]
}

func applyProperty(p *Properties, key string, value any) {
	switch key {
	case "id":
		p.ID = BlockID(toInt(value))
	case "is_solid":
		p.IsSolid = toBool(value)
	case "is_transparent":
		p.IsTransparent = toBool(value)
	case "is_fluid":
		p.IsFluid = toBool(value)
	case "fluid_viscosity":
		p.FluidViscosity = uint8(toInt(value))
	case "fluid_max_distance":
		p.FluidMaxDistance = uint8(toInt(value))
	case "fluid_source_id":
		p.FluidSourceID = BlockID(toInt(value))
	case "light_emission":
		p.LightEmission = uint8(toInt(value))
	case "light_filter":
		p.LightFilter = uint8(toInt(value))
	case "render_all_faces":
		p.RenderAllFaces = toBool(value)
	case "texture_top":
		setTexture(value, &p.TextureTop, &p.TextureTopFile)
	case "texture_side":
		setTexture(value, &p.TextureSide, &p.TextureSideFile)
	case "texture_bottom":
		setTexture(value, &p.TextureBottom, &p.TextureBottomFile)
	case "texture_all":
		setTexture(value, &p.TextureTop, &p.TextureTopFile)
		setTexture(value, &p.TextureSide, &p.TextureSideFile)
		setTexture(value, &p.TextureBottom, &p.TextureBottomFile)
	case "tint_r":
		p.Tint[0] = uint8(toInt(value))
	case "tint_g":
		p.Tint[1] = uint8(toInt(value))
	case "tint_b":
		p.Tint[2] = uint8(toInt(value))
	case "tint_a":
		p.Tint[3] = uint8(toInt(value))
	}
}

// setTexture: значение с ".png" считается именем файла, остальное: индексом слоя.
func setTexture(value any, index *uint8, file *string) {
	if s, ok := value.(string); ok && strings.Contains(strings.ToLower(s), ".png") {
		*file = s
		return
	}
	*index = uint8(toInt(value))
}

func toInt(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	}
	return 0
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v == 1
	case string:
		return v == "true" || v == "1"
	}
	return false
}
