package block

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, 10, r.Count(), "Стандартный набор содержит 10 блоков")
	assert.Equal(t, "air", r.Name(AirBlockID))
	assert.True(t, r.IsSolid(StoneBlockID))
	assert.False(t, r.IsSolid(WaterBlockID))
	assert.True(t, r.IsFluid(WaterBlockID))
	assert.False(t, r.HasCollision(WaterBlockID), "Сквозь воду можно пройти")
	assert.True(t, r.HasCollision(GlassBlockID))

	grass := r.Get(GrassBlockID)
	assert.Equal(t, [3]uint8{3, 4, 2}, [3]uint8{grass.TextureTop, grass.TextureSide, grass.TextureBottom})

	water := r.Get(WaterBlockID)
	assert.Equal(t, uint8(7), water.FluidMaxDistance)
	assert.Equal(t, WaterBlockID, water.FluidSourceID)
	assert.True(t, water.RenderAllFaces)

	assert.Equal(t, uint8(15), r.Get(LightBlockID).LightEmission)
	assert.Equal(t, []BlockID{WaterBlockID}, r.FluidTypes())
}

func TestRegistry_UnknownIDFallsBackToAir(t *testing.T) {
	r := NewRegistry()

	p := r.Get(300)
	assert.Equal(t, "air", p.Name, "ID вне таблицы должен давать свойства воздуха")
	assert.False(t, p.IsSolid)
}

func TestProperties_Derived(t *testing.T) {
	r := NewRegistry()

	stone := r.Get(StoneBlockID)
	glass := r.Get(GlassBlockID)
	leaves := r.Get(LeavesBlockID)

	assert.True(t, stone.BlocksLight())
	assert.False(t, glass.BlocksLight(), "Стекло пропускает свет")
	assert.False(t, leaves.BlocksLight(), "Листва прозрачна")
}

func TestRegistry_Load(t *testing.T) {
	const data = `
# пользовательские блоки
[[blocks.lava]]
id = 20
is_fluid = true
is_transparent = true
fluid_max_distance = 3
fluid_source_id = 20
light_emission = 15
texture_all = "lava.png"

[[blocks.brick]]
id = 21
is_solid = 1
texture_top = 12
texture_side = "brick_side.PNG"
tint_r = 200
`
	r := NewRegistry()
	n, err := r.Load(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lava := r.Get(20)
	assert.Equal(t, "lava", lava.Name)
	assert.True(t, lava.IsFluid)
	assert.Equal(t, uint8(3), lava.FluidMaxDistance)
	assert.Equal(t, "lava.png", lava.TextureTopFile)
	assert.Equal(t, "lava.png", lava.TextureBottomFile)

	brick := r.Get(21)
	assert.True(t, brick.IsSolid, "Значение 1 должно читаться как true")
	assert.Equal(t, uint8(12), brick.TextureTop)
	assert.Equal(t, "brick_side.PNG", brick.TextureSideFile)
	assert.Equal(t, uint8(200), brick.Tint[0])

	assert.ElementsMatch(t, []BlockID{WaterBlockID, 20}, r.FluidTypes())
	assert.Equal(t, 12, r.Count())
}

func TestRegistry_LoadRejectsBrokenFile(t *testing.T) {
	r := NewRegistry()
	_, err := r.Load(strings.NewReader("[[blocks.bad\nid = "))
	assert.Error(t, err)
	assert.Equal(t, 10, r.Count(), "Таблица не должна меняться при ошибке разбора")
}

func TestRegistry_LoadFileMissingKeepsDefaults(t *testing.T) {
	r := NewRegistry()
	r.Set(Properties{Name: "custom", ID: 42, IsSolid: true})

	_, err := r.LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
	assert.Equal(t, "", r.Name(42), "Таблица должна быть сброшена к стандартной")
	assert.True(t, r.IsSolid(StoneBlockID))
}

func TestRegistry_ResolveTextures(t *testing.T) {
	r := NewRegistry()
	_, err := r.Load(strings.NewReader("[[blocks.ore]]\nid = 30\ntexture_top = \"ore.png\"\ntexture_side = \"missing.png\"\n"))
	require.NoError(t, err)

	layers := map[string]int{"ore.png": 17}
	resolved := r.ResolveTextures(func(name string) int {
		if l, ok := layers[name]; ok {
			return l
		}
		return -1
	})

	assert.Equal(t, 1, resolved)
	ore := r.Get(30)
	assert.Equal(t, uint8(17), ore.TextureTop)
	assert.Equal(t, uint8(0), ore.TextureSide, "Неразрешённая текстура не меняет индекс")
}
