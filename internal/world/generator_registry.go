package world

import (
	"sort"
	"sync"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/world/block"
)

// GeneratorFactory создаёт генератор для заданного сида
type GeneratorFactory func(seed int64) Generator

// GeneratorRegistry хранит фабрики генераторов по имени
type GeneratorRegistry struct {
	mu        sync.RWMutex
	factories map[string]GeneratorFactory
}

// NewGeneratorRegistry создаёт реестр со стандартными генераторами
func NewGeneratorRegistry() *GeneratorRegistry {
	r := &GeneratorRegistry{factories: make(map[string]GeneratorFactory)}
	r.registerDefaults()
	return r
}

func superflatFactory(cfg SuperflatConfig) GeneratorFactory {
	return func(seed int64) Generator {
		c := cfg
		c.Layers = append([]Layer(nil), cfg.Layers...)
		c.Seed = seed
		return NewSuperflatGenerator(c)
	}
}

func (r *GeneratorRegistry) registerDefaults() {
	r.Register("superflat", superflatFactory(ClassicSuperflat()))
	r.Register("stone_world", superflatFactory(StoneWorld(32)))
	r.Register("deep_stone", superflatFactory(StoneWorld(64)))
	r.Register("flat_grass", superflatFactory(SuperflatConfig{Layers: []Layer{
		{BlockType: block.StoneBlockID, Thickness: 1},
		{BlockType: block.DirtBlockID, Thickness: 3},
		{BlockType: block.GrassBlockID, Thickness: 1},
	}}))
	r.Register("water_world", superflatFactory(SuperflatConfig{Layers: []Layer{
		{BlockType: block.StoneBlockID, Thickness: 1},
		{BlockType: block.SandBlockID, Thickness: 2},
		{BlockType: block.WaterBlockID, Thickness: 4},
	}}))
	r.Register("terrain", func(seed int64) Generator {
		return NewTerrainGenerator(DefaultTerrainConfig(seed))
	})
}

// Register добавляет или заменяет фабрику
func (r *GeneratorRegistry) Register(name string, factory GeneratorFactory) {
	if name == "" || factory == nil {
		return
	}
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

// Create создаёт генератор по имени. Для неизвестного имени возвращает nil.
func (r *GeneratorRegistry) Create(name string, seed int64) Generator {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		logging.Warn("неизвестный генератор %q", name)
		return nil
	}
	g := factory(seed)
	g.Initialize()
	return g
}

// Has проверяет наличие генератора
func (r *GeneratorRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List возвращает отсортированные имена генераторов
func (r *GeneratorRegistry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Count возвращает число зарегистрированных генераторов
func (r *GeneratorRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
