package world

import (
	"sync"
	"time"
)

// TickConfig: параметры фиксированного шага симуляции
type TickConfig struct {
	TargetTPS        int     // целевое число тиков в секунду
	MaxTicksPerFrame int     // предел тиков за кадр, защищает от лавинообразного отставания
	SimulationSpeed  float64 // 0: пауза, 1: обычная скорость
}

// DefaultTickConfig возвращает 20 TPS, до 10 тиков за кадр, скорость 1.0
func DefaultTickConfig() TickConfig {
	return TickConfig{TargetTPS: 20, MaxTicksPerFrame: 10, SimulationSpeed: 1.0}
}

// TickDuration возвращает длительность одного тика
func (c TickConfig) TickDuration() time.Duration {
	return time.Second / time.Duration(max(c.TargetTPS, 1))
}

// DeltaTime возвращает шаг симуляции в секундах
func (c TickConfig) DeltaTime() float64 {
	return 1.0 / float64(max(c.TargetTPS, 1))
}

// TickStats: статистика цикла
type TickStats struct {
	TotalTicks  uint64
	CurrentTPS  int
	TickTime    time.Duration // среднее время выполнения тика в последнем кадре
	Accumulator time.Duration
	Running     bool
	Lagging     bool // кадр пришлось обрезать, симуляция не успевает
}

// TickManager реализует цикл с фиксированным шагом и аккумулятором времени.
// Update вызывается из одного цикла, Stats можно читать из любой горутины.
type TickManager struct {
	mu     sync.Mutex
	config TickConfig
	stats  TickStats

	accumulator     time.Duration
	lastStatsUpdate time.Time
	ticksThisSecond int

	now func() time.Time
}

// NewTickManager создаёт менеджер тиков
func NewTickManager(config TickConfig) *TickManager {
	if config.TargetTPS < 1 {
		config.TargetTPS = 1
	}
	if config.MaxTicksPerFrame < 1 {
		config.MaxTicksPerFrame = 1
	}
	if config.SimulationSpeed < 0 {
		config.SimulationSpeed = 0
	}
	return &TickManager{config: config, now: time.Now}
}

// Config возвращает текущую конфигурацию
func (tm *TickManager) Config() TickConfig {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.config
}

// TickDuration возвращает длительность тика
func (tm *TickManager) TickDuration() time.Duration {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.config.TickDuration()
}

// SetSimulationSpeed задаёт множитель скорости; отрицательные значения обращаются в 0
func (tm *TickManager) SetSimulationSpeed(speed float64) {
	tm.mu.Lock()
	tm.config.SimulationSpeed = max(speed, 0)
	tm.mu.Unlock()
}

// SetTargetTPS задаёт целевой TPS (не меньше 1)
func (tm *TickManager) SetTargetTPS(tps int) {
	tm.mu.Lock()
	tm.config.TargetTPS = max(tps, 1)
	tm.mu.Unlock()
}

// Start сбрасывает статистику и запускает цикл
func (tm *TickManager) Start() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.stats = TickStats{Running: true}
	tm.accumulator = 0
	tm.ticksThisSecond = 0
	tm.lastStatsUpdate = tm.now()
}

// Stop останавливает цикл; Update после этого ничего не делает
func (tm *TickManager) Stop() {
	tm.mu.Lock()
	tm.stats.Running = false
	tm.mu.Unlock()
}

// Pause замораживает симуляцию
func (tm *TickManager) Pause() { tm.SetSimulationSpeed(0) }

// Resume возвращает обычную скорость
func (tm *TickManager) Resume() { tm.SetSimulationSpeed(1) }

// IsRunning возвращает true между Start и Stop
func (tm *TickManager) IsRunning() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.stats.Running
}

// IsPaused возвращает true при нулевой скорости
func (tm *TickManager) IsPaused() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.config.SimulationSpeed == 0
}

// Update добавляет прошедшее время кадра и выполняет накопившиеся тики.
// onTick получает номер тика, начиная с 0. Возвращает долю до следующего тика
// (alpha для интерполяции отрисовки).
func (tm *TickManager) Update(frameTime time.Duration, onTick func(tick uint64)) float64 {
	tm.mu.Lock()
	if !tm.stats.Running {
		tm.mu.Unlock()
		return 0
	}

	frameTime = time.Duration(float64(frameTime) * tm.config.SimulationSpeed)
	tickDuration := tm.config.TickDuration()
	maxFrame := tickDuration * time.Duration(tm.config.MaxTicksPerFrame)
	tm.stats.Lagging = frameTime > maxFrame
	if tm.stats.Lagging {
		frameTime = maxFrame
	}
	tm.accumulator += frameTime

	var ticks []uint64
	for tm.accumulator >= tickDuration && len(ticks) < tm.config.MaxTicksPerFrame {
		ticks = append(ticks, tm.stats.TotalTicks)
		tm.accumulator -= tickDuration
		tm.stats.TotalTicks++
		tm.ticksThisSecond++
	}
	tm.mu.Unlock()

	// Колбэки выполняются без блокировки: в них можно читать Stats
	start := tm.now()
	if onTick != nil {
		for _, tick := range ticks {
			onTick(tick)
		}
	}
	end := tm.now()

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if len(ticks) > 0 {
		tm.stats.TickTime = end.Sub(start) / time.Duration(len(ticks))
	}
	if end.Sub(tm.lastStatsUpdate) >= time.Second {
		tm.stats.CurrentTPS = tm.ticksThisSecond
		tm.ticksThisSecond = 0
		tm.lastStatsUpdate = end
	}
	tm.stats.Accumulator = tm.accumulator
	return float64(tm.accumulator) / float64(tickDuration)
}

// SimulationTime возвращает время симуляции в секундах
func (tm *TickManager) SimulationTime() float64 {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return float64(tm.stats.TotalTicks) * tm.config.DeltaTime()
}

// Stats возвращает копию статистики
func (tm *TickManager) Stats() TickStats {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.stats
}
