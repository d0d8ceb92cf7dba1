package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot: мгновенный срез счётчиков ядра мира.
// Счётчики монотонны, экспортер сам вычисляет приращения.
type Snapshot struct {
	ChunksGenerated uint64
	ChunksLoaded    uint64
	ChunksUnloaded  uint64
	ChunksResident  int
	DirtyChunks     int

	MeshPending   int
	MeshCompleted uint64
	MeshDropped   uint64

	FluidProcessed uint64
	FluidPending   int

	TicksTotal uint64
	TPS        float64
	Lagging    bool
}

// StatsProvider отдаёт текущий срез счётчиков
type StatsProvider interface {
	Snapshot() Snapshot
}

// StatsFunc позволяет использовать функцию как StatsProvider
type StatsFunc func() Snapshot

func (f StatsFunc) Snapshot() Snapshot { return f() }

// MetricsExporter управляет HTTP-эндпоинтом Prometheus и периодически обновляет Gauge/Counter.
type MetricsExporter struct {
	provider StatsProvider
	registry *prometheus.Registry
	interval time.Duration
	server   *http.Server
	quit     chan struct{}
	done     chan struct{}
	prev     Snapshot

	chunksGenerated prometheus.Counter
	chunksLoaded    prometheus.Counter
	chunksUnloaded  prometheus.Counter
	chunksResident  prometheus.Gauge
	dirtyChunks     prometheus.Gauge
	meshPending     prometheus.Gauge
	meshCompleted   prometheus.Counter
	meshDropped     prometheus.Counter
	fluidProcessed  prometheus.Counter
	fluidPending    prometheus.Gauge
	ticks           prometheus.Counter
	tps             prometheus.Gauge
	lagging         prometheus.Gauge
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики в registry, но не запускает HTTP-сервер.
func NewMetricsExporter(provider StatsProvider, registry *prometheus.Registry, worldID string) *MetricsExporter {
	labels := prometheus.Labels{"world": worldID}
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel", Subsystem: subsystem, Name: name, Help: help, ConstLabels: labels,
		})
	}
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel", Subsystem: subsystem, Name: name, Help: help, ConstLabels: labels,
		})
	}

	me := &MetricsExporter{
		provider: provider,
		registry: registry,
		interval: time.Second,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),

		chunksGenerated: counter("world", "chunks_generated_total", "Чанков, заполненных генератором."),
		chunksLoaded:    counter("world", "chunks_loaded_total", "Чанков, загруженных в мир."),
		chunksUnloaded:  counter("world", "chunks_unloaded_total", "Чанков, выгруженных из мира."),
		chunksResident:  gauge("world", "chunks_resident", "Чанков в памяти."),
		dirtyChunks:     gauge("world", "dirty_chunks", "Чанков, ожидающих перестроения сетки."),
		meshPending:     gauge("mesh", "jobs_pending", "Задач построения сетки в очереди и в работе."),
		meshCompleted:   counter("mesh", "jobs_completed_total", "Завершённых задач построения сетки."),
		meshDropped:     counter("mesh", "results_dropped_total", "Результатов, вытесненных из переполненной очереди."),
		fluidProcessed:  counter("fluid", "updates_processed_total", "Обработанных обновлений жидкости."),
		fluidPending:    gauge("fluid", "updates_pending", "Обновлений жидкости в очереди."),
		ticks:           counter("tick", "ticks_total", "Выполненных тиков симуляции."),
		tps:             gauge("tick", "tps", "Фактическая частота тиков."),
		lagging:         gauge("tick", "lagging", "1, если симуляция не успевает."),
	}

	registry.MustRegister(
		me.chunksGenerated, me.chunksLoaded, me.chunksUnloaded, me.chunksResident, me.dirtyChunks,
		me.meshPending, me.meshCompleted, me.meshDropped,
		me.fluidProcessed, me.fluidPending,
		me.ticks, me.tps, me.lagging,
	)
	return me
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112").
// Метод неблокирующий: HTTP-сервер и цикл обновления стартуют в отдельных горутинах.
func (m *MetricsExporter) StartHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	go m.loop()
}

// Stop останавливает обновление метрик и HTTP-сервер
// Без StartHTTP ничего не делает.
func (m *MetricsExporter) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	close(m.quit)
	<-m.done
	return m.server.Shutdown(ctx)
}

func (m *MetricsExporter) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.done)

	for {
		select {
		case <-ticker.C:
			m.Collect()
		case <-m.quit:
			return
		}
	}
}

// Collect снимает срез у провайдера и обновляет метрики.
// Counter нельзя выставить напрямую, поэтому прибавляется приращение с прошлого среза.
func (m *MetricsExporter) Collect() {
	stats := m.provider.Snapshot()
	prev := m.prev

	addDelta(m.chunksGenerated, stats.ChunksGenerated, prev.ChunksGenerated)
	addDelta(m.chunksLoaded, stats.ChunksLoaded, prev.ChunksLoaded)
	addDelta(m.chunksUnloaded, stats.ChunksUnloaded, prev.ChunksUnloaded)
	addDelta(m.meshCompleted, stats.MeshCompleted, prev.MeshCompleted)
	addDelta(m.meshDropped, stats.MeshDropped, prev.MeshDropped)
	addDelta(m.fluidProcessed, stats.FluidProcessed, prev.FluidProcessed)
	addDelta(m.ticks, stats.TicksTotal, prev.TicksTotal)

	m.chunksResident.Set(float64(stats.ChunksResident))
	m.dirtyChunks.Set(float64(stats.DirtyChunks))
	m.meshPending.Set(float64(stats.MeshPending))
	m.fluidPending.Set(float64(stats.FluidPending))
	m.tps.Set(stats.TPS)
	if stats.Lagging {
		m.lagging.Set(1)
	} else {
		m.lagging.Set(0)
	}

	m.prev = stats
}

func addDelta(c prometheus.Counter, cur, prev uint64) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}
