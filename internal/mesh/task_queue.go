package mesh

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/observability"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world/block"
)

var (
	// ErrQueueClosed: очередь остановлена
	ErrQueueClosed = errors.New("очередь построения сеток остановлена")
	// ErrAlreadyQueued: для позиции уже есть незавершённая задача
	ErrAlreadyQueued = errors.New("чанк уже в очереди")
	// ErrSourceUnavailable: источник не отдал воксели (чанк выгружен)
	ErrSourceUnavailable = errors.New("воксели чанка недоступны")
)

// VoxelSource отдаёт копию вокселей чанка. false: чанк недоступен (выгружен).
type VoxelSource interface {
	CopyVoxels(dst []voxel.Voxel) bool
}

// Result: построенная сетка
type Result struct {
	Position vec.ChunkPos
	Mesh     *ChunkMesh
	Success  bool
	Duration time.Duration
}

// QueueConfig: параметры очереди
type QueueConfig struct {
	Workers        int // число воркеров, по умолчанию 4
	ResultCapacity int // предел очереди результатов; 0: без ограничения
	Generator      Config

	// OnDrop получает позиции результатов, вытесненных из переполненной очереди.
	// Вызывается из горутины воркера без блокировок очереди.
	OnDrop func(pos vec.ChunkPos)
}

// DefaultQueueConfig возвращает 4 воркера и неограниченную очередь результатов
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{Workers: 4, Generator: DefaultConfig()}
}

type meshTask struct {
	pos      vec.ChunkPos
	voxels   []voxel.Voxel
	neighbor NeighborFunc
	queuedAt time.Time
}

// TaskQueue асинхронно строит сетки чанков фиксированным пулом воркеров.
//
// Позиция ставится в очередь не более одного раза, пока её задача не завершится.
// Воксели копируются в момент постановки, поэтому воркеры не держат блокировок мира.
type TaskQueue struct {
	config   QueueConfig
	registry *block.Registry
	tracer   trace.Tracer
	logger   *logging.Logger

	// Задачи и счётчики ожидания
	mu       sync.Mutex
	taskCond *sync.Cond
	idleCond *sync.Cond
	tasks    []meshTask
	pending  int // в очереди + в работе
	active   int
	closed   bool

	queuedMu sync.Mutex
	queued   map[vec.ChunkPos]struct{}

	resultsMu sync.Mutex
	results   []Result

	buffers sync.Pool

	submitted atomic.Uint64
	completed atomic.Uint64
	dropped   atomic.Uint64
	rejected  atomic.Uint64

	wg sync.WaitGroup
}

// NewTaskQueue запускает воркеров
func NewTaskQueue(config QueueConfig, registry *block.Registry) *TaskQueue {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.ResultCapacity < 0 {
		config.ResultCapacity = 0
	}
	if registry == nil {
		registry = block.NewRegistry()
	}

	q := &TaskQueue{
		config:   config,
		registry: registry,
		tracer:   observability.Tracer("mesh"),
		logger:   logging.GetMeshLogger(),
		queued:   make(map[vec.ChunkPos]struct{}),
	}
	q.taskCond = sync.NewCond(&q.mu)
	q.idleCond = sync.NewCond(&q.mu)
	q.buffers.New = func() any {
		buf := make([]voxel.Voxel, voxel.ChunkVolume)
		return &buf
	}

	for i := 0; i < config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("🧱 Очередь сеток запущена: %d воркеров, ёмкость результатов %d",
		config.Workers, config.ResultCapacity)
	return q
}

// QueueRemesh ставит чанк в очередь. Возвращает false, если позиция уже в очереди,
// чанк недоступен или очередь остановлена.
func (q *TaskQueue) QueueRemesh(pos vec.ChunkPos, src VoxelSource, neighbor NeighborFunc) bool {
	return q.Enqueue(pos, src, neighbor) == nil
}

// Enqueue: QueueRemesh с причиной отказа
func (q *TaskQueue) Enqueue(pos vec.ChunkPos, src VoxelSource, neighbor NeighborFunc) error {
	if src == nil {
		return ErrSourceUnavailable
	}

	// Дедупликация до копирования
	q.queuedMu.Lock()
	if _, exists := q.queued[pos]; exists {
		q.queuedMu.Unlock()
		q.rejected.Inc()
		return ErrAlreadyQueued
	}
	q.queued[pos] = struct{}{}
	q.queuedMu.Unlock()

	bufPtr := q.buffers.Get().(*[]voxel.Voxel)
	if !src.CopyVoxels(*bufPtr) {
		q.buffers.Put(bufPtr)
		q.unqueue(pos)
		return ErrSourceUnavailable
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.buffers.Put(bufPtr)
		q.unqueue(pos)
		return ErrQueueClosed
	}
	q.tasks = append(q.tasks, meshTask{pos: pos, voxels: *bufPtr, neighbor: neighbor, queuedAt: time.Now()})
	q.pending++
	q.taskCond.Signal()
	q.mu.Unlock()

	q.submitted.Inc()
	return nil
}

// QueueRemeshBatch ставит в очередь несколько чанков. sourceFn возвращает nil для недоступных.
// Возвращает число поставленных задач.
func (q *TaskQueue) QueueRemeshBatch(positions []vec.ChunkPos, sourceFn func(pos vec.ChunkPos) VoxelSource, neighbor NeighborFunc) int {
	queued := 0
	for _, pos := range positions {
		src := sourceFn(pos)
		if src == nil {
			continue
		}
		if q.QueueRemesh(pos, src, neighbor) {
			queued++
		}
	}
	return queued
}

func (q *TaskQueue) unqueue(pos vec.ChunkPos) {
	q.queuedMu.Lock()
	delete(q.queued, pos)
	q.queuedMu.Unlock()
}

// worker забирает задачи, пока очередь не закрыта
func (q *TaskQueue) worker(id int) {
	defer q.wg.Done()
	gen := NewGenerator(q.config.Generator, q.registry)

	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.taskCond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = meshTask{}
		q.tasks = q.tasks[1:]
		q.active++
		q.mu.Unlock()

		q.run(gen, id, task)

		q.mu.Lock()
		q.active--
		q.pending--
		if q.pending == 0 {
			q.idleCond.Broadcast()
		}
		q.mu.Unlock()
	}
}

func (q *TaskQueue) run(gen *Generator, workerID int, task meshTask) {
	_, span := q.tracer.Start(context.Background(), "mesh.generate",
		trace.WithAttributes(
			attribute.Int("worker", workerID),
			attribute.Int64("chunk.x", task.pos.X),
			attribute.Int64("chunk.y", task.pos.Y),
			attribute.Int64("chunk.z", task.pos.Z),
		))
	defer span.End()

	start := time.Now()
	result := Result{Position: task.pos}
	func() {
		defer func() {
			if r := recover(); r != nil {
				q.logger.Error("❌ Построение сетки %s упало: %v", task.pos, r)
				span.SetStatus(codes.Error, "panic")
			}
		}()
		result.Mesh = gen.Generate(task.voxels, task.pos, task.neighbor)
		result.Success = true
	}()
	result.Duration = time.Since(start)

	buf := task.voxels
	q.buffers.Put(&buf)

	if result.Success {
		stats := gen.Stats()
		span.SetAttributes(
			attribute.Int("mesh.quads", stats.Quads),
			attribute.Int("mesh.faces", stats.FacesGenerated),
			attribute.Int("mesh.culled", stats.FacesCulled),
		)
		q.logger.Trace("сетка %s: %d квадов за %v (ожидание %v)",
			task.pos, stats.Quads, result.Duration, start.Sub(task.queuedAt))
	}

	q.pushResult(result)
	q.completed.Inc()
	q.unqueue(task.pos)
}

// pushResult добавляет результат. При переполнении самые старые вытесняются,
// а их позиции уходят в OnDrop, чтобы владелец поставил чанки заново.
func (q *TaskQueue) pushResult(r Result) {
	var evicted []vec.ChunkPos

	q.resultsMu.Lock()
	q.results = append(q.results, r)
	if limit := q.config.ResultCapacity; limit > 0 && len(q.results) > limit {
		over := len(q.results) - limit
		evicted = make([]vec.ChunkPos, over)
		for i := range evicted {
			evicted[i] = q.results[i].Position
		}
		clear(q.results[:over])
		q.results = q.results[over:]
	}
	q.resultsMu.Unlock()

	if len(evicted) == 0 {
		return
	}
	q.dropped.Add(uint64(len(evicted)))
	if q.config.OnDrop == nil {
		q.logger.Warn("⚠️ Очередь результатов переполнена, потеряно сеток: %d", len(evicted))
		return
	}
	for _, pos := range evicted {
		q.config.OnDrop(pos)
	}
}

// GetCompleted забирает до limit готовых результатов в порядке завершения
func (q *TaskQueue) GetCompleted(limit int) []Result {
	q.resultsMu.Lock()
	defer q.resultsMu.Unlock()

	n := min(limit, len(q.results))
	if n <= 0 {
		return nil
	}
	out := make([]Result, n)
	copy(out, q.results[:n])
	clear(q.results[:n])
	q.results = q.results[n:]
	return out
}

// HasCompleted проверяет наличие готовых результатов
func (q *TaskQueue) HasCompleted() bool {
	q.resultsMu.Lock()
	defer q.resultsMu.Unlock()
	return len(q.results) > 0
}

// PendingCount возвращает число задач в очереди и в работе
func (q *TaskQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// CompletedCount возвращает число завершённых задач за всё время
func (q *TaskQueue) CompletedCount() uint64 { return q.completed.Load() }

// DroppedCount возвращает число результатов, вытесненных из переполненной очереди
func (q *TaskQueue) DroppedCount() uint64 { return q.dropped.Load() }

// RejectedCount возвращает число отклонённых дубликатов
func (q *TaskQueue) RejectedCount() uint64 { return q.rejected.Load() }

// SubmittedCount возвращает число принятых задач
func (q *TaskQueue) SubmittedCount() uint64 { return q.submitted.Load() }

// WorkerCount возвращает размер пула
func (q *TaskQueue) WorkerCount() int { return q.config.Workers }

// WaitIdle блокирует до опустошения очереди и завершения всех задач.
// Только для остановки и тестов.
func (q *TaskQueue) WaitIdle() {
	q.mu.Lock()
	for q.pending > 0 {
		q.idleCond.Wait()
	}
	q.mu.Unlock()
}

// Shutdown отбрасывает невзятые задачи и дожидается воркеров. Повторный вызов ничего не делает.
func (q *TaskQueue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	discarded := q.tasks
	q.tasks = nil
	q.pending -= len(discarded)
	q.taskCond.Broadcast()
	q.mu.Unlock()

	for _, t := range discarded {
		q.unqueue(t.pos)
	}
	q.wg.Wait()

	q.mu.Lock()
	q.idleCond.Broadcast()
	q.mu.Unlock()
	q.logger.Info("🧱 Очередь сеток остановлена (отброшено задач: %d)", len(discarded))
}

// Close реализует io.Closer
func (q *TaskQueue) Close() error {
	q.Shutdown()
	return nil
}
