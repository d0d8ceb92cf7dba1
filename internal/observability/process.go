package observability

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats снимает показатели процесса: время работы, память, CPU
type ProcessStats struct {
	StartTime time.Time
}

// NewProcessStats создает новый экземпляр метрик процесса
func NewProcessStats() *ProcessStats {
	return &ProcessStats{
		StartTime: time.Now(),
	}
}

// Uptime возвращает время работы в читаемом виде
func (ps *ProcessStats) Uptime() string {
	return FormatUptime(time.Since(ps.StartTime))
}

// FormatUptime форматирует длительность как "1д 2ч 3м 4с", опуская старшие нулевые части
func FormatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// MemoryUsageMB возвращает размер кучи Go в мегабайтах
func (ps *ProcessStats) MemoryUsageMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / 1024 / 1024
}

// CPUUsage возвращает использование CPU процессом в процентах
func (ps *ProcessStats) CPUUsage() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		// Если не удалось получить метрику процесса, попробуем системную
		cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil || len(cpuPercents) == 0 {
			return 0, err
		}
		return cpuPercents[0], nil
	}

	return cpuPercent, nil
}

// RSSMB возвращает резидентную память процесса в мегабайтах
func (ps *ProcessStats) RSSMB() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / 1024 / 1024, nil
}

// Summary возвращает однострочную сводку для периодического лога
func (ps *ProcessStats) Summary() string {
	line := fmt.Sprintf("uptime=%s heap=%.1fMB goroutines=%d", ps.Uptime(), ps.MemoryUsageMB(), runtime.NumGoroutine())
	if rss, err := ps.RSSMB(); err == nil {
		line += fmt.Sprintf(" rss=%.1fMB", rss)
	}
	if c, err := ps.CPUUsage(); err == nil {
		line += fmt.Sprintf(" cpu=%.1f%%", c)
	}
	return line
}
