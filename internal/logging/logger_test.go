package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("нечто"), "Неизвестный уровень даёт INFO")
}

func TestLogger_ConsoleLevelFilter(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := newConsoleLogger("mesh", &buf)
	l.SetLevels(WARN, TRACE)

	l.Info("не должно попасть")
	l.Warn("очередь %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [mesh] очередь 3")
}

func TestFileLogger_WritesAllLevels(t *testing.T) {
	dir := t.TempDir()
	l, err := NewFileLogger("world", dir)
	require.NoError(t, err)

	l.SetLevels(ERROR, TRACE)
	l.Debug("чанк %s загружен", "[0,0,0]")
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "world_"))

	data, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [world] чанк [0,0,0] загружен")
}

func TestNewLogger_EmptyComponent(t *testing.T) {
	_, err := NewLogger("")
	assert.Error(t, err)
}

func TestLoggerManager_ReusesLoggers(t *testing.T) {
	lm := NewLoggerManager("")

	a, err := lm.GetLogger("fluid")
	require.NoError(t, err)
	b, err := lm.GetLogger("fluid")
	require.NoError(t, err)
	assert.Same(t, a, b, "Повторный запрос должен вернуть тот же логгер")

	lm.MustGetLogger("mesh")
	assert.Equal(t, []string{"fluid", "mesh"}, lm.ListComponents())

	assert.NoError(t, lm.SetLogLevel("mesh", DEBUG, DEBUG))
	assert.Error(t, lm.SetLogLevel("unknown", DEBUG, DEBUG))

	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestLoggerManager_MustGetLoggerFallsBack(t *testing.T) {
	lm := NewLoggerManager("")
	assert.Same(t, Default(), lm.MustGetLogger(""), "Ошибка создания даёт логгер по умолчанию")
}
