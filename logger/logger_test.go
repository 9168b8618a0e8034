package logger

import (
	"os"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("FM_LOG_FOLDER", os.TempDir())
	InitLogger(logging.DEBUG)
	os.Exit(m.Run())
}

func TestGetLogsRespectsLimit(t *testing.T) {
	logBuffer = nil
	for i := 0; i < 5; i++ {
		Info("limit entry", i)
	}

	assert.Len(t, GetLogs(3, "INFO"), 3)
	assert.Len(t, GetLogs(5, "INFO"), 5)
	assert.Len(t, GetLogs(10, "INFO"), 5)
}

func TestGetLogsFiltersByLevel(t *testing.T) {
	logBuffer = nil
	Debug("debug entry")
	Info("info entry")
	Error("error entry")

	infoAndAbove := GetLogs(10, "INFO")
	require.Len(t, infoAndAbove, 2)
	for _, line := range infoAndAbove {
		assert.False(t, strings.Contains(line, "debug entry"))
	}

	assert.Len(t, GetLogs(10, "DEBUG"), 3)
}

func TestGetLogsNewestFirst(t *testing.T) {
	logBuffer = nil
	Info("older entry")
	Info("newer entry")

	lines := GetLogs(1, "INFO")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "newer entry")
}
