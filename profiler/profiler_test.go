package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	p := New()
	p.Record("load", 30*time.Millisecond)
	p.Record("match", 5*time.Millisecond)
	p.Record("load", 10*time.Millisecond)

	phases := p.Phases()
	require.Len(t, phases, 2)

	assert.Equal(t, "load", phases[0].Name)
	assert.Equal(t, int64(2), phases[0].Count)
	assert.Equal(t, 40*time.Millisecond, phases[0].Total)
	assert.Equal(t, 10*time.Millisecond, phases[0].Min)
	assert.Equal(t, 30*time.Millisecond, phases[0].Max)
	assert.Equal(t, 20*time.Millisecond, phases[0].Avg())
	assert.Equal(t, "match", phases[1].Name)
}

func TestStartOperationConcurrent(t *testing.T) {
	p := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := p.StartOperation("image")
			done()
		}()
	}
	wg.Wait()

	phases := p.Phases()
	require.Len(t, phases, 1)
	assert.Equal(t, int64(16), phases[0].Count)
}

func TestPhaseStatsAvgEmpty(t *testing.T) {
	assert.Zero(t, PhaseStats{}.Avg())
}

func TestLogReport(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	p := New()
	p.Record("aggregate", time.Millisecond)
	p.LogReport(logger)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "aggregate", entries[0].Data["phase"])
	assert.Equal(t, "memory usage", entries[1].Message)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
