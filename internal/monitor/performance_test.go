package monitor

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/arbiscan/internal/models"
)

func TestObserveCycleRecordsSample(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	m := NewPerformanceMonitor(logger)

	assert.Nil(t, m.LastSample())

	m.ObserveCycle(models.CycleSummary{CycleID: "cycle-1"})

	sample := m.LastSample()
	require.NotNil(t, sample)
	assert.Equal(t, "cycle-1", sample.CycleID)
	assert.Positive(t, sample.Goroutines)
	assert.Positive(t, sample.HeapAllocMB)
}

func TestLastSampleIsACopy(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	m := NewPerformanceMonitor(logger)

	m.ObserveCycle(models.CycleSummary{CycleID: "cycle-1"})
	first := m.LastSample()
	first.CycleID = "mutated"

	assert.Equal(t, "cycle-1", m.LastSample().CycleID)
}
