package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestTickReportsPerInterval(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { common.SetLogger(nil) })

	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithInterval(time.Second), WithClock(clock.now))

	stats := renderer.Stats{Compiler: pipeline.Stats{Hits: 10, Misses: 2}, Waiting: 3}
	for range 9 {
		clock.t = clock.t.Add(100 * time.Millisecond)
		assert.False(t, p.Tick(stats))
	}
	clock.t = clock.t.Add(100 * time.Millisecond)
	require.True(t, p.Tick(stats))

	r := p.Last()
	assert.InDelta(t, 10, r.FPS, 0.01)
	assert.Equal(t, uint64(10), r.PipelineHits)
	assert.Equal(t, uint64(2), r.PipelineMisses)
	assert.Equal(t, 3, r.Waiting)
	assert.Contains(t, buf.String(), "pipeline_hits=10")

	stats.Compiler.Hits = 25
	clock.t = clock.t.Add(2 * time.Second)
	require.True(t, p.Tick(stats))
	assert.Equal(t, uint64(15), p.Last().PipelineHits, "hits are reported per interval")
	assert.Equal(t, uint64(0), p.Last().PipelineMisses)
}
