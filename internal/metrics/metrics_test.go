package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.Transition("pause", nil)
	r.Transition("pause", errors.New("boom"))
	r.Transition("resume", nil)
	r.PhaseSkipped("enforce_windows")
	r.PollFailed()
	r.Reconciled("completed")
	r.Reconciled("completed")
	r.Unmatched(3)
	r.Unmatched(0)
	r.ObserveTick(time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("pause", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("pause", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("resume", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.phaseSkipped.WithLabelValues("enforce_windows")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pollFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.reconciled.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.unmatched))
	assert.Equal(t, 1, testutil.CollectAndCount(r.tickDuration))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.Transition("pause", nil)
		r.PhaseSkipped("sync_batches")
		r.PollFailed()
		r.Reconciled("failed")
		r.Unmatched(1)
		r.ObserveTick(time.Second)
	})
	assert.Nil(t, r.Registry())
}
