package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
	"github.com/qs3c/ats_resume_server/internal/testutil"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen []int64
	done chan struct{}
	want int
}

func (h *recordingHandler) Process(ctx context.Context, msg *queue.JobMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, msg.JobID)
	if len(h.seen) == h.want {
		close(h.done)
	}
	return nil
}

func TestRun_ConsumesUntilCancelled(t *testing.T) {
	rdb, _ := testutil.SetupTestRedis(t)
	q := queue.NewQueue(rdb, "ai_jobs_pool_test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, q.Push(ctx, &queue.JobMessage{JobID: i}))
	}

	h := &recordingHandler{done: make(chan struct{}), want: 3}
	stopped := make(chan struct{})
	go func() {
		Run(ctx, q, h, 2)
		close(stopped)
	}()

	select {
	case <-h.done:
	case <-time.After(3 * time.Second):
		t.Fatal("jobs were not processed")
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(popTimeout + 2*time.Second):
		t.Fatal("workers did not stop")
	}
	assert.ElementsMatch(t, []int64{1, 2, 3}, h.seen)
}
