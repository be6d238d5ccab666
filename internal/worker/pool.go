package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
)

const popTimeout = 5 * time.Second

// JobHandler 处理单条队列消息
type JobHandler interface {
	Process(ctx context.Context, msg *queue.JobMessage) error
}

// Run 启动 n 个 worker 消费队列，ctx 结束后等待进行中的任务返回
func Run(ctx context.Context, q *queue.Queue, handler JobHandler, n int) {
	if n < 1 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			loop(ctx, workerID, q, handler)
		}(i)
	}
	wg.Wait()
}

func loop(ctx context.Context, workerID int, q *queue.Queue, handler JobHandler) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
		}

		msg, err := q.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Worker %d: failed to pop job: %v", workerID, err)
			// Redis 不可用时避免空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if msg == nil {
			continue
		}

		log.Printf("Worker %d: processing job %d (%s, attempt %d)", workerID, msg.JobID, msg.Kind, msg.Attempt+1)
		if err := handler.Process(ctx, msg); err != nil {
			log.Printf("Worker %d: job %d failed: %v", workerID, msg.JobID, err)
		}
	}
}
