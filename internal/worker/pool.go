package worker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/internal/pkg/queue"
)

const popTimeout = 5 * time.Second

// JobSource 任务来源，超时返回 nil
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.ReceiptJob, error)
}

// JobHandler 任务处理
type JobHandler interface {
	Process(ctx context.Context, job *queue.ReceiptJob) error
}

// Run 启动 workers 个消费协程，ctx 取消后等待全部退出
func Run(ctx context.Context, source JobSource, handler JobHandler, workers int) {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consume(ctx, workerID, source, handler)
		}(i)
	}
	wg.Wait()
}

func consume(ctx context.Context, workerID int, source JobSource, handler JobHandler) {
	logger := log.WithField("worker", workerID)
	for {
		if ctx.Err() != nil {
			logger.Debug("worker: shutting down")
			return
		}

		job, err := source.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).Warn("worker: failed to pop job")
			// 避免 Redis 不可用时空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		if err := handler.Process(ctx, job); err != nil {
			logger.WithError(err).WithField("billing_id", job.BillingRecordID).Warn("worker: job failed")
		}
	}
}
