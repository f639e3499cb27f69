package cron

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Snapshotter 写入某天的统计快照
type Snapshotter interface {
	Snapshot(ctx context.Context, day time.Time) error
}

type Service struct {
	snapshotter Snapshotter
	interval    time.Duration
	stopChan    chan struct{}
	now         func() time.Time
}

func NewService(snapshotter Snapshotter, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Service{
		snapshotter: snapshotter,
		interval:    interval,
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runDailySnapshot()
	log.WithField("interval", s.interval).Info("cron: started (analytics snapshot)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Info("cron: stopped")
}

// runDailySnapshot 次日零点首次执行，之后按间隔执行
func (s *Service) runDailySnapshot() {
	now := s.now()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	timer := time.NewTimer(nextMidnight.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			// 零点统计的是前一天
			if err := s.snapshot(s.now().AddDate(0, 0, -1)); err != nil {
				log.WithError(err).Warn("cron: analytics snapshot failed")
			}
			timer.Reset(s.interval)
		}
	}
}

func (s *Service) snapshot(day time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	if err := s.snapshotter.Snapshot(ctx, day); err != nil {
		return err
	}
	log.WithField("day", day.Format("2006-01-02")).Info("cron: analytics snapshot written")
	return nil
}

// RunNow 立即为当天写入快照，服务启动时先补写一次
func (s *Service) RunNow() error {
	log.Info("cron: manual snapshot triggered")
	return s.snapshot(s.now())
}
