package cron

import (
	"log"
	"sync"
	"time"

	"github.com/qs3c/ats_resume_server/internal/repository"
)

// Summary 一次维护任务的处理结果
type Summary struct {
	ExpiredSubscriptions int64
	PurgedShareLinks     int64
	FailedStaleJobs      int64
}

// Service 定时维护任务。每日用量在访问时惰性重置，这里不处理用量计数。
type Service struct {
	userRepo  *repository.UserRepository
	shareRepo *repository.ShareRepository
	jobRepo   *repository.JobRepository
	interval  time.Duration
	jobTTL    time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
}

func NewService(
	userRepo *repository.UserRepository,
	shareRepo *repository.ShareRepository,
	jobRepo *repository.JobRepository,
	interval time.Duration,
	jobTTL time.Duration,
) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	if jobTTL <= 0 {
		jobTTL = time.Hour
	}
	return &Service{
		userRepo:  userRepo,
		shareRepo: shareRepo,
		jobRepo:   jobRepo,
		interval:  interval,
		jobTTL:    jobTTL,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.run()
	log.Printf("Cron service started (every %s)", s.interval)
}

// Stop 停止定时任务，可重复调用
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		log.Println("Cron service stopped")
	})
}

func (s *Service) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}

// RunNow 立即执行一轮维护，单项失败只记录日志
func (s *Service) RunNow() Summary {
	now := s.now()
	var sum Summary

	if s.userRepo != nil {
		n, err := s.userRepo.ExpireSubscriptions(now)
		if err != nil {
			log.Printf("Cron: expire subscriptions failed: %v", err)
		}
		sum.ExpiredSubscriptions = n
	}

	if s.shareRepo != nil {
		n, err := s.shareRepo.DeleteExpired(now)
		if err != nil {
			log.Printf("Cron: purge share links failed: %v", err)
		}
		sum.PurgedShareLinks = n
	}

	if s.jobRepo != nil {
		n, err := s.jobRepo.FailStale(now.Add(-s.jobTTL))
		if err != nil {
			log.Printf("Cron: fail stale jobs failed: %v", err)
		}
		sum.FailedStaleJobs = n
	}

	if sum.ExpiredSubscriptions+sum.PurgedShareLinks+sum.FailedStaleJobs > 0 {
		log.Printf("Cron summary: subscriptions_expired=%d, share_links_purged=%d, jobs_failed=%d",
			sum.ExpiredSubscriptions, sum.PurgedShareLinks, sum.FailedStaleJobs)
	}
	return sum
}
