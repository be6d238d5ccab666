package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/database"
	"github.com/qs3c/ats_resume_server/internal/pkg/storage"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

const anonymousBatch = 100

var (
	dryRun         = flag.Bool("dry-run", true, "Dry run mode, only report what would be removed")
	jobTTL         = flag.Duration("job-ttl", 30*time.Minute, "Fail AI jobs stuck in queued/processing longer than this")
	anonymousTTL   = flag.Duration("anonymous-ttl", 7*24*time.Hour, "Remove anonymous analyses and their files older than this")
	cleanShares    = flag.Bool("clean-shares", true, "Purge expired and revoked share links")
	cleanJobs      = flag.Bool("clean-jobs", true, "Fail stale AI jobs")
	cleanAnonymous = flag.Bool("clean-anonymous", true, "Remove expired anonymous uploads")
)

type summary struct {
	shareLinks     int64
	staleJobs      int64
	anonymous      int
	deletedObjects int
	failures       int
}

func main() {
	flag.Parse()

	log.Println("Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	shareRepo := repository.NewShareRepository(db)
	jobRepo := repository.NewJobRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)

	now := time.Now()
	var sum summary

	// 1. 过期或已撤销的分享链接
	if *cleanShares {
		log.Println("Cleaning expired share links...")
		sum.shareLinks = cleanShareLinks(shareRepo, now, *dryRun)
	}

	// 2. 超时未完成的 AI 任务
	if *cleanJobs {
		log.Printf("Failing AI jobs older than %s...", *jobTTL)
		sum.staleJobs = failStaleJobs(jobRepo, now.Add(-*jobTTL), *dryRun)
	}

	// 3. 过期的匿名上传，连同存储中的简历和报告
	if *cleanAnonymous {
		store, err := storage.NewFromConfig(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to init storage: %v", err)
		}
		log.Printf("Removing anonymous analyses older than %s...", *anonymousTTL)
		cleanAnonymousAnalyses(context.Background(), analysisRepo, jobRepo, store, now.Add(-*anonymousTTL), *dryRun, &sum)
	}

	// 输出统计
	log.Println(strings.Repeat("=", 60))
	log.Println("Cleanup Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Share links: %d", sum.shareLinks)
	log.Printf("Stale AI jobs: %d", sum.staleJobs)
	log.Printf("Anonymous analyses: %d", sum.anonymous)
	log.Printf("Storage objects deleted: %d", sum.deletedObjects)
	if sum.failures > 0 {
		log.Printf("Failures: %d", sum.failures)
	}
	if *dryRun {
		log.Println("DRY RUN MODE - nothing was changed")
		log.Println("Run with -dry-run=false to apply")
	} else {
		log.Println("Cleanup completed")
	}
	log.Println(strings.Repeat("=", 60))
}

func cleanShareLinks(repo *repository.ShareRepository, now time.Time, dryRun bool) int64 {
	var (
		n   int64
		err error
	)
	if dryRun {
		n, err = repo.CountExpired(now)
	} else {
		n, err = repo.DeleteExpired(now)
	}
	if err != nil {
		log.Printf("Failed to clean share links: %v", err)
		return 0
	}
	log.Printf("Found %d expired share links", n)
	return n
}

func failStaleJobs(repo *repository.JobRepository, before time.Time, dryRun bool) int64 {
	var (
		n   int64
		err error
	)
	if dryRun {
		n, err = repo.CountStale(before)
	} else {
		n, err = repo.FailStale(before)
	}
	if err != nil {
		log.Printf("Failed to clean stale jobs: %v", err)
		return 0
	}
	log.Printf("Found %d stale AI jobs", n)
	return n
}

// cleanAnonymousAnalyses 分批删除；dry-run 只统计第一批，避免重复扫描同一批记录
func cleanAnonymousAnalyses(
	ctx context.Context,
	analysisRepo *repository.AnalysisRepository,
	jobRepo *repository.JobRepository,
	store storage.ObjectStore,
	before time.Time,
	dryRun bool,
	sum *summary,
) {
	for {
		batch, err := analysisRepo.ListAnonymousBefore(before, anonymousBatch)
		if err != nil {
			log.Printf("Failed to query anonymous analyses: %v", err)
			sum.failures++
			return
		}
		if len(batch) == 0 {
			return
		}

		removed := 0
		for _, a := range batch {
			log.Printf("  - analysis %d (%s, %s old)", a.ID, a.FileKey, time.Since(a.CreatedAt).Round(time.Hour))
			if dryRun {
				sum.anonymous++
				continue
			}

			ok := true
			for _, key := range []string{a.FileKey, a.ReportKey} {
				if key == "" {
					continue
				}
				if err := store.Delete(ctx, key); err != nil {
					log.Printf("    Failed to delete object %s: %v", key, err)
					ok = false
					continue
				}
				sum.deletedObjects++
			}
			if !ok {
				sum.failures++
				continue
			}
			if err := jobRepo.DeleteByAnalysisID(a.ID); err != nil {
				log.Printf("    Failed to delete jobs of analysis %d: %v", a.ID, err)
				sum.failures++
				continue
			}
			if err := analysisRepo.Delete(a.ID); err != nil {
				log.Printf("    Failed to delete analysis %d: %v", a.ID, err)
				sum.failures++
				continue
			}
			sum.anonymous++
			removed++
		}

		if dryRun {
			if len(batch) == anonymousBatch {
				log.Printf("Listed first %d anonymous analyses, more remain", anonymousBatch)
			}
			return
		}
		// 整批都失败时停止，避免死循环
		if removed == 0 || len(batch) < anonymousBatch {
			return
		}
	}
}
