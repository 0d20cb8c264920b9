package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xtevenx/sjudge/config"
	"github.com/xtevenx/sjudge/logging"
	"github.com/xtevenx/sjudge/queue"
	"github.com/xtevenx/sjudge/store"
	"github.com/xtevenx/sjudge/worker"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := logging.Setup(cfg, "worker.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := queue.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	rq := queue.New(redisClient)
	subRepo := store.NewPgSubmissionRepository(db)
	exerciseRepo := store.NewPgExerciseRepository(db)
	processor := worker.NewProcessor(subRepo, exerciseRepo)

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	workerID := worker.NewWorkerID()
	hostname, _ := os.Hostname()
	currentUser, _ := user.Current()
	username := "unknown"
	if currentUser != nil && currentUser.Username != "" {
		username = currentUser.Username
	}
	log.Printf("worker started. id=%s concurrency=%d queue=%s user=%s", workerID, concurrency, queue.PendingKey, username)

	const pendingKey = queue.PendingKey
	const processingKey = queue.ProcessingKey
	visibility := time.Duration(cfg.QueueVisibilityTimeout) * time.Second
	if visibility <= 0 {
		visibility = queue.DefaultVisibilityTimeout
	}
	reclaimInterval := 15 * time.Second
	maxRetries := cfg.MaxRetries

	state := queue.NewHeartbeatState(workerID, hostname, concurrency)
	go state.Run(ctx, redisClient)

	// requeue expired in-flight jobs periodically
	go func() {
		ticker := time.NewTicker(reclaimInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if jobs, err := rq.RequeueExpired(ctx, processingKey, pendingKey, time.Now()); err != nil {
					log.Printf("[reclaimer] requeue expired error: %v", err)
				} else if len(jobs) > 0 {
					for _, job := range jobs {
						if id, err := strconv.ParseInt(job, 10, 64); err == nil {
							_ = subRepo.MarkStatus(ctx, id, "pending")
							_, _ = subRepo.IncrementRetry(ctx, id)
						}
					}
					log.Printf("[reclaimer] requeued %d expired jobs", len(jobs))
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			for {
				job, err := rq.Reserve(ctx, pendingKey, processingKey, visibility)
				if err != nil {
					if errors.Is(err, redis.Nil) {
						select {
						case <-ctx.Done():
							return
						case <-time.After(100 * time.Millisecond):
							continue
						}
					}
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					log.Printf("[worker %d] dequeue error: %v", workerNum, err)
					time.Sleep(time.Second)
					continue
				}

				log.Printf("[worker %d] received job %s", workerNum, job)
				state.JobStarted(job)

				verdict, procErr := processor.Process(ctx, job)
				if procErr != nil {
					id, parseErr := strconv.ParseInt(job, 10, 64)
					if parseErr != nil {
						log.Printf("[worker %d] parse job id error for %s: %v", workerNum, job, parseErr)
						_ = rq.Ack(ctx, processingKey, job)
						continue
					}

					if errors.Is(procErr, store.ErrSubmissionNotPending) {
						log.Printf("[worker %d] skip job %s: already processed", workerNum, job)
						_ = rq.Ack(ctx, processingKey, job)
						continue
					}

					newRetry, incErr := subRepo.IncrementRetry(ctx, id)
					if incErr != nil {
						log.Printf("[worker %d] increment retry failed for job %s: %v", workerNum, job, incErr)
					}

					if newRetry <= maxRetries {
						_ = subRepo.MarkStatus(ctx, id, "pending")
						if err := rq.Enqueue(ctx, pendingKey, job); err != nil {
							log.Printf("[worker %d] re-enqueue job %s failed: %v", workerNum, job, err)
						} else {
							log.Printf("[worker %d] job %s retried (retry_count=%d)", workerNum, job, newRetry)
						}
					} else {
						errMsg := procErr.Error()
						res := store.SubmissionResult{
							SubmissionID: id,
							Verdict:      "System Error",
							ErrorMessage: &errMsg,
						}
						if saveErr := subRepo.SaveResult(ctx, res, "failed"); saveErr != nil {
							log.Printf("[worker %d] final fail save result job %s: %v", workerNum, job, saveErr)
						}
						log.Printf("[worker %d] job %s failed after retries (retry_count=%d)", workerNum, job, newRetry)
					}
				} else if verdict != "Answer Correct" {
					log.Printf("[worker %d] job %s finished with verdict=%s", workerNum, job, verdict)
				}

				if err := rq.Ack(ctx, processingKey, job); err != nil {
					log.Printf("[worker %d] ack failed for job %s: %v", workerNum, job, err)
				}
				state.JobFinished(job, procErr)
			}
		}(i + 1)
	}

	wg.Wait()
}
