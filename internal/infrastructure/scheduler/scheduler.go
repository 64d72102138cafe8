// Package scheduler runs periodic marketplace pulls and stock pushes on a
// small worker pool, retrying failed jobs with capped exponential backoff.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the scheduler
type Config struct {
	// MaxConcurrentJobs is the number of workers
	MaxConcurrentJobs int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the base delay between retries (with exponential backoff)
	RetryDelay time.Duration
	// QueueSize bounds the pending job queue
	QueueSize int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        30 * time.Second,
		QueueSize:         100,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxConcurrentJobs <= 0 || c.JobTimeout <= 0 || c.RetryAttempts < 0 || c.RetryDelay <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	return nil
}

// Scheduler executes submitted jobs on a worker pool
type Scheduler struct {
	config   Config
	executor Executor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  map[string]bool
	retries   map[*Job]*time.Timer

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*Job
	maxHistory int
}

// New creates a new scheduler
func New(config Config, executor Executor, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		config:     config,
		executor:   executor,
		logger:     logger,
		jobs:       make(chan *Job, config.QueueSize),
		inFlight:   make(map[string]bool),
		retries:    make(map[*Job]*time.Timer),
		history:    make([]*Job, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	for job, timer := range s.retries {
		timer.Stop()
		delete(s.retries, job)
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues job. A job whose kind and marketplace already has one
// pending or running is rejected with ErrJobInFlight.
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	if s.inFlight[job.Key()] {
		return ErrJobInFlight
	}
	select {
	case s.jobs <- job:
		s.inFlight[job.Key()] = true
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.String("marketplace", string(job.Marketplace)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.String("marketplace", string(job.Marketplace)),
	)
	log.Info("Processing job", zap.Int("retry_count", job.RetryCount))

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	err := s.executor.Execute(jobCtx, job)
	cancel()

	if err != nil {
		job.Fail(err.Error())
		log.Error("Job failed", zap.Error(err))
		s.addToHistory(job)
		if job.ShouldRetry() && ctx.Err() == nil {
			delay := job.ScheduleRetry(s.config.RetryDelay)
			log.Info("Job scheduled for retry",
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Duration("delay", delay),
			)
			s.retryLater(job, delay)
			return
		}
		s.finish(job)
		return
	}

	if job.Status == JobStatusRunning {
		job.Complete(false, "")
	}
	log.Info("Job completed",
		zap.String("status", string(job.Status)),
		zap.String("summary", job.Summary),
	)
	s.addToHistory(job)
	s.finish(job)
}

// retryLater re-queues job after delay. The job keeps its in-flight slot.
func (s *Scheduler) retryLater(job *Job, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		delete(s.inFlight, job.Key())
		return
	}
	s.retries[job] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.retries, job)
		if !s.isRunning {
			delete(s.inFlight, job.Key())
			return
		}
		select {
		case s.jobs <- job:
		default:
			delete(s.inFlight, job.Key())
			s.logger.Warn("Failed to re-queue job for retry",
				zap.String("job_id", job.ID.String()),
			)
		}
	})
}

func (s *Scheduler) finish(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, job.Key())
}

// addToHistory adds a copy of a finished attempt to history
func (s *Scheduler) addToHistory(job *Job) {
	snapshot := *job
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*Job{&snapshot}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// History returns recent job attempts, newest first
func (s *Scheduler) History(limit int) []*Job {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*Job, limit)
	copy(result, s.history[:limit])
	return result
}
