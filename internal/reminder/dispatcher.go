package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	errors "github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/debt"
)

type Job struct {
	DebtID string
}

type Result struct {
	DebtID   string
	Reminder *debt.Reminder
	Err      error
}

// Producer is the part of the debt service the workers call.
type Producer interface {
	Reminder(ctx context.Context, id string) (*debt.Reminder, error)
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("reminder worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("reminder worker processing job", "worker_id", w.ID, "debt_id", job.DebtID)
				process(job)
			case <-ctx.Done():
				w.Logger.Debug("reminder worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	MaxWorkers int
	QueueSize  int
	JobTimeout time.Duration
}

// Dispatcher generates reminders in the background on a fixed pool of workers.
type Dispatcher struct {
	producer   Producer
	onResult   func(Result)
	jobTimeout time.Duration
	logger     *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stop       sync.Once
}

func NewDispatcher(producer Producer, cfg DispatcherConfig, onResult func(Result), logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 50
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = time.Minute
	}
	if onResult == nil {
		onResult = func(Result) {}
	}

	d := &Dispatcher{
		producer:   producer,
		onResult:   onResult,
		jobTimeout: jobTimeout,
		logger:     logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.start()

	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("reminder worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					return
				}
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("reminder dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) process(job Job) {
	ctx, cancel := context.WithTimeout(d.ctx, d.jobTimeout)
	defer cancel()

	reminder, err := d.producer.Reminder(ctx, job.DebtID)
	if err != nil {
		d.logger.Warn("background reminder failed", "debt_id", job.DebtID, "error", err)
	}
	d.onResult(Result{DebtID: job.DebtID, Reminder: reminder, Err: err})
}

// Enqueue never blocks. It returns errors.ErrReminderQueueFull when the queue has no room.
func (d *Dispatcher) Enqueue(debtID string) error {
	if d.ctx.Err() != nil {
		return errors.NewUnavailableError("Reminder dispatcher is stopped", errors.ErrCodeReminderQueueFull)
	}

	select {
	case d.jobQueue <- Job{DebtID: debtID}:
		d.logger.Debug("reminder job queued", "debt_id", debtID, "queue_length", len(d.jobQueue))
		return nil
	default:
		d.logger.Warn("reminder queue full, rejecting job",
			"debt_id", debtID,
			"queue_capacity", cap(d.jobQueue))
		return errors.ErrReminderQueueFull
	}
}

// Shutdown cancels in-flight jobs and waits for the workers to return. Queued jobs are dropped.
func (d *Dispatcher) Shutdown() {
	d.stop.Do(func() {
		d.logger.Info("shutting down reminder dispatcher", "dropped", len(d.jobQueue))
		d.cancel()
		d.wg.Wait()
		d.logger.Info("reminder dispatcher shutdown complete")
	})
}
