package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/frahmantamala/credify/internal/reminder"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that act on the ledger without a request, like scheduled reminders.`,
}

var reminderWorkerCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Start the reminder worker pool",
	Long:  `Generate reminders for overdue and due-soon debts on the configured schedule.`,
	Run: func(cmd *cobra.Command, args []string) {
		startReminderWorker()
	},
}

var (
	maxWorkers   int
	jobQueueSize int
	runOnce      bool
)

// trackedQueue counts jobs so a single run can wait for them.
type trackedQueue struct {
	dispatcher *reminder.Dispatcher
	pending    *sync.WaitGroup
}

func (q trackedQueue) Enqueue(debtID string) error {
	q.pending.Add(1)
	if err := q.dispatcher.Enqueue(debtID); err != nil {
		q.pending.Done()
		return err
	}
	return nil
}

func startReminderWorker() {
	app, err := setup(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	lg := app.Logger.With("component", "reminder_worker")
	cfg := app.Config.Reminder

	dispatcherConfig := reminder.DispatcherConfig{
		MaxWorkers: getIntFlag(maxWorkers, cfg.MaxWorkers),
		QueueSize:  getIntFlag(jobQueueSize, cfg.QueueSize),
		JobTimeout: cfg.Timeout * time.Duration(cfg.MaxRetries+1),
	}

	var pending sync.WaitGroup
	dispatcher := reminder.NewDispatcher(app.Service, dispatcherConfig, func(res reminder.Result) {
		defer pending.Done()
		if res.Err != nil {
			lg.Error("reminder failed", "debt_id", res.DebtID, "error", res.Err)
			return
		}
		lg.Info("reminder ready",
			"debt_id", res.DebtID,
			"debtor_name", res.Reminder.DebtorName,
			"status", res.Reminder.Status,
			"message", res.Reminder.Message)
	}, lg)
	defer dispatcher.Shutdown()

	queue := trackedQueue{dispatcher: dispatcher, pending: &pending}
	scheduler, err := reminder.NewScheduler(cfg.Schedule, app.Config.App.Location(), app.Service, queue, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid reminder schedule: %v\n", err)
		os.Exit(1)
	}

	lg.Info("starting reminder worker",
		"max_workers", dispatcherConfig.MaxWorkers,
		"job_queue_size", dispatcherConfig.QueueSize,
		"schedule", cfg.Schedule,
		"once", runOnce)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runOnce {
		if _, err := scheduler.RunOnce(ctx); err != nil {
			lg.Error("reminder run failed", "error", err)
			return
		}
		done := make(chan struct{})
		go func() {
			pending.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			lg.Warn("interrupted before every reminder finished")
		}
		return
	}

	lg.Info("reminder worker is running. Press Ctrl+C to stop.")
	if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		lg.Error("reminder scheduler stopped", "error", err)
	}
	lg.Info("reminder worker shutdown complete")
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	reminderWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	reminderWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	reminderWorkerCmd.Flags().BoolVar(&runOnce, "once", false, "Enqueue today's reminders, wait for them and exit")

	workerCmd.AddCommand(reminderWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
