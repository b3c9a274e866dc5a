package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/config"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/services"
)

// Job is a scheduled unit of work run against the shared database.
type Job struct {
	Name     string
	Schedule string
	Run      func(conn *gorm.DB, now time.Time) error
}

// Jobs lists the background jobs for cfg.
func Jobs(cfg *config.Config) []Job {
	return []Job{
		{Name: "booking_reminders", Schedule: cfg.ReminderSchedule, Run: SendReminders},
		{Name: "request_expiry", Schedule: cfg.SweepSchedule, Run: ExpireRequests},
	}
}

// StartCronJobs registers every job and starts the scheduler. Stop the
// returned scheduler on shutdown.
func StartCronJobs(cfg *config.Config) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{})))
	for _, job := range Jobs(cfg) {
		job := job
		if _, err := c.AddFunc(job.Schedule, func() { runJob(job) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", job.Name, job.Schedule, err)
		}
		zap.L().Info("cron job scheduled", zap.String("job", job.Name), zap.String("schedule", job.Schedule))
	}
	c.Start()
	return c, nil
}

func runJob(job Job) {
	start := time.Now()
	if err := job.Run(db.GetDB(), start.UTC()); err != nil {
		zap.L().Error("cron job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	zap.L().Debug("cron job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}

// SendReminders notifies both parties of confirmed bookings starting in about an hour.
func SendReminders(conn *gorm.DB, now time.Time) error {
	n, err := services.SendBookingReminders(conn, now)
	if err != nil {
		return err
	}
	if n > 0 {
		zap.L().Info("sent booking reminders", zap.Int("count", n))
	}
	return nil
}

// ExpireRequests moves unanswered booking requests past their deadline to expired.
func ExpireRequests(conn *gorm.DB, now time.Time) error {
	_, err := services.ExpireBookingRequests(conn, now)
	return err
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	zap.S().Infow(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	zap.S().Errorw(msg, append(keysAndValues, "error", err)...)
}
