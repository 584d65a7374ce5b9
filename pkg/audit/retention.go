package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/turbovets/taskhub/pkg/observability"
)

// RetentionJob purges audit rows older than the policy's retention window on
// a cron schedule.
type RetentionJob struct {
	db     *sql.DB
	policy RetentionPolicy
	logger *observability.Logger
	cron   *cron.Cron
}

// NewRetentionJob creates a retention job. Call Start to begin scheduling.
func NewRetentionJob(db *sql.DB, policy RetentionPolicy, logger *observability.Logger) *RetentionJob {
	if policy.RetentionDays <= 0 {
		policy = DefaultRetentionPolicy()
	}
	if policy.Schedule == "" {
		policy.Schedule = DefaultRetentionPolicy().Schedule
	}
	return &RetentionJob{
		db:     db,
		policy: policy,
		logger: logger,
	}
}

// Start schedules the cleanup according to the policy's cron expression.
func (j *RetentionJob) Start() error {
	j.cron = cron.New()
	_, err := j.cron.AddFunc(j.policy.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		purged, err := j.RunOnce(ctx)
		if err != nil {
			j.logger.WithError(err).Error("audit retention cleanup failed")
			return
		}
		j.logger.WithField("purged", purged).
			WithField("retention_days", j.policy.RetentionDays).
			Info("audit retention cleanup completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	j.cron.Start()
	return nil
}

// RunOnce purges expired rows immediately and returns how many were removed.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.policy.RetentionDays)
	result, err := j.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit logs: %w", err)
	}
	return result.RowsAffected()
}

// Stop halts the schedule and waits for a running cleanup to finish.
func (j *RetentionJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}
