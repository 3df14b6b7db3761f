package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/agrisage/agrisage/internal/reliability"
)

// BackupJob ships the nightly database archive. Failures raise a system
// notification so missed backups surface in the dashboard, not just the logs.
type BackupJob struct {
	backups  *reliability.BackupService
	notifier *notifications.Repository
	log      zerolog.Logger
}

// NewBackupJob creates a new backup job.
func NewBackupJob(backups *reliability.BackupService, notifier *notifications.Repository, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups:  backups,
		notifier: notifier,
		log:      log.With().Str("job", "backup").Logger(),
	}
}

// Name implements Job
func (j *BackupJob) Name() string { return "backup" }

// Run implements Job
func (j *BackupJob) Run() error {
	archive, err := j.backups.CreateAndUpload(context.Background())
	if err != nil {
		if j.notifier != nil {
			msg := fmt.Sprintf("Nightly backup failed: %v", err)
			if _, nerr := j.notifier.Create(notifications.KindSystem, "", "", msg); nerr != nil {
				j.log.Warn().Err(nerr).Msg("Failed to record backup failure notification")
			}
		}
		return err
	}

	j.log.Info().Str("archive", archive).Msg("Backup archive uploaded")
	return nil
}
