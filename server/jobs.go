package server

import (
	"context"
	"path"

	"github.com/Daskott/phonebook/server/gstorage"
	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/server/session"
	"github.com/Daskott/phonebook/server/work"
	"github.com/Daskott/phonebook/utils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	PURGE_SESSIONS_JOB      = "purge_expired_sessions"
	PURGE_SESSIONS_SCHEDULE = "* * * * *"
	BACKUP_SQLITE_JOB       = "backup_sqlite_db"
)

type Uploader interface {
	UploadFile(ctx context.Context, bucket, object, filePath string) error
}

type Downloader interface {
	DownloadFile(ctx context.Context, bucket, object, destFileName string) error
}

// sqliteBackup copies the sqlite database file to cloud storage.
type sqliteBackup struct {
	db         *gorm.DB
	storage    Uploader
	dbFilePath string
	bucket     string
	object     string
}

func newSqliteBackup(db *gorm.DB, storage Uploader, dbFilePath, bucket, prefix string) *sqliteBackup {
	return &sqliteBackup{
		db:         db,
		storage:    storage,
		dbFilePath: dbFilePath,
		bucket:     bucket,
		object:     path.Join(prefix, models.DB_NAME),
	}
}

func (backup *sqliteBackup) run(map[string]interface{}) error {
	// Fold the write-ahead log into the db file so the upload is complete
	err := backup.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error
	if err != nil {
		return errors.Wrap(err, "checkpoint sqlite wal")
	}

	err = backup.storage.UploadFile(context.Background(), backup.bucket, backup.object, backup.dbFilePath)
	if err != nil {
		return errors.Wrap(err, "upload sqlite db")
	}

	return nil
}

// syncSqliteDb restores the latest backup when there is no local db file yet.
func syncSqliteDb(ctx context.Context, storage Downloader, dbFilePath, bucket, prefix string) error {
	if utils.FileExist(dbFilePath) {
		return nil
	}

	err := storage.DownloadFile(ctx, bucket, path.Join(prefix, models.DB_NAME), dbFilePath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Infof("No sqlite backup found in gs://%v, starting with an empty db", bucket)
		return nil
	}

	return err
}

func purgeExpiredSessions(sessions *session.Manager) work.Handler {
	return func(map[string]interface{}) error {
		purged, err := sessions.PurgeExpired(context.Background())
		if err != nil {
			return err
		}

		if purged > 0 {
			logg.Infof("Purged %v expired sessions", purged)
		}
		return nil
	}
}

// registerJobs registers & schedules the periodic jobs. backup is nil when
// sqlite backups are disabled.
func registerJobs(workerPool *work.WorkerPoolAdapter, sessions *session.Manager, backup *sqliteBackup, backupSchedule string) error {
	err := workerPool.Register(PURGE_SESSIONS_JOB, purgeExpiredSessions(sessions))
	if err != nil {
		return err
	}

	err = workerPool.PeriodicallyPerform(PURGE_SESSIONS_SCHEDULE, work.JobParams{
		Name:    PURGE_SESSIONS_JOB,
		Handler: PURGE_SESSIONS_JOB,
		Args:    map[string]interface{}{},
	})
	if err != nil {
		return err
	}

	if backup == nil {
		return nil
	}

	err = workerPool.Register(BACKUP_SQLITE_JOB, backup.run)
	if err != nil {
		return err
	}

	return workerPool.PeriodicallyPerform(backupSchedule, work.JobParams{
		Name:    BACKUP_SQLITE_JOB,
		Handler: BACKUP_SQLITE_JOB,
		Args:    map[string]interface{}{},
	})
}
