package server

import (
	"context"
	"errors"
	"time"

	"github.com/Daskott/safecircle/server/gstorage"
	"github.com/Daskott/safecircle/server/models"
	"github.com/Daskott/safecircle/server/work"
	"github.com/Daskott/safecircle/utils"
)

const storageTimeout = 50 * time.Second

type objectStore interface {
	UploadFile(ctx context.Context, bucket, object, filePath string) error
	DownloadFile(ctx context.Context, bucket, object, destFileName string) error
}

// sqliteBackup keeps a copy of the sqlite db in a storage bucket
type sqliteBackup struct {
	store     objectStore
	bucket    string
	prefix    string
	dbRootDir string
}

// run uploads the db to the bucket. It has the signature of a job handler.
func (backup *sqliteBackup) run(map[string]interface{}) error {
	dbFilePath, err := models.DbFilePath(backup.dbRootDir)
	if err != nil {
		return err
	}

	// Make sure recent writes sitting in the WAL file are part of the upload
	err = models.Checkpoint()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	return backup.store.UploadFile(ctx, backup.bucket, gstorage.ObjectName(backup.prefix, dbFilePath), dbFilePath)
}

// restore downloads the latest backup, if there's no local db yet
func (backup *sqliteBackup) restore() error {
	dbFilePath, err := models.DbFilePath(backup.dbRootDir)
	if err != nil {
		return err
	}

	if utils.FileExist(dbFilePath) {
		logg.Info("Local sqlite db found, skipping restore from backup")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	err = backup.store.DownloadFile(ctx, backup.bucket, gstorage.ObjectName(backup.prefix, dbFilePath), dbFilePath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Info("No sqlite db backup found, starting with a new db")
		return nil
	}

	return err
}

func registerJobHandlers(wpa *work.WorkerPoolAdapter, backup *sqliteBackup) {
	if backup != nil {
		fatalOnError(wpa.Register("backupSqliteDb", backup.run))
	}

	fatalOnError(wpa.Register("removeIdleVisitors", func(map[string]interface{}) error {
		if authLimiter != nil {
			authLimiter.removeIdleVisitors()
		}
		return nil
	}))
}

func enqueueJobs(wpa *work.WorkerPoolAdapter, backupSchedule string, backup *sqliteBackup) {
	if backup != nil {
		fatalOnError(wpa.PeriodicallyPerform(backupSchedule, work.JobParams{
			Name:    "backupSqliteDb",
			Handler: "backupSqliteDb",
			Unique:  true,
			Args:    map[string]interface{}{},
		}))
	}

	fatalOnError(wpa.PeriodicallyPerform("*/5 * * * *", work.JobParams{
		Name:    "removeIdleVisitors",
		Handler: "removeIdleVisitors",
		Unique:  true,
		Args:    map[string]interface{}{},
	}))
}
