package app

import (
	"context"
	"io"
	"os"

	fyneapp "fyne.io/fyne/v2/app"

	"yashubustudio/agreement/agreement"
	"yashubustudio/agreement/internal/config"
	"yashubustudio/agreement/internal/logger"
	"yashubustudio/agreement/internal/store"
)

const (
	fyneAppID   = "yashubustudio.agreement"
	logLineKeep = 200
)

// Run loads the configuration, opens the run archive when one is configured
// and starts the desktop viewer.
func Run() error {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		return err
	}

	u := &uiState{configPath: config.DefaultConfigFile}
	u.logs = newLogSink(logLineKeep, u.requestLogFlush)
	log := logger.NewConsoleLogger("agreement-ui", io.MultiWriter(os.Stderr, u.logs))
	u.ctx = log.WithContext(context.Background())

	var opts []agreement.ServiceOption
	if cfg.Archive.DSN != "" {
		archive, err := store.Open(u.ctx, cfg.Archive.DSN, log)
		if err != nil {
			return err
		}
		defer archive.Close()
		opts = append(opts, agreement.WithRecorder(archive))
	}

	svc, err := agreement.NewService(cfg, log, opts...)
	if err != nil {
		return err
	}

	a := fyneapp.NewWithID(fyneAppID)
	u.build(a, svc)
	u.w.ShowAndRun()
	return nil
}
