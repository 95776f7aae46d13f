package app

import (
	"context"
	"io"
)

// Application wires config, logger, backend client, stores and the
// controller into one object the CLI and TUI hang off.
type Application struct {
	Config     Config
	Logger     *Logger
	Backend    Backend
	Sessions   *SessionStore
	Projects   *ProjectStore
	Jobs       *JobRunner
	Controller *Controller
}

func NewApplication(cfg Config) (*Application, error) {
	var logOut io.Writer
	if cfg.LogPath != "" {
		logOut = logWriterAt(cfg.LogPath)
	} else {
		logOut = DefaultLogWriter()
	}
	logger := NewLogger(logOut)

	serverURL := cfg.ServerURL
	if cfg.Mock {
		serverURL = "mock://"
	}
	client := NewClient(serverURL, cfg.Timeout())

	sessions := NewSessionStore(client)
	projects := NewProjectStore(client)
	jobs := NewJobRunner(logger)
	controller := NewController(client, sessions, projects, jobs, logger)

	return &Application{
		Config:     cfg,
		Logger:     logger,
		Backend:    client,
		Sessions:   sessions,
		Projects:   projects,
		Jobs:       jobs,
		Controller: controller,
	}, nil
}

// Bootstrap pulls the initial session and project lists. Failures are
// logged and returned; the TUI still starts and surfaces the error.
func (a *Application) Bootstrap(ctx context.Context) error {
	if err := a.Projects.Refresh(ctx); err != nil {
		a.Logger.Error("bootstrap projects", map[string]interface{}{"err": err.Error()})
		return err
	}
	if err := a.Sessions.Refresh(ctx); err != nil {
		a.Logger.Error("bootstrap sessions", map[string]interface{}{"err": err.Error()})
		return err
	}
	return nil
}
