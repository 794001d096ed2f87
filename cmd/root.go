// Package cmd defines the archiver's command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/app"
	"github.com/JakeFAU/article-archiver/internal/config"
	"github.com/JakeFAU/article-archiver/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the session in the context.
type appKeyType string

const appKey appKeyType = "app"

// session carries the App built by the pre-run hook back to executeRoot, which closes
// it whether or not the command succeeded.
type session struct {
	app App
}

func (s *session) close() {
	if s.app == nil {
		return
	}
	if err := s.app.Close(); err != nil {
		s.app.Logger().Warn("shutdown incomplete", zap.Error(err))
	}
	_ = s.app.Logger().Sync()
	s.app = nil
}

// App is what the commands need from the wired application. Tests inject a fake.
type App interface {
	Run(ctx context.Context, rawURL string) (app.Report, error)
	Render(ctx context.Context) (app.Report, error)
	Logger() *zap.Logger
	Close() error
}

// newApp is the application factory. It is a variable so tests can replace it.
var newApp = func(ctx context.Context, configPath string) (App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archiver",
		Short: "Archive web articles into a static, browsable reading archive.",
		Long: `archiver saves articles for later reading. Each submitted URL is extracted,
its images are stored alongside it, and the archive's index page and RSS feed are
rebuilt from the stored metadata after every run.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, ok := cmd.Context().Value(appKey).(*session)
			if !ok {
				return errors.New("command must be started through executeRoot")
			}
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			s.app = appInstance
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); ARCHIVER_* environment variables override it")

	cmd.AddCommand(newRunCmd(), newArchiveCmd(), newRenderCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	s, ok := ctx.Value(appKey).(*session)
	if !ok || s.app == nil {
		return nil, errors.New("application services not initialized")
	}
	return s.app, nil
}

// executeRoot runs root and closes the App afterwards. Cobra skips post-run hooks when
// a command fails, so the close lives here to cover the error path too.
func executeRoot(ctx context.Context, root *cobra.Command) error {
	s := &session{}
	defer s.close()
	return root.ExecuteContext(context.WithValue(ctx, appKey, s))
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := executeRoot(context.Background(), newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, "archiver:", err)
		os.Exit(1)
	}
}
