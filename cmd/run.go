package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/app"
	"github.com/JakeFAU/article-archiver/internal/trigger"
)

func newRunCmd() *cobra.Command {
	var payloadPath, rawURL string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Archive the URL carried by a trigger payload, then rebuild the views",
		Long: `Reads a trigger payload ({"url": ...} or {"client_payload": {"url": ...}}) from
--payload (use "-" for stdin), archives the URL it names and regenerates the index and
feed. --url bypasses the payload. A run without a URL only regenerates the views.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			target := rawURL
			if target == "" && payloadPath != "" {
				target = readPayload(appInstance.Logger(), payloadPath)
			}
			report, err := appInstance.Run(cmd.Context(), target)
			logReport(appInstance.Logger(), report)
			return err
		},
	}
	cmd.Flags().StringVar(&payloadPath, "payload", "", "trigger payload file, or - for stdin")
	cmd.Flags().StringVar(&rawURL, "url", "", "URL to archive; overrides --payload")
	return cmd
}

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive URL",
		Short: "Archive a single URL, then rebuild the views",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			report, err := appInstance.Run(cmd.Context(), args[0])
			logReport(appInstance.Logger(), report)
			return err
		},
	}
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Rebuild the index and feed from stored metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			report, err := appInstance.Render(cmd.Context())
			logReport(appInstance.Logger(), report)
			return err
		},
	}
}

// readPayload returns the payload's URL, or "" when there is none to archive.
func readPayload(logger *zap.Logger, path string) string {
	payload, err := trigger.ReadFile(path)
	switch {
	case err == nil:
		return payload.URL
	case trigger.IsMalformed(err):
		logger.Warn("trigger payload malformed, treating as missing", zap.String("path", path), zap.Error(err))
	case errors.Is(err, trigger.ErrPayloadMissing):
		logger.Info("trigger payload carries no url", zap.String("path", path), zap.Error(err))
	}
	return ""
}

func logReport(logger *zap.Logger, report app.Report) {
	logger.Info("run complete",
		zap.String("run_id", report.RunID),
		zap.String("outcome", string(report.Archive.Outcome)),
		zap.String("entry_id", report.Archive.EntryID),
		zap.Int("rendered", report.Rendered))
}
