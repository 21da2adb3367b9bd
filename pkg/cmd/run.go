package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/email-sender/pkg/emailsender"
	"github.com/telekom/email-sender/pkg/mail"
	"github.com/telekom/email-sender/pkg/metrics"
)

// metricsPushTimeout bounds the final Pushgateway call so it still runs when
// the run context has expired.
const metricsPushTimeout = 10 * time.Second

func NewRunCommand() *cobra.Command {
	var (
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send the pending email, if there is exactly one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if rt.cfg == nil || rt.log == nil {
				return errors.New("config not loaded")
			}
			log := rt.log
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			source, err := newQueryClient(ctx, rt.cfg.GraphQL, rt.cfg.GraphQLTimeout())
			if err != nil {
				return err
			}
			sender, err := mail.New(rt.cfg.Mail, log)
			if err != nil {
				return err
			}
			sink, err := newAuditSink(rt.cfg.Audit, log)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := sink.Close(); cerr != nil {
					log.Warnw("Failed to close audit sink", "error", cerr)
				}
			}()
			newState := rt.newState
			if newState == nil {
				newState = newStateFactory(rt.cfg.State, log)
			}

			integration := emailsender.NewIntegration(source, newState, sender, log, emailsender.WithAuditSink(sink))
			log.Infow("Starting integration run", "integration", emailsender.IntegrationName, "dryRun", dryRun)
			runErr := integration.Run(ctx, dryRun)
			metrics.Runs.WithLabelValues(metrics.Result(runErr)).Inc()

			pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
			defer cancel()
			if err := metrics.Push(pushCtx, rt.cfg.Metrics.PushgatewayURL, rt.cfg.Metrics.Job); err != nil {
				log.Warnw("Failed to push metrics", "error", err)
			}

			if runErr != nil {
				log.Errorw("Integration run failed", "error", runErr)
				return runErr
			}
			log.Infow("Integration run finished", "integration", emailsender.IntegrationName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the pending email without sending it or recording state")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the run after this duration (0 disables)")

	return cmd
}
