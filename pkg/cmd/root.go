package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/email-sender/pkg/config"
	"github.com/telekom/email-sender/pkg/emailsender"
	"github.com/telekom/email-sender/pkg/system"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	// NewState replaces the configured state backend when set.
	NewState emailsender.StateFactory
}

type runtimeState struct {
	configPath string
	debug      bool
	cfg        *config.Config
	log        *zap.SugaredLogger
	newState   emailsender.StateFactory
	writer     io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath,
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter, newState: cfg.NewState}

	root := &cobra.Command{
		Use:           "email-sender",
		Short:         "Send emails declared in app-interface",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if !cmd.Flags().Changed("config") {
				if p := os.Getenv("EMAIL_SENDER_CONFIG"); p != "" {
					rt.configPath = p
				}
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath
			}
			if !rt.debug {
				rt.debug = strings.EqualFold(os.Getenv("EMAIL_SENDER_DEBUG"), "true")
			}

			if cmd.Name() == "version" {
				return nil
			}

			log, err := system.NewLogger(rt.debug)
			if err != nil {
				return err
			}
			rt.log = log

			c, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			c.Defaults()
			if err := c.Validate(); err != nil {
				return err
			}
			rt.cfg = &c
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file (env EMAIL_SENDER_CONFIG)")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))
	root.SetOut(rt.writer)

	root.AddCommand(
		NewRunCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}
