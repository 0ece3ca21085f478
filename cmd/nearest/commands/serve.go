package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/nearest/pkg/cli"
	"github.com/haivivi/nearest/pkg/scene"
	"github.com/haivivi/nearest/pkg/server"
)

var (
	serveConfig string
	serveAddr   string
	serveGroups []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a scene over websocket",
	Long: `Serve a scene over websocket.

Clients send events to /ws (JSON text frames or msgpack binary frames) and
receive one result per event. GET /debug prints the scene.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := cli.LoadConfig(ctx, serveConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Listen = serveAddr
		}
		if cmd.Flags().Changed("group") {
			cfg.Groups = serveGroups
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger := cfg.NewLogger(cmd.ErrOrStderr())

		reg, err := cfg.Registry.Open(logger)
		if err != nil {
			return err
		}
		sc, err := scene.New(ctx, scene.Config{
			Dims:     cfg.Dims,
			Capacity: cfg.Capacity,
			Groups:   cfg.Groups,
			Registry: reg,
			Logger:   logger,
		})
		if err != nil {
			reg.Close()
			return err
		}
		defer sc.Close()

		srv := server.New(server.Config{Scene: sc, Logger: logger})
		defer srv.Close()
		logger.Info("nearest: serving", "scene", sc.String())
		return srv.ListenAndServe(ctx, cfg.Listen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "config file (path or s3://bucket/key)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", cli.DefaultListen, "listen address (overrides config)")
	serveCmd.Flags().StringArrayVarP(&serveGroups, "group", "g", nil, "group pattern, repeatable (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
