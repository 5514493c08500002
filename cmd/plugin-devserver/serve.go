package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/config"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Discover, build and watch plugins, then serve them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.v)
			if err != nil {
				return err
			}
			logger := cfg.NewLogger()
			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			srv, err := server.New(cfg, server.WithLogger(logger))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
}
