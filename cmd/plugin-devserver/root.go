package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/config"
)

const version = "0.1.0"

type rootOptions struct {
	configFile string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "plugin-devserver",
		Short:         "Build, watch and serve viewer plugins",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(opts.configFile)
			if err != nil {
				return err
			}
			opts.v = v
			return bindFlags(cmd, v)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ./devserver.yaml if present)")
	cmd.PersistentFlags().String("plugins-dir", "", "plugins root directory")
	cmd.PersistentFlags().String("addr", "", "listen address")
	cmd.PersistentFlags().Duration("debounce", 0, "coalescing window for source changes")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts), newStatusCmd(opts), newConfigCmd(opts))
	return cmd
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	bindings := map[string]string{
		"plugins-dir": "plugins_dir",
		"addr":        "addr",
		"debounce":    "debounce",
		"log-level":   "log.level",
	}
	for flag, key := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
