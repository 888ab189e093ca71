package main

import (
	"errors"

	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/hupe1980/biomatch/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root biomatch command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "biomatch",
		Short: "Biometric identification over IVF vector indexes",
		Long: "biomatch maintains one IVF index per biometric modality, answers " +
			"1:N identification queries against it and records every search.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd, v)
		},
	}

	// Global flags. These map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("db", "", "path to the sqlite database")
	root.PersistentFlags().String("index-dir", "", "directory holding the index artifacts")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newBuildCmd(v),
		newMatchCmd(v),
		newEnrollCmd(v),
		newDeactivateCmd(v),
		newStaleCmd(v),
	)

	return root
}

// initViper sets up v with defaults, env bindings, flag bindings, and an
// optional config file so the precedence flag > env > file > defaults is
// handled uniformly.
func initViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return bmerr.Errorf(bmerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		v.SetConfigName("biomatch")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/biomatch")
		v.AddConfigPath("/etc/biomatch")
		// No config file is fine. Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return bmerr.Errorf(bmerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"database":  "db",
		"index_dir": "index-dir",
		"verbose":   "verbose",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return bmerr.Errorf(bmerr.CodeCLISetupFailure, "binding %s flag: %w", flag, err)
		}
	}

	return nil
}
