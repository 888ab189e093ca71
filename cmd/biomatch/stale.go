package main

import (
	"fmt"
	"time"

	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStaleCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stale <modality>",
		Short: "Compare the index artifact with the active samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(app *App) error {
				return runStale(cmd, app, args)
			})
		},
	}
}

func runStale(cmd *cobra.Command, app *App, args []string) error {
	m, err := parseModality(args[0])
	if err != nil {
		return err
	}

	s, err := app.Engine.Staleness(cmd.Context(), m)
	if err != nil {
		return bmerr.Classify(err, "checking staleness", bmerr.Field("modality", m.String()))
	}

	out := cmd.OutOrStdout()
	built := "never"
	if !s.BuiltAt.IsZero() {
		built = s.BuiltAt.Format(time.RFC3339)
	}
	_, _ = fmt.Fprintf(out, "modality: %s\n", s.Modality)
	_, _ = fmt.Fprintf(out, "built:    %s\n", built)
	_, _ = fmt.Fprintf(out, "indexed:  %d\n", s.Indexed)
	_, _ = fmt.Fprintf(out, "active:   %d\n", s.Active)
	_, _ = fmt.Fprintf(out, "stale:    %v\n", s.Stale)
	_, _ = fmt.Fprintf(out, "missing:  %v\n", s.Missing)
	_, _ = fmt.Fprintf(out, "fresh:    %t\n", s.Fresh())
	return nil
}
