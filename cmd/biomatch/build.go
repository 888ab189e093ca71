package main

import (
	"errors"
	"fmt"

	"github.com/hupe1980/biomatch"
	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/hupe1980/biomatch/modality"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBuildCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "build [modality|all]",
		Short: "Rebuild index artifacts",
		Long: "Rebuild the index of one modality from its active samples, or of " +
			"every modality when the argument is omitted or \"all\".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(app *App) error {
				return runBuild(cmd, app, args)
			})
		},
	}
}

func runBuild(cmd *cobra.Command, app *App, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 || args[0] == "all" {
		if err := app.Engine.BuildAll(cmd.Context()); err != nil {
			return bmerr.Classify(err, "building indexes")
		}
		for _, m := range modality.All() {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", m, app.Engine.IndexPath(m))
		}
		return nil
	}

	m, err := parseModality(args[0])
	if err != nil {
		return err
	}
	if err := app.Engine.BuildIndex(cmd.Context(), m); err != nil {
		if errors.Is(err, biomatch.ErrEmptyIndex) {
			_, _ = fmt.Fprintf(out, "%s: no active samples, index left unchanged\n", m)
		}
		return bmerr.Classify(err, "building index", bmerr.Field("modality", m.String()))
	}
	_, _ = fmt.Fprintf(out, "%s\t%s\n", m, app.Engine.IndexPath(m))
	return nil
}
