package main

import (
	"fmt"

	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDeactivateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <modality> <subject-id>",
		Short: "Deactivate a subject's active sample",
		Long: "Deactivate marks the subject's active sample inactive. The index keeps " +
			"the vector until the next build; matches on it are dropped meanwhile.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(app *App) error {
				return runDeactivate(cmd, app, args)
			})
		},
	}

	cmd.Flags().Bool("rebuild", false, "rebuild the modality index afterwards")

	return cmd
}

func runDeactivate(cmd *cobra.Command, app *App, args []string) error {
	m, err := parseModality(args[0])
	if err != nil {
		return err
	}
	subjectID, err := parseSubjectID(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ok, err := app.Store.Deactivate(ctx, subjectID, m)
	if err != nil {
		return bmerr.Wrap(err, bmerr.CodeEngineStorageFailure, "deactivating sample", bmerr.Field("subject_id", subjectID))
	}

	out := cmd.OutOrStdout()
	if !ok {
		_, _ = fmt.Fprintf(out, "subject %d has no active %s sample\n", subjectID, m)
		return nil
	}
	_, _ = fmt.Fprintf(out, "deactivated subject %d %s sample\n", subjectID, m)

	if rebuild, _ := cmd.Flags().GetBool("rebuild"); rebuild {
		if err := app.Engine.BuildIndex(ctx, m); err != nil {
			return bmerr.Classify(err, "rebuilding index", bmerr.Field("modality", m.String()))
		}
	}
	return nil
}
