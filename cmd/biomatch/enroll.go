package main

import (
	"fmt"

	"github.com/hupe1980/biomatch"
	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newEnrollCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll <modality> <subject-id> <embedding-json>",
		Short: "Store a new active sample and rebuild the modality index",
		Long: "Enroll rejects embeddings that duplicate another subject's active " +
			"sample, stores the sample (deactivating the subject's previous one) " +
			"and rebuilds the index.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(app *App) error {
				return runEnroll(cmd, app, args)
			})
		},
	}

	cmd.Flags().String("name", "", "create the subject with this display name first")
	cmd.Flags().String("operator", "", "operator performing the enrollment")

	return cmd
}

func runEnroll(cmd *cobra.Command, app *App, args []string) error {
	m, err := parseModality(args[0])
	if err != nil {
		return err
	}
	subjectID, err := parseSubjectID(args[1])
	if err != nil {
		return err
	}
	vec, err := parseVector(args[2])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	created := false
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		if _, err := app.Store.AddSubject(ctx, subjectID, name); err != nil {
			return bmerr.Wrap(err, bmerr.CodeEngineStorageFailure, "creating subject", bmerr.Field("subject_id", subjectID))
		}
		created = true
	}

	operator, _ := cmd.Flags().GetString("operator")
	sampleID, err := app.Engine.Enroll(ctx, biomatch.Session{Operator: operator}, subjectID, m, vec)
	if err != nil {
		// A rejected enrollment must not leave the new subject behind.
		if created && sampleID == 0 {
			if _, derr := app.Store.DeleteSubject(ctx, subjectID); derr != nil {
				app.Logger.WarnContext(ctx, "removing subject after failed enrollment",
					"subject_id", subjectID,
					"error", derr,
				)
			}
		}
		return bmerr.Classify(err, "enrolling sample",
			bmerr.Field("modality", m.String()),
			bmerr.Field("subject_id", subjectID),
		)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enrolled subject %d %s sample %d\n", subjectID, m, sampleID)
	return nil
}
