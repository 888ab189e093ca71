package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hupe1980/biomatch"
	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <modality> <embedding-json>",
		Short: "Identify an embedding against the modality index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(app *App) error {
				return runMatch(cmd, app, args)
			})
		},
	}

	cmd.Flags().String("operator", "", "operator recorded in the search log")
	cmd.Flags().Int64("sensor", 0, "sensor id recorded in the search log")
	cmd.Flags().Int64("subject", 0, "claimed subject id recorded in the search log")
	cmd.Flags().Int64("sample", 0, "probe sample id recorded in the search log")

	return cmd
}

func runMatch(cmd *cobra.Command, app *App, args []string) error {
	m, err := parseModality(args[0])
	if err != nil {
		return err
	}
	vec, err := parseVector(args[1])
	if err != nil {
		return err
	}

	sess := biomatch.Session{}
	sess.Operator, _ = cmd.Flags().GetString("operator")
	sess.SensorID = optionalID(cmd, "sensor")
	sess.SubjectID = optionalID(cmd, "subject")
	sess.SampleID = optionalID(cmd, "sample")

	matches, err := app.Engine.Match(cmd.Context(), sess, vec, m)
	if err != nil {
		return bmerr.Classify(err, "matching embedding", bmerr.Field("modality", m.String()))
	}

	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		_, _ = fmt.Fprintln(out, "no match")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SUBJECT\tIDENTITY\tDISTANCE")
	for _, r := range matches {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.6f\n", r.SubjectID, r.Identity, r.Distance)
	}
	return w.Flush()
}

func optionalID(cmd *cobra.Command, flag string) *int64 {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	v, _ := cmd.Flags().GetInt64(flag)
	return biomatch.ID(v)
}
