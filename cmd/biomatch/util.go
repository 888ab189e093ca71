package main

import (
	"encoding/json"
	"strconv"

	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/hupe1980/biomatch/modality"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func parseModality(s string) (modality.Modality, error) {
	m, err := modality.Parse(s)
	if err != nil {
		return 0, bmerr.Wrap(err, bmerr.CodeCLIInputInvalid, "parsing modality", bmerr.Field("modality", s))
	}
	return m, nil
}

func parseSubjectID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, bmerr.New(bmerr.CodeCLIInputInvalid, "subject id must be a positive integer", bmerr.Field("subject_id", s))
	}
	return id, nil
}

// parseVector decodes a JSON array of numbers.
func parseVector(s string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, bmerr.Wrap(err, bmerr.CodeCLIInputInvalid, "embedding must be a JSON array of numbers")
	}
	return vec, nil
}

// withApp wires the application for the duration of fn.
func withApp(cmd *cobra.Command, v *viper.Viper, fn func(app *App) error) error {
	app, err := WireApp(cmd.Context(), v)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(app)
}
