package biomatch_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/biomatch"
	"github.com/hupe1980/biomatch/audit"
	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/modality"
	"github.com/hupe1980/biomatch/store"
)

// Example_match demonstrates building a face index and identifying a probe.
func Example_match() {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "biomatch-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s := store.NewMemory()
	s.AddSubject(1, "alice")
	s.AddSubject(2, "bob")
	_, _ = s.SaveSample(ctx, 1, modality.Face, []float32{1, 0, 0})
	_, _ = s.SaveSample(ctx, 2, modality.Face, []float32{0, 1, 0})

	eng := biomatch.New(s, s,
		biomatch.WithIndexDir(dir),
		biomatch.WithDimension(modality.Face, 3), // toy embeddings
		biomatch.WithAudit(audit.NewLogger(&audit.MemorySink{})),
	)
	if err := eng.BuildIndex(ctx, modality.Face); err != nil {
		log.Fatal(err)
	}

	matches, err := eng.Match(ctx, biomatch.Session{Operator: "gate-1"}, []float32{0.99, 0.01, 0}, modality.Face)
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range matches {
		fmt.Println(m.SubjectID, m.Identity)
	}
	// Output: 1 alice
}

// Example_enroll demonstrates the duplicate guard refusing a second
// subject with the same biometric.
func Example_enroll() {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "biomatch-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s := store.NewMemory()
	s.AddSubject(1, "alice")
	s.AddSubject(2, "mallory")

	cfg := ivf.DefaultConfig()
	eng := biomatch.New(s, s,
		biomatch.WithIndexDir(dir),
		biomatch.WithIVFConfig(cfg),
		biomatch.WithDimension(modality.Signature, 2),
		biomatch.WithSampleWriter(s),
	)

	if _, err := eng.Enroll(ctx, biomatch.Session{}, 1, modality.Signature, []float32{3, 4}); err != nil {
		log.Fatal(err)
	}
	_, err = eng.Enroll(ctx, biomatch.Session{}, 2, modality.Signature, []float32{6, 8})
	fmt.Println(errors.Is(err, biomatch.ErrDuplicateBiometric), biomatch.IsRejected(err))
	// Output: true true
}
