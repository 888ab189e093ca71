package biomatch

// Session carries the caller context of one match or enrollment attempt.
// All fields are optional and are copied into the audit entry.
type Session struct {
	// Operator names the station or user driving the attempt.
	Operator string
	// SubjectID is set when verifying a claimed identity.
	SubjectID *int64
	// SensorID identifies the capture device.
	SensorID *int64
	// SampleID references the captured sample, when persisted.
	SampleID *int64
}

// ID returns a pointer to v, for populating Session fields.
func ID(v int64) *int64 {
	return &v
}
