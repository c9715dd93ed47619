package observe

// Component identifies a monitored background component for telemetry.
type Component struct {
	Name    string // Report section name, e.g. "scheduler" (required)
	JobType string // Job type queried in the metadata store (optional)
}

// SpanName returns the deterministic span name for queries about this
// component: health.query.<name>
func (c Component) SpanName() string {
	return "health.query." + c.Name
}

// Validate checks that the component is usable as a telemetry key.
func (c Component) Validate() error {
	if c.Name == "" {
		return ErrMissingComponentName
	}
	return nil
}
