package health

// Status is the derived health of one report section.
type Status string

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is down, stale or unreachable.
	StatusUnhealthy Status = "unhealthy"
)

// String returns the wire form of the status.
func (s Status) String() string {
	return string(s)
}

// Ptr returns a pointer to a copy of s, for optional status fields.
func (s Status) Ptr() *Status {
	return &s
}
