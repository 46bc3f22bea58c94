package app

// Config holds everything needed to construct an App.
type Config struct {
	// PlanPath is the HCL plan file or directory to load at startup. May
	// be empty for programmatic callers that schedule tasks themselves.
	PlanPath string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}
