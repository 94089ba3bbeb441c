package job

import "errors"

// ErrNoJob is returned by Kill when no job is active.
var ErrNoJob = errors.New("no active job")

// Event type names published on the hub.
const (
	EventProgress = "job.progress"
	EventStdout   = "job.stdout"
	EventStderr   = "job.stderr"
	EventDone     = "job.done"
	EventError    = "job.error"
)

// Spec describes one extraction run. Field names mirror the extractor's
// CLI flags; zero values mean "let the extractor decide".
type Spec struct {
	URL          string `json:"url"`
	Tier         int    `json:"tier,omitempty"`
	NoEscalate   bool   `json:"noEscalate,omitempty"`
	Model        string `json:"model,omitempty"`
	Device       string `json:"device,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	Format       string `json:"format,omitempty"`
	Output       string `json:"output,omitempty"`
	Quiet        bool   `json:"quiet,omitempty"`
	JSONProgress bool   `json:"jsonProgress,omitempty"`
	Summarize    bool   `json:"summarize,omitempty"`
}

// ProgressEvent is one structured status line from the extractor's
// --json-progress stream. Progress is 0..100, or -1 for indeterminate.
// OutputPath is set only on the terminal "complete" stage.
type ProgressEvent struct {
	Stage      string  `json:"stage"`
	Message    string  `json:"message"`
	Progress   int     `json:"progress"`
	Timestamp  float64 `json:"timestamp"`
	OutputPath string  `json:"output_path,omitempty"`
}

// ProgressPayload tags a ProgressEvent with the run that produced it.
type ProgressPayload struct {
	Generation string `json:"generation"`
	ProgressEvent
}

// LinePayload carries one raw output line.
type LinePayload struct {
	Generation string `json:"generation"`
	Line       string `json:"line"`
}

// DonePayload is published once per run, after all of that run's output.
type DonePayload struct {
	Generation string `json:"generation"`
	Success    bool   `json:"success"`
	ExitCode   int    `json:"exitCode"`
}

// ErrorPayload is published when the extractor cannot be started.
type ErrorPayload struct {
	Generation string `json:"generation"`
	Message    string `json:"message"`
}
