// Package progress holds the per-step ledger of a remote video job and the
// time-to-completion estimate derived from it.
package progress

// Status is the lifecycle state of a single step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus maps a wire value to a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along pending → in_progress → {completed, failed}.
func (s Status) rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return 0
	}
}

// StepDef is a catalog entry. IDs are a contract with the backend.
type StepDef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Step is the tracked state of one catalog entry.
type Step struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	StepUploadVideo         = "upload_video"
	StepExtractAudio        = "extract_audio"
	StepGetTranscript       = "get_transcript"
	StepSummarizeTranscript = "summarize_transcript"
	StepUploadToS3          = "upload_to_s3"
)

// DefaultCatalog returns the ordered steps of the video pipeline.
func DefaultCatalog() []StepDef {
	return []StepDef{
		{ID: StepUploadVideo, Name: "Upload Video"},
		{ID: StepExtractAudio, Name: "Extract Audio"},
		{ID: StepGetTranscript, Name: "Get Transcript"},
		{ID: StepSummarizeTranscript, Name: "Summarize Transcript"},
		{ID: StepUploadToS3, Name: "Upload to S3"},
	}
}
