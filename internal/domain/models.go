// Package domain contains the result payloads returned by the splitter.
package domain

// Messages returned in result bodies.
const (
	MessageSplit     = "PDF split successfully"
	MessageNoFiles   = "No files to process"
	MessageProcessed = "Files processed"

	// ErrorInternal is the error value of every failure body.
	ErrorInternal = "InternalServerError"
)

// SplitResult describes one document that was split.
type SplitResult struct {
	Message      string   `json:"message"`
	OriginalFile string   `json:"originalFile"`
	OriginalSize float64  `json:"originalSize"` // MiB
	Chunks       []string `json:"chunks"`
	ChunkCount   int      `json:"chunkCount"`
}

// ErrorResult is the body of a failed invocation or a failed record.
type ErrorResult struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
}

// MessageResult is the body when nothing needed splitting.
type MessageResult struct {
	Message string `json:"message"`
}

// BatchResult is the body when every record in the event is processed.
// Split and Failed hold only the records that needed action.
type BatchResult struct {
	Message string        `json:"message"`
	Split   []SplitResult `json:"split"`
	Failed  []ErrorResult `json:"failed,omitempty"`
}
