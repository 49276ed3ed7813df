package models

import "time"

// Run is one end-to-end execution of the workflow on a single note
type Run struct {
	RunID     string    `json:"run_id"`
	NotePath  string    `json:"note_path"`
	ArxivID   string    `json:"arxiv_id"`
	StartedAt time.Time `json:"started_at"`
}

// TitleResult describes the outcome of the title resolution step
type TitleResult struct {
	ArxivID    string `json:"arxiv_id"`
	Title      string `json:"title"`
	OldPath    string `json:"old_path"`
	NewPath    string `json:"new_path"`
	Renamed    bool   `json:"renamed"`     // False when the note already carried the title
	HTTPStatus int    `json:"http_status"` // Status of the abstract page request
}

// FetchStatus is the per-artifact outcome of the fetch step
type FetchStatus struct {
	URL        string `json:"url"`
	Path       string `json:"path"`
	HTTPStatus int    `json:"http_status"` // 0 when the request never produced a response
	Bytes      int    `json:"bytes"`
	Error      string `json:"error,omitempty"`
}

// OK reports whether the artifact was saved
func (s FetchStatus) OK() bool {
	return s.Error == ""
}

// FetchResult describes the outcome of the document fetch step
type FetchResult struct {
	ArxivID    string      `json:"arxiv_id"`
	FolderPath string      `json:"folder_path"`
	HTML       FetchStatus `json:"html"`
	PDF        FetchStatus `json:"pdf"`
	PDFPages   int         `json:"pdf_pages"`
	PDFValid   bool        `json:"pdf_valid"`
}

// SummaryResult describes the outcome of the summary step
type SummaryResult struct {
	Skipped      bool   `json:"skipped"`
	SkipReason   string `json:"skip_reason,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	SummaryChars int    `json:"summary_chars"`
	NotePath     string `json:"note_path"`
	HTMLPath     string `json:"html_path"`
	PromptPath   string `json:"prompt_path,omitempty"`
	Truncated    bool   `json:"truncated,omitempty"` // Prompt content was cut to max_content_chars
}
