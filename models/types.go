package models

// DownloadTask is the parameter set for one Fetcher run.
// The caller validates it; the Fetcher does not re-check the fields.
type DownloadTask struct {
	BaseURL        string `json:"base_url"`        // Viewer base URL, trailing slash normalized
	URLPathSegment string `json:"url_path"`        // Remote file/collection identifier, trailing slash normalized
	RemoteFilename string `json:"remote_filename"` // Used verbatim inside the base64 page payload
	TotalPages     int    `json:"total_pages"`     // Number of pages to request (indices 0..TotalPages-1)
	OutputDir      string `json:"output_dir"`      // Where page_NNN.<ext> files are written
}

// ProcessingRun is the parameter set for one Assembler run.
type ProcessingRun struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
}

// PageFile is a raster image discovered in a pages directory.
// Width and height are not stored; the classifier reads them on demand.
type PageFile struct {
	Path       string
	Name       string
	Ext        string // Extension including the dot, as found on disk
	PageNumber int
}

// FetchResult is returned by a Fetcher run.
// Err is only set for pre-flight failures, in which case SuccessCount is 0.
type FetchResult struct {
	SuccessCount  int
	Total         int
	Skipped       int // Pages already on disk, included in SuccessCount
	LoginRequired int // Pages answered with an HTML page instead of an image
	Cancelled     bool
	Err           error
}

// AssembleResult is returned by an Assembler run.
type AssembleResult struct {
	Processed      int
	SpreadsCreated int
	Failed         int // Copies and merges that wrote no output
	Total          int // Numbered files found in the input directory
	Cancelled      bool
	Err            error
}
