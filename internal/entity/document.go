package entity

// Document is one uploaded certificate for the duration of a single pipeline run.
type Document struct {
	Filename string `json:"filename" validate:"required"`
	Ext      string `json:"ext" validate:"required,oneof=pdf txt"`
	Content  []byte `json:"-"`
}

// RecoveredText is the normalized text of a document plus the counts used by content checks.
type RecoveredText struct {
	Text          string   `json:"text"`
	Pages         int      `json:"pages"`
	PagesWithText int      `json:"pages_with_text"`
	Chars         int      `json:"chars"`
	Lines         int      `json:"lines"`
	Method        string   `json:"method"`
	Warnings      []string `json:"warnings,omitempty"`
	Confidence    float32  `json:"confidence"`
}

// ValidationVerdict gates extraction.
type ValidationVerdict struct {
	Passed          bool     `json:"passed"`
	FoundElements   []string `json:"found_elements"`
	MissingElements []string `json:"missing_elements"`
	IssuerOK        bool     `json:"issuer_ok"`
	IssuerMatch     string   `json:"issuer_match,omitempty"`
	Feedback        Feedback `json:"feedback"`
}

// Feedback is user-facing guidance for a verdict.
type Feedback struct {
	Valid     bool     `json:"is_valid"`
	ErrorType string   `json:"error_type,omitempty"`
	Message   string   `json:"message"`
	Details   []string `json:"details"`
	Guidance  []string `json:"guidance,omitempty"`
}
