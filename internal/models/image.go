package models

// ImageModerationStatus is the moderation outcome returned to clients.
type ImageModerationStatus string

const (
	ImageModerationApproved      ImageModerationStatus = "APPROVED"
	ImageModerationRejected      ImageModerationStatus = "REJECTED"
	ImageModerationPendingReview ImageModerationStatus = "PENDING_REVIEW"
)

// ModerationLabel captures a single Rekognition moderation label.
type ModerationLabel struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parentName,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ModerationDecision is the server-side decision used by upload flows.
type ModerationDecision struct {
	Status        ImageModerationStatus `json:"status"`
	Reason        string                `json:"reason,omitempty"`
	Labels        []ModerationLabel     `json:"labels,omitempty"`
	MaxConfidence float64               `json:"maxConfidence,omitempty"`
}

// ImageUpload is one file received from a seller form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoredImage is the result of persisting an approved image.
type StoredImage struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
}
