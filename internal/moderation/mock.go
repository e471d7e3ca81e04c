package moderation

import (
	"context"
	"sync/atomic"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// MockModerator approves everything unless Decision or Err is set. It is
// used in tests and when moderation is disabled in development.
type MockModerator struct {
	Decision *models.ModerationDecision
	Err      error

	calls atomic.Int64
}

// ModerateImageBytes returns the configured decision/error.
func (m *MockModerator) ModerateImageBytes(_ context.Context, _ []byte) (*models.ModerationDecision, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Decision != nil {
		return m.Decision, nil
	}
	return &models.ModerationDecision{
		Status: models.ImageModerationApproved,
		Reason: "Approved",
	}, nil
}

// Calls reports how many images were screened.
func (m *MockModerator) Calls() int {
	return int(m.calls.Load())
}

var _ Moderator = (*MockModerator)(nil)
