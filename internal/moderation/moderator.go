// Package moderation screens seller-uploaded product images before they
// are hosted.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// Detector is the low-level provider abstraction that fetches moderation labels.
type Detector interface {
	DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]models.ModerationLabel, error)
}

// Moderator decides whether an image may be published.
type Moderator interface {
	ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error)
}

// DefaultAllowedCategories are label categories that legitimately appear in
// storefront photos (drinks, vapes, swimwear and underwear listings).
var DefaultAllowedCategories = []string{
	"Alcohol",
	"Drugs & Tobacco",
	"Tobacco",
	"Swimwear or Underwear",
}

// Service evaluates moderation labels into APPROVED/REJECTED decisions.
type Service struct {
	detector         Detector
	rejectConfidence float64
	timeout          time.Duration
	allowed          map[string]bool
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each detector call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithAllowedCategories replaces DefaultAllowedCategories.
func WithAllowedCategories(categories ...string) Option {
	return func(s *Service) {
		s.allowed = make(map[string]bool, len(categories))
		for _, c := range categories {
			s.allowed[strings.ToLower(c)] = true
		}
	}
}

// NewService creates a moderation service using the configured detector.
func NewService(detector Detector, rejectConfidence float64, opts ...Option) *Service {
	if rejectConfidence <= 0 {
		rejectConfidence = 70
	}
	s := &Service{
		detector:         detector,
		rejectConfidence: rejectConfidence,
	}
	WithAllowedCategories(DefaultAllowedCategories...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ModerateImageBytes moderates image bytes and returns an APPROVED/REJECTED
// decision. Labels in an allowed category never reject.
func (s *Service) ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	labels, err := s.detector.DetectModerationLabels(ctx, imageBytes)
	if err != nil {
		return nil, fmt.Errorf("moderation unavailable: %w", err)
	}

	decision := &models.ModerationDecision{
		Status: models.ImageModerationApproved,
		Reason: "Approved",
		Labels: labels,
	}

	var blocking []string
	for _, label := range labels {
		if label.Confidence > decision.MaxConfidence {
			decision.MaxConfidence = label.Confidence
		}
		if s.isAllowed(label) {
			continue
		}
		if label.Confidence >= s.rejectConfidence {
			blocking = append(blocking, label.Name)
		}
	}

	if len(blocking) > 0 {
		decision.Status = models.ImageModerationRejected
		decision.Reason = "Not allowed: " + strings.Join(blocking, ", ")
	}

	return decision, nil
}

func (s *Service) isAllowed(label models.ModerationLabel) bool {
	return s.allowed[strings.ToLower(label.Name)] || s.allowed[strings.ToLower(label.ParentName)]
}

var _ Moderator = (*Service)(nil)
