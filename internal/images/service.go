// Package images moderates and hosts product images uploaded by sellers.
package images

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/models"
)

var (
	// ErrImageRejected is returned when moderation rejects any image in a batch.
	ErrImageRejected = errors.New("image rejected by moderation")
	// ErrModerationUnavailable is returned when an image could not be verified.
	ErrModerationUnavailable = errors.New("unable to verify image right now")
	// ErrUnsupportedImage is returned for empty, oversized or non-image payloads.
	ErrUnsupportedImage = errors.New("unsupported image")
)

const (
	defaultUploadTimeout     = 30 * time.Second
	defaultModerationTimeout = 5 * time.Second
	defaultMaxUploadBytes    = 5 << 20
)

// Moderator defines the moderation abstraction used by image flows.
type Moderator interface {
	ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error)
}

// RejectedError carries the moderation decision that failed a batch.
type RejectedError struct {
	Index    int
	Filename string
	Decision models.ModerationDecision
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("image %d (%s) rejected: %s", e.Index+1, e.Filename, e.Decision.Reason)
}

// Is reports whether target is ErrImageRejected.
func (e *RejectedError) Is(target error) bool {
	return target == ErrImageRejected
}

// Options tunes a Service.
type Options struct {
	UploadTimeout     time.Duration
	ModerationTimeout time.Duration
	MaxUploadBytes    int64
}

// Service orchestrates moderation and storage for product image batches.
type Service struct {
	moderator Moderator
	storage   Storage
	logger    *logging.Logger
	opts      Options
}

// NewService creates a new image pipeline service. A nil moderator skips
// moderation.
func NewService(moderator Moderator, storage Storage, logger *logging.Logger, opts Options) *Service {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	if opts.ModerationTimeout <= 0 {
		opts.ModerationTimeout = defaultModerationTimeout
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Service{
		moderator: moderator,
		storage:   storage,
		logger:    logger,
		opts:      opts,
	}
}

// UploadAll validates and moderates every file, then uploads them
// concurrently. URLs are returned in input order. Nothing is uploaded unless
// every file passes moderation.
func (s *Service) UploadAll(ctx context.Context, ownerID string, files []models.ImageUpload) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", ErrUnsupportedImage)
	}

	for i := range files {
		contentType, err := s.validate(files[i])
		if err != nil {
			return nil, fmt.Errorf("image %d (%s): %w", i+1, files[i].Filename, err)
		}
		files[i].ContentType = contentType
	}

	for i, file := range files {
		decision := s.moderate(ctx, file.Data)
		switch decision.Status {
		case models.ImageModerationApproved:
		case models.ImageModerationRejected:
			s.logger.Warn("Image rejected by moderation", logging.WithFields(map[string]interface{}{
				"owner":    ownerID,
				"filename": file.Filename,
				"reason":   decision.Reason,
			}))
			return nil, &RejectedError{Index: i, Filename: file.Filename, Decision: *decision}
		default:
			return nil, fmt.Errorf("image %d (%s): %w", i+1, file.Filename, ErrModerationUnavailable)
		}
	}

	urls := make([]string, len(files))
	stored := make([]*models.StoredImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			uploadCtx, cancel := context.WithTimeout(gctx, s.opts.UploadTimeout)
			defer cancel()

			img, err := s.storage.Save(uploadCtx, file)
			if err != nil {
				return fmt.Errorf("image %d (%s): %w", i+1, file.Filename, err)
			}
			stored[i] = img
			urls[i] = img.URL
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.cleanup(ctx, stored)
		return nil, err
	}

	s.logger.Debug("Uploaded product images", logging.WithFields(map[string]interface{}{
		"owner": ownerID,
		"count": len(urls),
	}))
	return urls, nil
}

// Delete removes a previously stored image.
func (s *Service) Delete(ctx context.Context, publicID string) error {
	return s.storage.Delete(ctx, publicID)
}

func (s *Service) validate(file models.ImageUpload) (string, error) {
	if int64(len(file.Data)) > s.opts.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrUnsupportedImage, len(file.Data), s.opts.MaxUploadBytes)
	}
	contentType, ok := DetectContentType(file.Data)
	if !ok {
		return "", fmt.Errorf("%w: content type %q is not allowed", ErrUnsupportedImage, contentType)
	}
	return contentType, nil
}

func (s *Service) moderate(ctx context.Context, imageBytes []byte) *models.ModerationDecision {
	if s.moderator == nil {
		return &models.ModerationDecision{Status: models.ImageModerationApproved, Reason: "Approved"}
	}

	moderationCtx, cancel := context.WithTimeout(ctx, s.opts.ModerationTimeout)
	defer cancel()

	decision, err := s.moderator.ModerateImageBytes(moderationCtx, imageBytes)
	if err != nil || decision == nil {
		if err != nil {
			s.logger.Warn("Image moderation failed", logging.WithField("error", err))
		}
		return &models.ModerationDecision{
			Status: models.ImageModerationPendingReview,
			Reason: "Unable to verify right now",
		}
	}

	return decision
}

// cleanup removes images already stored by a failed batch.
func (s *Service) cleanup(ctx context.Context, stored []*models.StoredImage) {
	for _, img := range stored {
		if img == nil {
			continue
		}
		if err := s.storage.Delete(context.WithoutCancel(ctx), img.PublicID); err != nil {
			s.logger.Warn("Failed to remove orphaned image", logging.WithFields(map[string]interface{}{
				"publicId": img.PublicID,
				"error":    err,
			}))
		}
	}
}

var allowedImageContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// DetectContentType sniffs imageData and reports whether it is an allowed
// image type.
func DetectContentType(imageData []byte) (string, bool) {
	if len(imageData) == 0 {
		return "", false
	}

	contentType := strings.ToLower(strings.TrimSpace(http.DetectContentType(imageData)))
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}

	_, ok := allowedImageContentTypes[contentType]
	return contentType, ok
}
