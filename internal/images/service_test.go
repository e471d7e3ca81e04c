package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/testutil"
)

var (
	pngBytes  = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xDB}, make([]byte, 64)...)
)

type fakeModerator struct {
	mu        sync.Mutex
	decisions map[string]*models.ModerationDecision
	err       error
	calls     int
}

func (f *fakeModerator) ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if d, ok := f.decisions[string(imageBytes[:4])]; ok {
		return d, nil
	}
	return &models.ModerationDecision{Status: models.ImageModerationApproved}, nil
}

type failingStorage struct {
	*MemoryStorage
	failOn string
}

func (f *failingStorage) Save(ctx context.Context, upload models.ImageUpload) (*models.StoredImage, error) {
	if upload.Filename == f.failOn {
		return nil, errors.New("upstream unavailable")
	}
	return f.MemoryStorage.Save(ctx, upload)
}

func uploads(names ...string) []models.ImageUpload {
	out := make([]models.ImageUpload, len(names))
	for i, name := range names {
		data := pngBytes
		if strings.HasSuffix(name, ".jpg") {
			data = jpegBytes
		}
		out[i] = models.ImageUpload{Filename: name, Data: data}
	}
	return out
}

func TestUploadAllReturnsURLsInOrder(t *testing.T) {
	storage := NewMemoryStorage("https://cdn.test")
	svc := NewService(&fakeModerator{}, storage, testutil.NullLogger(), Options{})

	files := uploads("a.png", "b.jpg", "c.png", "d.jpg")
	urls, err := svc.UploadAll(context.Background(), "seller-1", files)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != len(files) {
		t.Fatalf("urls=%d want %d", len(urls), len(files))
	}
	seen := make(map[string]bool)
	for i, url := range urls {
		if !strings.HasPrefix(url, "https://cdn.test/products/") {
			t.Fatalf("url[%d]=%q has unexpected prefix", i, url)
		}
		if seen[url] {
			t.Fatalf("duplicate url %q", url)
		}
		seen[url] = true
	}
	if storage.Len() != len(files) {
		t.Fatalf("stored=%d want %d", storage.Len(), len(files))
	}
	if files[1].ContentType != "image/jpeg" {
		t.Fatalf("contentType=%q want image/jpeg", files[1].ContentType)
	}
}

func TestUploadAllModerationOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		mod     Moderator
		wantErr error
	}{
		{
			name: "rejection fails the batch",
			mod: &fakeModerator{decisions: map[string]*models.ModerationDecision{
				string(jpegBytes[:4]): {Status: models.ImageModerationRejected, Reason: "Not allowed: Weapons"},
			}},
			wantErr: ErrImageRejected,
		},
		{
			name:    "moderator error is reported as unavailable",
			mod:     &fakeModerator{err: errors.New("throttled")},
			wantErr: ErrModerationUnavailable,
		},
		{
			name: "pending review is reported as unavailable",
			mod: &fakeModerator{decisions: map[string]*models.ModerationDecision{
				string(pngBytes[:4]): {Status: models.ImageModerationPendingReview},
			}},
			wantErr: ErrModerationUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMemoryStorage("")
			svc := NewService(tt.mod, storage, testutil.NullLogger(), Options{})

			_, err := svc.UploadAll(context.Background(), "seller-1", uploads("a.png", "b.jpg"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v want %v", err, tt.wantErr)
			}
			if storage.Len() != 0 {
				t.Fatalf("stored=%d want 0", storage.Len())
			}
		})
	}
}

func TestUploadAllRejectedErrorDetails(t *testing.T) {
	mod := &fakeModerator{decisions: map[string]*models.ModerationDecision{
		string(jpegBytes[:4]): {Status: models.ImageModerationRejected, Reason: "Not allowed: Weapons"},
	}}
	svc := NewService(mod, NewMemoryStorage(""), testutil.NullLogger(), Options{})

	_, err := svc.UploadAll(context.Background(), "seller-1", uploads("a.png", "b.jpg"))
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err=%v want *RejectedError", err)
	}
	if rejected.Index != 1 || rejected.Filename != "b.jpg" {
		t.Fatalf("rejected=%+v", rejected)
	}
}

func TestUploadAllWithoutModerator(t *testing.T) {
	svc := NewService(nil, NewMemoryStorage(""), testutil.NullLogger(), Options{})

	urls, err := svc.UploadAll(context.Background(), "seller-1", uploads("a.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("urls=%d want 1", len(urls))
	}
}

func TestUploadAllValidation(t *testing.T) {
	svc := NewService(nil, NewMemoryStorage(""), testutil.NullLogger(), Options{MaxUploadBytes: 32})

	tests := []struct {
		name  string
		files []models.ImageUpload
	}{
		{name: "no files", files: nil},
		{name: "not an image", files: []models.ImageUpload{{Filename: "a.txt", Data: []byte("hello")}}},
		{name: "too large", files: uploads("a.png")},
		{name: "empty payload", files: []models.ImageUpload{{Filename: "a.png"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadAll(context.Background(), "seller-1", tt.files)
			if !errors.Is(err, ErrUnsupportedImage) {
				t.Fatalf("err=%v want ErrUnsupportedImage", err)
			}
		})
	}
}

func TestUploadAllCleansUpAfterStorageFailure(t *testing.T) {
	storage := &failingStorage{MemoryStorage: NewMemoryStorage(""), failOn: "c.png"}
	svc := NewService(&fakeModerator{}, storage, testutil.NullLogger(), Options{})

	_, err := svc.UploadAll(context.Background(), "seller-1", uploads("a.png", "b.jpg", "c.png"))
	if err == nil || !strings.Contains(err.Error(), "upstream unavailable") {
		t.Fatalf("err=%v want storage failure", err)
	}
	if storage.Len() != 0 {
		t.Fatalf("stored=%d want 0 after cleanup", storage.Len())
	}
}

type blockingStorage struct{}

func (blockingStorage) Save(ctx context.Context, _ models.ImageUpload) (*models.StoredImage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStorage) Delete(context.Context, string) error { return nil }

func TestUploadAllPerImageTimeout(t *testing.T) {
	svc := NewService(nil, blockingStorage{}, testutil.NullLogger(), Options{UploadTimeout: 20 * time.Millisecond})

	_, err := svc.UploadAll(context.Background(), "seller-1", uploads("a.png"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded", err)
	}
}

func TestDetectContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       []byte
		wantType    string
		wantAllowed bool
	}{
		{name: "empty", input: nil, wantType: "", wantAllowed: false},
		{name: "jpeg_allowed", input: jpegBytes, wantType: "image/jpeg", wantAllowed: true},
		{name: "png_allowed", input: pngBytes, wantType: "image/png", wantAllowed: true},
		{name: "gif_allowed", input: []byte("GIF89a......"), wantType: "image/gif", wantAllowed: true},
		{name: "text_disallowed", input: []byte("plain text"), wantType: "text/plain; charset=utf-8", wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotType, gotAllowed := DetectContentType(tt.input)
			if gotType != tt.wantType {
				t.Fatalf("contentType=%q, want %q", gotType, tt.wantType)
			}
			if gotAllowed != tt.wantAllowed {
				t.Fatalf("allowed=%v, want %v", gotAllowed, tt.wantAllowed)
			}
		})
	}
}

func TestMemoryStorageDelete(t *testing.T) {
	storage := NewMemoryStorage("")
	img, err := storage.Save(context.Background(), models.ImageUpload{Data: pngBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := storage.Get(img.PublicID); !ok {
		t.Fatalf("expected %s to be stored", img.PublicID)
	}
	if err := storage.Delete(context.Background(), img.PublicID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storage.Len() != 0 {
		t.Fatalf("stored=%d want 0", storage.Len())
	}
	if img.URL != fmt.Sprintf("memory://images/%s", img.PublicID) {
		t.Fatalf("url=%q", img.URL)
	}
}
