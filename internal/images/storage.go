package images

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// Storage hosts approved image bytes and returns a public URL for them.
type Storage interface {
	Save(ctx context.Context, upload models.ImageUpload) (*models.StoredImage, error)
	Delete(ctx context.Context, publicID string) error
}

// MemoryStorage keeps images in process. It backs development servers
// without a configured provider and the tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
}

// NewMemoryStorage creates a memory storage whose URLs start with baseURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://images"
	}
	return &MemoryStorage{
		baseURL: baseURL,
		objects: make(map[string][]byte),
	}
}

// Save stores a copy of the upload bytes.
func (m *MemoryStorage) Save(ctx context.Context, upload models.ImageUpload) (*models.StoredImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := "products/" + uuid.NewString()
	data := make([]byte, len(upload.Data))
	copy(data, upload.Data)

	m.mu.Lock()
	m.objects[id] = data
	m.mu.Unlock()

	return &models.StoredImage{
		PublicID: id,
		URL:      fmt.Sprintf("%s/%s", m.baseURL, id),
	}, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (m *MemoryStorage) Delete(_ context.Context, publicID string) error {
	m.mu.Lock()
	delete(m.objects, publicID)
	m.mu.Unlock()
	return nil
}

// Get returns the stored bytes for publicID.
func (m *MemoryStorage) Get(publicID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[publicID]
	return data, ok
}

// Len reports the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
