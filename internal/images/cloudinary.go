package images

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// DefaultFolder is the Cloudinary folder (and S3 key prefix) for product images.
const DefaultFolder = "products"

type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStorage uploads product images to a Cloudinary folder.
type CloudinaryStorage struct {
	upload cloudinaryUploader
	folder string
}

// NewCloudinaryStorage creates a storage backed by the Cloudinary upload API.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return newCloudinaryStorage(&cld.Upload, folder), nil
}

func newCloudinaryStorage(upload cloudinaryUploader, folder string) *CloudinaryStorage {
	if folder == "" {
		folder = DefaultFolder
	}
	return &CloudinaryStorage{upload: upload, folder: folder}
}

// Save uploads the image and returns its secure URL.
func (c *CloudinaryStorage) Save(ctx context.Context, img models.ImageUpload) (*models.StoredImage, error) {
	unique := true
	overwrite := false
	result, err := c.upload.Upload(ctx, bytes.NewReader(img.Data), uploader.UploadParams{
		Folder:         c.folder,
		ResourceType:   "image",
		UniqueFilename: &unique,
		Overwrite:      &overwrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return nil, fmt.Errorf("upload succeeded but no URL was returned")
	}

	return &models.StoredImage{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

// Delete destroys an uploaded image by public id.
func (c *CloudinaryStorage) Delete(ctx context.Context, publicID string) error {
	if _, err := c.upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", publicID, err)
	}
	return nil
}
