package images

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    []byte
	deleted string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = aws.ToString(params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorageSave(t *testing.T) {
	client := &fakeS3{}
	storage := newS3Storage(client, "hamro-images", "ap-south-1", "")

	img, err := storage.Save(context.Background(), models.ImageUpload{ContentType: "image/png", Data: pngBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := aws.ToString(client.put.Key)
	if !strings.HasPrefix(key, "products/") {
		t.Fatalf("key=%q want products/ prefix", key)
	}
	if aws.ToString(client.put.Bucket) != "hamro-images" {
		t.Fatalf("bucket=%q", aws.ToString(client.put.Bucket))
	}
	if aws.ToString(client.put.ContentType) != "image/png" {
		t.Fatalf("contentType=%q", aws.ToString(client.put.ContentType))
	}
	if string(client.body) != string(pngBytes) {
		t.Fatal("body does not match upload")
	}
	if img.URL != "https://hamro-images.s3.ap-south-1.amazonaws.com/"+key {
		t.Fatalf("url=%q", img.URL)
	}

	if err := storage.Delete(context.Background(), img.PublicID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.deleted != key {
		t.Fatalf("deleted=%q want %q", client.deleted, key)
	}
}

func TestS3StorageSaveError(t *testing.T) {
	storage := newS3Storage(&fakeS3{err: errors.New("access denied")}, "b", "", "")
	if _, err := storage.Save(context.Background(), models.ImageUpload{Data: pngBytes}); err == nil {
		t.Fatal("expected error")
	}
}

type fakeCloudinary struct {
	params    uploader.UploadParams
	result    *uploader.UploadResult
	destroyed string
}

func (f *fakeCloudinary) Upload(_ context.Context, _ interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.params = params
	return f.result, nil
}

func (f *fakeCloudinary) Destroy(_ context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	f.destroyed = params.PublicID
	return &uploader.DestroyResult{Result: "ok"}, nil
}

func TestCloudinaryStorage(t *testing.T) {
	fake := &fakeCloudinary{result: &uploader.UploadResult{
		PublicID:  "products/abc",
		SecureURL: "https://res.cloudinary.com/demo/image/upload/products/abc.png",
	}}
	storage := newCloudinaryStorage(fake, "")

	img, err := storage.Save(context.Background(), models.ImageUpload{Data: pngBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.params.Folder != DefaultFolder || fake.params.ResourceType != "image" {
		t.Fatalf("params=%+v", fake.params)
	}
	if img.URL != fake.result.SecureURL || img.PublicID != "products/abc" {
		t.Fatalf("img=%+v", img)
	}

	if err := storage.Delete(context.Background(), img.PublicID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.destroyed != "products/abc" {
		t.Fatalf("destroyed=%q", fake.destroyed)
	}
}

func TestCloudinaryStorageMissingURL(t *testing.T) {
	storage := newCloudinaryStorage(&fakeCloudinary{result: &uploader.UploadResult{}}, "listings")
	if _, err := storage.Save(context.Background(), models.ImageUpload{Data: pngBytes}); err == nil {
		t.Fatal("expected error when no URL is returned")
	}
}
