package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// maxRekognitionBytes is the largest inline image Rekognition accepts.
const maxRekognitionBytes = 5 << 20

type rekognitionAPI interface {
	DetectModerationLabels(ctx context.Context, params *rekognition.DetectModerationLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectModerationLabelsOutput, error)
}

// AWSDetector sends image bytes to Rekognition.
type AWSDetector struct {
	client        rekognitionAPI
	minConfidence float32
}

// NewAWSDetector creates a detector that uses ambient AWS credentials/profile.
func NewAWSDetector(ctx context.Context, region string) (*AWSDetector, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{}
	trimmedRegion := strings.TrimSpace(region)
	if trimmedRegion != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(trimmedRegion))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWSDetector{
		client:        rekognition.NewFromConfig(cfg),
		minConfidence: 50,
	}, nil
}

// DetectModerationLabels returns the labels Rekognition reports at or above
// the detector's minimum confidence.
func (d *AWSDetector) DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]models.ModerationLabel, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}
	if len(imageBytes) > maxRekognitionBytes {
		return nil, fmt.Errorf("image is %d bytes, rekognition accepts at most %d", len(imageBytes), maxRekognitionBytes)
	}

	output, err := d.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image: &rekognitiontypes.Image{
			Bytes: imageBytes,
		},
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect moderation labels failed: %w", err)
	}

	labels := make([]models.ModerationLabel, 0, len(output.ModerationLabels))
	for _, label := range output.ModerationLabels {
		confidence := 0.0
		if label.Confidence != nil {
			confidence = float64(*label.Confidence)
		}

		labels = append(labels, models.ModerationLabel{
			Name:       aws.ToString(label.Name),
			ParentName: aws.ToString(label.ParentName),
			Confidence: confidence,
		})
	}

	return labels, nil
}
