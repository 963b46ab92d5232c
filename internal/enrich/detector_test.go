package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

type fakeRekognition struct {
	labels []types.Label
	err    error
	input  *rekognition.DetectLabelsInput
}

func (f *fakeRekognition) DetectLabels(_ context.Context, in *rekognition.DetectLabelsInput, _ ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &rekognition.DetectLabelsOutput{Labels: f.labels}, nil
}

func label(name string, conf float32) types.Label {
	return types.Label{Name: aws.String(name), Confidence: aws.Float32(conf)}
}

func TestDetectFiltersByConfidence(t *testing.T) {
	api := &fakeRekognition{labels: []types.Label{
		label("Furniture", 99.1),
		label("Chair", 92),
		label("Plant", 75),
		label("Rug", 60),
		label("Window", 80),
	}}
	d := NewRekognitionDetector(api, DetectorConfig{})

	labels, err := d.Detect(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, domain.LabelSet{"Furniture", "Chair", "Window"}, labels)
	assert.Equal(t, int32(10), aws.ToInt32(api.input.MaxLabels))
	assert.Equal(t, []byte("img"), api.input.Image.Bytes)
}

func TestDetectCapsLabelCount(t *testing.T) {
	api := &fakeRekognition{labels: []types.Label{label("A", 99), label("B", 98), label("C", 97)}}
	d := NewRekognitionDetector(api, DetectorConfig{MaxLabels: 2})

	labels, err := d.Detect(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, domain.LabelSet{"A", "B"}, labels)
}

func TestDetectErrors(t *testing.T) {
	_, err := NewRekognitionDetector(nil, DetectorConfig{}).Detect(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrDetectorDisabled)

	_, err = NewRekognitionDetector(&fakeRekognition{}, DetectorConfig{}).Detect(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = NewRekognitionDetector(&fakeRekognition{err: errors.New("throttled")}, DetectorConfig{}).Detect(context.Background(), []byte("img"))
	require.Error(t, err)
}

func TestLoadRekognitionAPIWithoutRegion(t *testing.T) {
	api, err := LoadRekognitionAPI(context.Background(), AWSConfig{})
	require.NoError(t, err)
	assert.Nil(t, api)
}

func TestLoadRekognitionAPIWithoutCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_WEB_IDENTITY_TOKEN_FILE", "")
	t.Setenv("AWS_CONTAINER_CREDENTIALS_RELATIVE_URI", "")
	t.Setenv("AWS_CONTAINER_CREDENTIALS_FULL_URI", "")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	api, err := LoadRekognitionAPI(context.Background(), AWSConfig{Region: "us-east-1"})
	require.NoError(t, err)
	assert.Nil(t, api)

	_, err = NewRekognitionDetector(nil, DetectorConfig{}).Detect(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrDetectorDisabled)

	api, err = LoadRekognitionAPI(context.Background(), AWSConfig{Region: "us-east-1", AccessKeyID: "AKID", SecretAccessKey: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, api)
}
