package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

const (
	defaultMaxLabels     = 10
	defaultMinConfidence = 75.0
	defaultDetectTimeout = 30 * time.Second
	credentialsTimeout   = 5 * time.Second
)

var (
	// ErrDetectorDisabled 未配置视觉识别后端。
	ErrDetectorDisabled = errors.New("label detector not configured")
	// ErrNoImage 没有可识别的图片数据。
	ErrNoImage = errors.New("no image bytes")
)

// LabelDetector 识别图片中的物体/场景标签。
type LabelDetector interface {
	Detect(ctx context.Context, image []byte) (domain.LabelSet, error)
}

// RekognitionAPI 是 rekognition.Client 中用到的方法，便于测试替换。
type RekognitionAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// DetectorConfig 控制标签数量、置信度阈值和超时。
type DetectorConfig struct {
	MaxLabels     int
	MinConfidence float64
	Timeout       time.Duration
}

// RekognitionDetector 基于 AWS Rekognition 的标签识别。
type RekognitionDetector struct {
	api           RekognitionAPI
	maxLabels     int
	minConfidence float64
	timeout       time.Duration
}

// NewRekognitionDetector 创建识别器；api 为 nil 时识别器处于禁用状态。
func NewRekognitionDetector(api RekognitionAPI, cfg DetectorConfig) *RekognitionDetector {
	d := &RekognitionDetector{
		api:           api,
		maxLabels:     cfg.MaxLabels,
		minConfidence: cfg.MinConfidence,
		timeout:       cfg.Timeout,
	}
	if d.maxLabels <= 0 {
		d.maxLabels = defaultMaxLabels
	}
	if d.minConfidence <= 0 {
		d.minConfidence = defaultMinConfidence
	}
	if d.timeout <= 0 {
		d.timeout = defaultDetectTimeout
	}
	return d
}

// Detect 返回置信度高于阈值的标签，顺序沿用后端排序，最多 maxLabels 个。
func (d *RekognitionDetector) Detect(ctx context.Context, image []byte) (domain.LabelSet, error) {
	if d == nil || d.api == nil {
		return nil, ErrDetectorDisabled
	}
	if len(image) == 0 {
		return nil, ErrNoImage
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(int32(d.maxLabels)),
		MinConfidence: aws.Float32(float32(d.minConfidence)),
	})
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}
	labels := make(domain.LabelSet, 0, len(out.Labels))
	for _, l := range out.Labels {
		name := strings.TrimSpace(aws.ToString(l.Name))
		if name == "" || float64(aws.ToFloat32(l.Confidence)) <= d.minConfidence {
			continue
		}
		labels = append(labels, name)
		if len(labels) >= d.maxLabels {
			break
		}
	}
	return labels, nil
}

// AWSConfig 是构建 Rekognition 客户端所需的最小配置。
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// LoadRekognitionAPI 根据配置构建 Rekognition 客户端；未配置 region 或取不到凭证时返回 nil。
func LoadRekognitionAPI(ctx context.Context, cfg AWSConfig) (RekognitionAPI, error) {
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Credentials == nil {
		return nil, nil
	}
	retrieveCtx, cancel := context.WithTimeout(ctx, credentialsTimeout)
	defer cancel()
	if _, err := awsCfg.Credentials.Retrieve(retrieveCtx); err != nil {
		return nil, nil
	}
	return rekognition.NewFromConfig(awsCfg, func(o *rekognition.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
