package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/CurlyBracesAI/RosieImageSync/internal/mirror"
)

type HTTP struct {
	Listen string `yaml:"listen"`
}

type Log struct {
	Level string `yaml:"level"`
}

type CRM struct {
	BaseURL       string `yaml:"base_url"`
	APIToken      string `yaml:"api_token"`
	TimeoutSecond int    `yaml:"timeout_second"`
	PageLimit     int    `yaml:"page_limit"`
}

type OpenAI struct {
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	TimeoutSecond int     `yaml:"timeout_second"`
}

type Match struct {
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	TimeoutSecond int     `yaml:"timeout_second"`
}

type AWS struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
}

type Enrich struct {
	FetchTimeoutSecond  int     `yaml:"fetch_timeout_second"`
	MaxImageBytes       int64   `yaml:"max_image_bytes"`
	MaxLabels           int     `yaml:"max_labels"`
	MinConfidence       float64 `yaml:"min_confidence"`
	DetectTimeoutSecond int     `yaml:"detect_timeout_second"`
	Framing             string  `yaml:"framing"`
}

type Wix struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	SiteID         string `yaml:"site_id"`
	CollectionID   string `yaml:"collection_id"`
	CollectionName string `yaml:"collection_name"`
	TimeoutSecond  int    `yaml:"timeout_second"`
}

type Neo4j struct {
	URI                  string `yaml:"uri"`
	Username             string `yaml:"username"`
	Password             string `yaml:"password"`
	Database             string `yaml:"database"`
	Label                string `yaml:"label"`
	MaxConnectionPool    int    `yaml:"max_connections"`
	ConnectTimeoutSecond int    `yaml:"connect_timeout_second"`
}

type Mirror struct {
	Store         string                `yaml:"store"`
	BatchSize     int                   `yaml:"batch_size"`
	Cron          string                `yaml:"cron"`
	Neighborhoods []string              `yaml:"neighborhoods"`
	ExactMatch    bool                  `yaml:"exact_match"`
	Placeholders  []string              `yaml:"placeholders"`
	Mappings      []mirror.FieldMapping `yaml:"mappings"`
}

const (
	StoreWix   = "wix"
	StoreNeo4j = "neo4j"
)

// Config 是服务的完整配置。
type Config struct {
	HTTP   HTTP   `yaml:"http"`
	Log    Log    `yaml:"log"`
	CRM    CRM    `yaml:"crm"`
	OpenAI OpenAI `yaml:"openai"`
	Match  Match  `yaml:"match"`
	AWS    AWS    `yaml:"aws"`
	Enrich Enrich `yaml:"enrich"`
	Wix    Wix    `yaml:"wix"`
	Neo4j  Neo4j  `yaml:"neo4j"`
	Mirror Mirror `yaml:"mirror"`
}

// LoadConfig 读取 .env 和配置文件，环境变量覆盖文件中的凭证；文件不存在时使用默认值。
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("读取配置失败: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("解析配置失败: %w", err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖配置。
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.CRM.APIToken, "PIPEDRIVE_API_TOKEN")
	set(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&c.AWS.Region, "AWS_REGION")
	set(&c.AWS.AccessKeyID, "AWS_ACCESS_KEY_ID")
	set(&c.AWS.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	set(&c.Wix.APIKey, "WIX_ACCESS_KEY_ID")
	set(&c.Wix.SiteID, "WIX_SITE_ID")
	set(&c.Wix.CollectionID, "WIX_COLLECTION_ID")
	set(&c.Neo4j.URI, "NEO4J_URI")
	set(&c.Neo4j.Username, "NEO4J_USERNAME")
	set(&c.Neo4j.Password, "NEO4J_PASSWORD")
	set(&c.HTTP.Listen, "HTTP_LISTEN")
	set(&c.Log.Level, "LOG_LEVEL")
	if c.HTTP.Listen == "" {
		if port := strings.TrimSpace(getenv("PORT")); port != "" {
			c.HTTP.Listen = ":" + port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8080"
	}
	if c.Mirror.Store == "" {
		c.Mirror.Store = StoreWix
	}
	if c.Mirror.BatchSize <= 0 {
		c.Mirror.BatchSize = 100
	}
	if c.Neo4j.Label == "" {
		c.Neo4j.Label = "Listing"
	}
}

// Validate 检查取值合法性，凭证缺失不算错误。
func (c Config) Validate() error {
	switch c.Mirror.Store {
	case StoreWix, StoreNeo4j:
	default:
		return fmt.Errorf("mirror.store 只支持 %s 或 %s: %q", StoreWix, StoreNeo4j, c.Mirror.Store)
	}
	if c.Enrich.MinConfidence < 0 || c.Enrich.MinConfidence > 100 {
		return fmt.Errorf("enrich.min_confidence 必须在 0-100 之间")
	}
	return nil
}

// Seconds 把配置中的秒数转换为 Duration，0 表示使用组件默认值。
func Seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
