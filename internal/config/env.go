package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	UploadDir   string
	OutputRoot  string
	MaxUploadMB int
	WebDir      string
	CORSOrigins []string

	AIAPIKey    string
	VisionModel string
	EmbedModel  string
	EmbedDim    int

	OCRLanguages []string
	RenderDPI    int

	DatabaseURL string
	SslCertPath string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	JWTSecret         string
	AdminPasswordHash string

	LogLevel  string
	LogFormat string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		OutputRoot:  getEnv("OUTPUT_ROOT", "output"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 16),
		WebDir:      getEnv("WEB_DIR", "./web"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8888"}),

		// No default key: classification stays disabled until one is supplied.
		AIAPIKey:    getEnv("GEMINI_API_KEY", ""),
		VisionModel: getEnv("VISION_MODEL", "gemini-1.5-flash"),
		EmbedModel:  getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:    getEnvInt("EMBED_DIM", 768),

		OCRLanguages: getEnvList("OCR_LANGUAGES", []string{"eng"}),
		RenderDPI:    getEnvInt("RENDER_DPI", 150),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", ""),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if cfg.MaxUploadMB <= 0 {
		log.Printf("WARN: MAX_UPLOAD_MB=%d is not positive, using 16", cfg.MaxUploadMB)
		cfg.MaxUploadMB = 16
	}

	return cfg
}

// MaxUploadBytes is the request body cap for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// StorageMirrorEnabled reports whether S3 credentials and a bucket are configured.
func (c *Config) StorageMirrorEnabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != "" && c.BucketName != ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
