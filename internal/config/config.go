package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Migrations  string `envconfig:"MIGRATIONS_SOURCE" default:"file://migrations"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile   string `envconfig:"LOG_FILE" default:"chat_log.log"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	RecordDir string `envconfig:"PATIENT_DATA_DIR" default:"data"`
	IndexPath string `envconfig:"REFERENCE_INDEX_PATH" default:"db_index/reference.json"`
	TopK      int    `envconfig:"REFERENCE_TOP_K" default:"4"`

	OllamaURL      string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"all-mpnet-base-v2"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	EmbeddingTTL  time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"24h"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-pro-latest"`

	TavilyAPIKey  string `envconfig:"TAVILY_API_KEY"`
	WebMaxResults int    `envconfig:"WEB_SEARCH_MAX_RESULTS" default:"3"`

	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	CareTeamChatID int64  `envconfig:"CARE_TEAM_CHAT_ID" default:"0"`
	ReportFontPath string `envconfig:"REPORT_FONT_PATH"`
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
