package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8081"`

	// Semantic scoring. Optional: without an API key leads simply carry no
	// semantic score and ranking falls back to the opportunity score.
	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	RateLimitRPS   int    `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Discovery pipeline.
	MaxLeadsPerSession   int           `env:"MAX_LEADS_PER_SESSION" envDefault:"20"`
	DiversityEnabled     bool          `env:"DIVERSITY_ENABLED" envDefault:"true"`
	IngestTimeout        time.Duration `env:"INGEST_TIMEOUT" envDefault:"2m"`
	SemanticScoreTimeout time.Duration `env:"SEMANTIC_SCORE_TIMEOUT" envDefault:"30s"`
	PersistTimeout       time.Duration `env:"PERSIST_TIMEOUT" envDefault:"30s"`

	// Stuck-job sweep. A run older than StaleThreshold with no terminal state
	// is presumed crashed and forced to failed.
	StaleThreshold time.Duration `env:"STALE_THRESHOLD" envDefault:"30m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	// Scheduled auto-discovery for idle projects.
	AutoDiscoveryEnabled  bool          `env:"AUTO_DISCOVERY_ENABLED" envDefault:"false"`
	AutoDiscoveryInterval time.Duration `env:"AUTO_DISCOVERY_INTERVAL" envDefault:"30h"`
	WorkerPollInterval    time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"1m"`

	// Progress responses are cached briefly to keep polling cheap.
	ProgressCacheTTL time.Duration `env:"PROGRESS_CACHE_TTL" envDefault:"2s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
