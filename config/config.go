package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "meru"

type Config struct {
	Env     string `envconfig:"env" default:"development"`
	Port    string `envconfig:"port" default:"8080"`
	BaseURL string `envconfig:"base_url" default:"http://localhost:3000"`

	JWTSecret string        `envconfig:"jwt_secret" required:"true"`
	TokenTTL  time.Duration `envconfig:"token_ttl" default:"168h"`

	StoreDriver   string        `envconfig:"store_driver" default:"mongo"`
	MongoURI      string        `envconfig:"mongo_uri" default:"mongodb://localhost:27017"`
	MongoDatabase string        `envconfig:"mongo_database" default:"meruglobalconnect"`
	MysqlDSN      string        `envconfig:"mysql_dsn" default:"root:root@tcp(localhost:3306)/meruglobalconnect?charset=utf8mb4&parseTime=True&loc=UTC"`
	DBTimeout     time.Duration `envconfig:"db_timeout" default:"10s"`

	UploadBackend      string `envconfig:"upload_backend" default:"local"`
	UploadDir          string `envconfig:"upload_dir" default:"./uploads"`
	S3Bucket           string `envconfig:"s3_bucket"`
	AWSRegion          string `envconfig:"aws_region" default:"us-east-1"`
	AWSAccessKeyID     string `envconfig:"aws_access_key_id"`
	AWSSecretAccessKey string `envconfig:"aws_secret_access_key"`

	MailgunDomain string `envconfig:"mailgun_domain"`
	MailgunAPIKey string `envconfig:"mailgun_api_key"`
	EmailFrom     string `envconfig:"email_from" default:"Meru Global Connect <no-reply@meruglobalconnect.com>"`

	StripeSecretKey      string        `envconfig:"stripe_secret_key"`
	RegistrationFeeCents int64         `envconfig:"registration_fee_cents" default:"1000"`
	Currency             string        `envconfig:"registration_currency" default:"usd"`
	ProviderTimeout      time.Duration `envconfig:"provider_timeout" default:"15s"`

	RedisURL string `envconfig:"redis_url"`

	CORSAllowedOrigins []string `envconfig:"cors_allowed_origins" default:"http://localhost:5173,http://localhost:3000"`
	RateLimitPerSecond float64  `envconfig:"rate_limit_rps" default:"10"`
	RateLimitBurst     int      `envconfig:"rate_limit_burst" default:"20"`
}

// Load reads the process environment, falling back to ./.env outside release mode.
func Load() (*Config, error) {
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	if err := envconfig.Process(envPrefix, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
