package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database    *DatabaseConfig
	Service     *ServiceConfig
	Pipeline    *PipelineConfig
	Judge       *JudgeConfig
	ObjectStore *ObjectStoreConfig
}

type DatabaseConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"auditor"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type ServiceConfig struct {
	Address         string `envconfig:"AUDIT_PLANNER_ADDRESS" default:":3443"`
	MetricsAddress  string `envconfig:"AUDIT_PLANNER_METRICS_ADDRESS" default:":8081"`
	BaseUrl         string `envconfig:"AUDIT_PLANNER_BASE_URL" default:"https://localhost:3443"`
	LogLevel        string `envconfig:"AUDIT_PLANNER_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"AUDIT_PLANNER_MIGRATIONS_FOLDER" default:""`
	AllowedOrigins  []string `envconfig:"AUDIT_PLANNER_ALLOWED_ORIGINS" default:"*"`
}

// PipelineConfig carries every tunable of the dispatcher/worker/reporter
// pipeline. Nothing in the state machine logic is hardcoded.
type PipelineConfig struct {
	DispatcherPollInterval time.Duration `envconfig:"AUDIT_PLANNER_DISPATCHER_POLL_INTERVAL" default:"5s"`
	WorkerPollInterval     time.Duration `envconfig:"AUDIT_PLANNER_WORKER_POLL_INTERVAL" default:"2s"`
	ReporterPollInterval   time.Duration `envconfig:"AUDIT_PLANNER_REPORTER_POLL_INTERVAL" default:"5s"`
	ScanBatchLimit         int           `envconfig:"AUDIT_PLANNER_SCAN_BATCH_LIMIT" default:"10"`

	WorkerID          string        `envconfig:"AUDIT_PLANNER_WORKER_ID" default:""`
	WorkerConcurrency int           `envconfig:"AUDIT_PLANNER_WORKER_CONCURRENCY" default:"1"`
	ClaimLease        time.Duration `envconfig:"AUDIT_PLANNER_CLAIM_LEASE" default:"2m"`
	TaskTimeout       time.Duration `envconfig:"AUDIT_PLANNER_TASK_TIMEOUT" default:"5m"`

	MaxRetries     int           `envconfig:"AUDIT_PLANNER_MAX_RETRIES" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"AUDIT_PLANNER_RETRY_BASE_DELAY" default:"1s"`
	RetryMaxDelay  time.Duration `envconfig:"AUDIT_PLANNER_RETRY_MAX_DELAY" default:"30s"`

	ConfidenceThreshold float64 `envconfig:"AUDIT_PLANNER_REVIEW_CONFIDENCE_THRESHOLD" default:"0.70"`
	FailOnError         bool    `envconfig:"AUDIT_PLANNER_FAIL_ON_ERROR" default:"false"`

	MaxEvidenceChars int `envconfig:"AUDIT_PLANNER_MAX_EVIDENCE_CHARS" default:"4000"`
	MaxContextChars  int `envconfig:"AUDIT_PLANNER_MAX_CONTEXT_CHARS" default:"12000"`
}

type JudgeConfig struct {
	Type        string `envconfig:"AUDIT_PLANNER_JUDGE" default:"heuristic"`
	OpenAIKey   string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
}

type ObjectStoreConfig struct {
	Endpoint     string `envconfig:"AUDIT_PLANNER_S3_ENDPOINT" default:""`
	AccessKey    string `envconfig:"AUDIT_PLANNER_S3_ACCESS_KEY" default:""`
	SecretKey    string `envconfig:"AUDIT_PLANNER_S3_SECRET_KEY" default:""`
	UseSSL       bool   `envconfig:"AUDIT_PLANNER_S3_USE_SSL" default:"true"`
	Bucket       string `envconfig:"AUDIT_PLANNER_S3_BUCKET" default:"audit-artifacts"`
	ReportBucket string `envconfig:"AUDIT_PLANNER_S3_REPORT_BUCKET" default:"audit-reports"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault builds a config from defaults only, ignoring the environment.
// Used by tests.
func NewDefault() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Type:     "pgsql",
			Hostname: "localhost",
			Port:     "5432",
			Name:     "auditor",
			User:     "admin",
			Password: "adminpass",
		},
		Service: &ServiceConfig{
			Address:        ":3443",
			MetricsAddress: ":8081",
			LogLevel:       "info",
			AllowedOrigins: []string{"*"},
		},
		Pipeline: &PipelineConfig{
			DispatcherPollInterval: 5 * time.Second,
			WorkerPollInterval:     2 * time.Second,
			ReporterPollInterval:   5 * time.Second,
			ScanBatchLimit:         10,
			WorkerConcurrency:      1,
			ClaimLease:             2 * time.Minute,
			TaskTimeout:            5 * time.Minute,
			MaxRetries:             3,
			RetryBaseDelay:         time.Second,
			RetryMaxDelay:          30 * time.Second,
			ConfidenceThreshold:    0.70,
			MaxEvidenceChars:       4000,
			MaxContextChars:        12000,
		},
		Judge:       &JudgeConfig{Type: "heuristic", OpenAIModel: "gpt-4o-mini"},
		ObjectStore: &ObjectStoreConfig{UseSSL: true, Bucket: "audit-artifacts", ReportBucket: "audit-reports"},
	}
}
