// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/qfarm/internal/evolution"
	"github.com/aristath/qfarm/internal/quantum"
	"github.com/aristath/qfarm/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for the journal database and backups (always absolute)
	LogLevel      string
	Port          int
	DevMode       bool
	BiomesFile    string   // Empty means the embedded default catalog
	EnabledBiomes []string // Empty means every biome in the catalog
	Physics       PhysicsConfig
	Register      RegisterConfig
	Jobs          JobsConfig
	StreamPeriod  time.Duration
	Backup        BackupConfig
}

// PhysicsConfig holds evolution loop settings
type PhysicsConfig struct {
	TickInterval   time.Duration
	BaseDT         float64
	MaxBaseDT      float64
	MaxEffectiveDT float64
	TimeScale      float64
	MinTimeScale   float64
	MaxTimeScale   float64
	BatchSize      int
	TickBudget     time.Duration
}

// RegisterConfig bounds every biome register
type RegisterConfig struct {
	MaxQubits int
	Epsilon   float64
	MaxStepDT float64
	Seed      int64 // 0 seeds from the clock
}

// JobsConfig holds cron schedules (with seconds field)
type JobsConfig struct {
	AuditSchedule     string
	AuditTolerance    float64
	PruneSchedule     string
	JournalRetention  time.Duration
	BackupSchedule    string
	BackupRetention   int // archives kept in the bucket
	IntegritySchedule string
}

// BackupConfig holds Cloudflare R2 credentials
type BackupConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Enabled reports whether every R2 credential is present.
func (b BackupConfig) Enabled() bool {
	return b.AccountID != "" && b.AccessKeyID != "" && b.SecretAccessKey != "" && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QFARM_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	sched := evolution.DefaultConfig()
	reg := quantum.DefaultConfig()

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("GO_PORT", 8001),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		BiomesFile:    getEnv("BIOMES_FILE", ""),
		EnabledBiomes: utils.ParseNameList(getEnv("ENABLED_BIOMES", "")),
		Physics: PhysicsConfig{
			TickInterval:   getEnvAsDuration("PHYSICS_TICK", sched.TickInterval),
			BaseDT:         getEnvAsFloat("BASE_DT", sched.BaseDT),
			MaxBaseDT:      getEnvAsFloat("MAX_BASE_DT", sched.MaxBaseDT),
			MaxEffectiveDT: getEnvAsFloat("MAX_EFFECTIVE_DT", sched.MaxEffectiveDT),
			TimeScale:      getEnvAsFloat("TIME_SCALE", sched.TimeScale),
			MinTimeScale:   getEnvAsFloat("MIN_TIME_SCALE", sched.MinTimeScale),
			MaxTimeScale:   getEnvAsFloat("MAX_TIME_SCALE", sched.MaxTimeScale),
			BatchSize:      getEnvAsInt("BATCH_SIZE", sched.BatchSize),
			TickBudget:     getEnvAsDuration("TICK_BUDGET", sched.TickBudget),
		},
		Register: RegisterConfig{
			MaxQubits: getEnvAsInt("MAX_QUBITS", reg.MaxQubits),
			Epsilon:   getEnvAsFloat("EPSILON", reg.Epsilon),
			MaxStepDT: getEnvAsFloat("MAX_STEP_DT", reg.MaxStepDT),
			Seed:      int64(getEnvAsInt("RNG_SEED", 0)),
		},
		Jobs: JobsConfig{
			AuditSchedule:     getEnv("AUDIT_SCHEDULE", "0 * * * * *"),
			AuditTolerance:    getEnvAsFloat("AUDIT_TOLERANCE", 1e-8),
			PruneSchedule:     getEnv("PRUNE_SCHEDULE", "0 0 4 * * *"),
			JournalRetention:  getEnvAsDuration("JOURNAL_RETENTION", 7*24*time.Hour),
			BackupSchedule:    getEnv("BACKUP_SCHEDULE", "0 30 4 * * *"),
			BackupRetention:   getEnvAsInt("BACKUP_RETENTION", 14),
			IntegritySchedule: getEnv("INTEGRITY_SCHEDULE", "0 15 3 * * *"),
		},
		StreamPeriod: getEnvAsDuration("STREAM_INTERVAL", 250*time.Millisecond),
		Backup: BackupConfig{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("R2_BUCKET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EvolutionConfig converts the physics section for the scheduler.
func (c *Config) EvolutionConfig() evolution.Config {
	return evolution.Config{
		BaseDT:         c.Physics.BaseDT,
		MaxBaseDT:      c.Physics.MaxBaseDT,
		MaxEffectiveDT: c.Physics.MaxEffectiveDT,
		TimeScale:      c.Physics.TimeScale,
		MinTimeScale:   c.Physics.MinTimeScale,
		MaxTimeScale:   c.Physics.MaxTimeScale,
		BatchSize:      c.Physics.BatchSize,
		TickInterval:   c.Physics.TickInterval,
		TickBudget:     c.Physics.TickBudget,
	}
}

// QuantumConfig converts the register section for biome construction.
func (c *Config) QuantumConfig() quantum.Config {
	return quantum.Config{
		MaxQubits: c.Register.MaxQubits,
		Epsilon:   c.Register.Epsilon,
		MaxStepDT: c.Register.MaxStepDT,
	}
}

// BiomeEnabled reports whether name passes the ENABLED_BIOMES filter.
func (c *Config) BiomeEnabled(name string) bool {
	if len(c.EnabledBiomes) == 0 {
		return true
	}
	for _, n := range c.EnabledBiomes {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("GO_PORT out of range: %d", c.Port))
	}
	if err := c.EvolutionConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Register.MaxQubits < 1 || c.Register.MaxQubits > 10 {
		errs = append(errs, fmt.Errorf("MAX_QUBITS must be within [1, 10], got %d", c.Register.MaxQubits))
	}
	if c.Register.Epsilon <= 0 {
		errs = append(errs, errors.New("EPSILON must be positive"))
	}
	if c.Register.MaxStepDT <= 0 {
		errs = append(errs, errors.New("MAX_STEP_DT must be positive"))
	}
	if c.Jobs.AuditTolerance <= 0 {
		errs = append(errs, errors.New("AUDIT_TOLERANCE must be positive"))
	}
	if c.Jobs.JournalRetention <= 0 {
		errs = append(errs, errors.New("JOURNAL_RETENTION must be positive"))
	}
	if c.StreamPeriod <= 0 {
		errs = append(errs, errors.New("STREAM_INTERVAL must be positive"))
	}

	// R2 credentials are optional; backups are skipped without them

	return errors.Join(errs...)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
