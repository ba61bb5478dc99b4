package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Portal
	PortalBaseURL       string
	PortalToken         string
	PortalTimeout       time.Duration
	PortalRetryAttempts int

	// Sources: portal | bolt | sql
	Source      string
	BoltPath    string
	DatabaseURL string

	// Engine
	CourseWorkers      int
	SubmissionWorkers  int
	AssignmentPageSize int
	CacheTTL           time.Duration
	Strict             bool

	// API
	HTTPAddr string

	// Change feed
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// SFTP
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPKnownHosts            string
	SFTPInsecureIgnoreHostKey bool

	LogLevel string
	Debug    bool
}

// Load reads the environment, after loading ENV_FILE (default .env) when it exists.
// Variables already set in the environment win over the file.
func Load() Config {
	loadDotEnv(getenv("ENV_FILE", ".env"))
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("PORTAL_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("PORTAL_TOKEN", "")
	v.SetDefault("PORTAL_TIMEOUT", 15*time.Second)
	v.SetDefault("PORTAL_RETRY_ATTEMPTS", 4)

	v.SetDefault("SOURCE", "portal")
	v.SetDefault("BOLT_PATH", "data/portal.db")
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("COURSE_WORKERS", 4)
	v.SetDefault("SUBMISSION_WORKERS", 8)
	v.SetDefault("ASSIGNMENT_PAGE_SIZE", 50)
	v.SetDefault("CACHE_TTL", 30*time.Second)
	v.SetDefault("STRICT", false)

	v.SetDefault("HTTP_ADDR", ":8090")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "portal.changes")
	v.SetDefault("KAFKA_GROUP_ID", "assignment-status")

	v.SetDefault("SFTP_HOST", "")
	v.SetDefault("SFTP_PORT", 22)
	v.SetDefault("SFTP_USER", "")
	v.SetDefault("SFTP_PASS", "")
	v.SetDefault("SFTP_DIR", "/")
	v.SetDefault("SFTP_KNOWN_HOSTS", "")
	v.SetDefault("SFTP_INSECURE_IGNORE_HOST_KEY", false)

	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DEBUG", false)

	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) Config {
	return Config{
		PortalBaseURL:       v.GetString("PORTAL_BASE_URL"),
		PortalToken:         v.GetString("PORTAL_TOKEN"),
		PortalTimeout:       v.GetDuration("PORTAL_TIMEOUT"),
		PortalRetryAttempts: v.GetInt("PORTAL_RETRY_ATTEMPTS"),

		Source:      strings.ToLower(strings.TrimSpace(v.GetString("SOURCE"))),
		BoltPath:    v.GetString("BOLT_PATH"),
		DatabaseURL: v.GetString("DATABASE_URL"),

		CourseWorkers:      v.GetInt("COURSE_WORKERS"),
		SubmissionWorkers:  v.GetInt("SUBMISSION_WORKERS"),
		AssignmentPageSize: v.GetInt("ASSIGNMENT_PAGE_SIZE"),
		CacheTTL:           v.GetDuration("CACHE_TTL"),
		Strict:             v.GetBool("STRICT"),

		HTTPAddr: v.GetString("HTTP_ADDR"),

		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),
		KafkaGroupID: v.GetString("KAFKA_GROUP_ID"),

		SFTPHost:                  v.GetString("SFTP_HOST"),
		SFTPPort:                  v.GetInt("SFTP_PORT"),
		SFTPUser:                  v.GetString("SFTP_USER"),
		SFTPPass:                  v.GetString("SFTP_PASS"),
		SFTPDir:                   v.GetString("SFTP_DIR"),
		SFTPKnownHosts:            v.GetString("SFTP_KNOWN_HOSTS"),
		SFTPInsecureIgnoreHostKey: v.GetBool("SFTP_INSECURE_IGNORE_HOST_KEY"),

		LogLevel: v.GetString("LOG_LEVEL"),
		Debug:    v.GetBool("DEBUG"),
	}
}

// load .env if it exists (ignore if it does not)
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			log.Fatalf("config.godotenv(%s): %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", path, err)
	}
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// splitList parses a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
