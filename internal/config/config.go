package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	StagesFile    string
	StopAreasFile string
	PathsFile     string

	DatabaseURL  string // empty disables database persistence
	DatabaseName string

	NATSURL           string // empty disables publishing
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	MetricsAddr string
	HTTPAddr    string

	TransitBaseURL  string
	TransitTimeout  time.Duration
	TransitCacheTTL time.Duration

	WalkingSpeed      float64 // meters per hour
	DistanceTolerance int     // meters
	RankerConcurrency int
	StopAreaRadius    int // meters

	Location *time.Location
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		StagesFile:    getenvDefault("STAGES_FILE", "data/stages.json"),
		StopAreasFile: getenvDefault("STOPAREAS_FILE", "data/stopareas.json"),
		PathsFile:     getenvDefault("PATHS_FILE", "data/paths.json"),
	}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars when PGDATABASE is set
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn
	// Database name override applied on top of DATABASE_URL (e.g. per-season catalogues)
	cfg.DatabaseName = os.Getenv("TRAILS_DATABASE")

	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "itineraries")

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")

	cfg.TransitBaseURL = os.Getenv("TRANSIT_BASE_URL")

	var err error
	if cfg.TransitTimeout, err = seconds("TRANSIT_TIMEOUT_SEC", 30, false); err != nil {
		return nil, err
	}
	// Zero disables the response cache
	if cfg.TransitCacheTTL, err = seconds("TRANSIT_CACHE_TTL_SEC", 300, true); err != nil {
		return nil, err
	}

	if v := os.Getenv("WALKING_SPEED_MPH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid WALKING_SPEED_MPH: %q", v)
		}
		cfg.WalkingSpeed = f
	} else {
		cfg.WalkingSpeed = 4000
	}

	if cfg.DistanceTolerance, err = intVar("DISTANCE_TOLERANCE_M", 1000, 0); err != nil {
		return nil, err
	}
	if cfg.RankerConcurrency, err = intVar("RANKER_CONCURRENCY", 8, 1); err != nil {
		return nil, err
	}
	if cfg.StopAreaRadius, err = intVar("STOPAREA_RADIUS_M", 5000, 1); err != nil {
		return nil, err
	}

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func intVar(k string, def, min int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func seconds(k string, def int, allowZero bool) (time.Duration, error) {
	min := 1
	if allowZero {
		min = 0
	}
	sec, err := intVar(k, def, min)
	if err != nil {
		return 0, err
	}
	return time.Duration(sec) * time.Second, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
