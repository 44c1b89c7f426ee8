package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record resync modes.
const (
	ResyncMerge   = "merge"
	ResyncReplace = "replace"
)

// AppConfig holds environment driven configuration values.
// Secrets never have defaults inside code and must come from the config file or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string
	AutoMigrate bool
	// Redis for caching and the token blacklist
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheEnabled    bool
	CacheTTLSeconds int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Daily records
	CalendarWindowDays      int
	CalendarMaxDays         int
	ResyncMode              string
	RolloverEnabled         bool
	RolloverIntervalMinutes int
}

var cfg AppConfig
var loaded bool

// configFiles are tried in order; the first one present wins.
var configFiles = []string{
	filepath.Join("config", "config.json"),
	filepath.Join("config", "config.yaml"),
	filepath.Join("config", "config.yml"),
}

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config file -> defaults -> environment variable overrides
	for _, path := range configFiles {
		found, err := loadConfigFile(path, &cfg)
		if err != nil {
			log.Fatalf("invalid config file %s: %v", path, err)
		}
		if found {
			break
		}
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadConfigFile reads a JSON or YAML file into out. A missing file is not an error.
func loadConfigFile(path string, out *AppConfig) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, nil
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return true, err
	}
	applyRaw(raw, out)
	return true, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case int64:
			return int(t)
		case json.Number:
			i, _ := t.Int64()
			return int(i)
		case string:
			i, _ := strconv.Atoi(t)
			return i
		}
	}
	return 0
}

func getBool(m map[string]any, key string) (bool, bool) {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b, true
		}
	}
	return false, false
}

func getStringSlice(m map[string]any, key string) []string {
	if v, ok := m[key]; ok {
		if arr, ok := v.([]any); ok {
			res := make([]string, 0, len(arr))
			for _, it := range arr {
				if s, ok := it.(string); ok {
					res = append(res, s)
				}
			}
			return res
		}
	}
	return nil
}

func section(raw map[string]any, name string) map[string]any {
	if s, ok := raw[name].(map[string]any); ok {
		return s
	}
	return nil
}

// applyRaw copies grouped sections first, then flat keys for anything still unset.
func applyRaw(raw map[string]any, out *AppConfig) {
	groups := []map[string]any{
		section(raw, "app"),
		section(raw, "gin"),
		section(raw, "database"),
		section(raw, "redis"),
		section(raw, "log"),
		section(raw, "records"),
		raw,
	}
	for _, m := range groups {
		if m == nil {
			continue
		}
		setString(&out.AppPort, m, "AppPort")
		setString(&out.JWTSecret, m, "JWTSecret")
		setInt(&out.TokenTTLHours, m, "TokenTTLHours")
		setInt(&out.RateLimitPerMinute, m, "RateLimitPerMinute")
		if list := getStringSlice(m, "AllowedOrigins"); len(list) > 0 && len(out.AllowedOrigins) == 0 {
			out.AllowedOrigins = list
		}

		setString(&out.GinMode, m, "GinMode")
		setString(&out.GinMode, m, "Mode")
		setString(&out.GinPath, m, "GinPath")

		setString(&out.DBDriver, m, "DBDriver")
		setString(&out.DatabaseURI, m, "DatabaseURI")
		setString(&out.DBHost, m, "DBHost")
		setString(&out.DBPort, m, "DBPort")
		setString(&out.DBUser, m, "DBUser")
		setString(&out.DBPassword, m, "DBPassword")
		setString(&out.DBName, m, "DBName")
		setString(&out.SQLitePath, m, "SQLitePath")
		setBool(&out.AutoMigrate, m, "AutoMigrate")

		setString(&out.RedisHost, m, "RedisHost")
		setInt(&out.RedisPort, m, "RedisPort")
		setInt(&out.RedisDB, m, "RedisDB")
		setString(&out.RedisPassword, m, "RedisPassword")
		setBool(&out.CacheEnabled, m, "CacheEnabled")
		setInt(&out.CacheTTLSeconds, m, "CacheTTLSeconds")

		setString(&out.LogLevel, m, "LogLevel")
		setString(&out.LogLevel, m, "Level")
		setString(&out.LogPath, m, "LogPath")
		setString(&out.LogPath, m, "Path")
		setInt(&out.LogMaxSizeMB, m, "LogMaxSizeMB")
		setInt(&out.LogMaxSizeMB, m, "MaxSizeMB")
		setInt(&out.LogMaxBackups, m, "LogMaxBackups")
		setInt(&out.LogMaxBackups, m, "MaxBackups")
		setInt(&out.LogMaxAgeDays, m, "LogMaxAgeDays")
		setInt(&out.LogMaxAgeDays, m, "MaxAgeDays")
		setBool(&out.LogCompress, m, "LogCompress")
		setBool(&out.LogCompress, m, "Compress")

		setInt(&out.CalendarWindowDays, m, "CalendarWindowDays")
		setInt(&out.CalendarMaxDays, m, "CalendarMaxDays")
		setString(&out.ResyncMode, m, "ResyncMode")
		setBool(&out.RolloverEnabled, m, "RolloverEnabled")
		setInt(&out.RolloverIntervalMinutes, m, "RolloverIntervalMinutes")
	}
}

// setString only fills empty destinations so grouped keys beat flat ones.
func setString(dst *string, m map[string]any, key string) {
	if *dst != "" {
		return
	}
	if v := getString(m, key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, m map[string]any, key string) {
	if *dst != 0 {
		return
	}
	if v := getInt(m, key); v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, m map[string]any, key string) {
	if *dst {
		return
	}
	if v, ok := getBool(m, key); ok {
		*dst = v
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 30 * 24
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "brighterbites"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/brighterbites.db"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 300
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.CalendarWindowDays == 0 {
		c.CalendarWindowDays = 30
	}
	if c.CalendarMaxDays == 0 {
		c.CalendarMaxDays = 366
	}
	if c.ResyncMode != ResyncReplace {
		c.ResyncMode = ResyncMerge
	}
	if c.RolloverIntervalMinutes == 0 {
		c.RolloverIntervalMinutes = 10
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	strs := map[string]*string{
		"APP_PORT":       &c.AppPort,
		"JWT_SECRET":     &c.JWTSecret,
		"GIN_MODE":       &c.GinMode,
		"GIN_PATH":       &c.GinPath,
		"DB_DRIVER":      &c.DBDriver,
		"DATABASE_URI":   &c.DatabaseURI,
		"DB_HOST":        &c.DBHost,
		"DB_PORT":        &c.DBPort,
		"DB_USER":        &c.DBUser,
		"DB_PASSWORD":    &c.DBPassword,
		"DB_NAME":        &c.DBName,
		"SQLITE_PATH":    &c.SQLitePath,
		"REDIS_HOST":     &c.RedisHost,
		"REDIS_PASSWORD": &c.RedisPassword,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_PATH":       &c.LogPath,
		"RESYNC_MODE":    &c.ResyncMode,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKEN_TTL_HOURS":           &c.TokenTTLHours,
		"RATE_LIMIT_PER_MINUTE":     &c.RateLimitPerMinute,
		"REDIS_PORT":                &c.RedisPort,
		"REDIS_DB":                  &c.RedisDB,
		"CACHE_TTL_SECONDS":         &c.CacheTTLSeconds,
		"LOG_MAX_SIZE_MB":           &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":           &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":          &c.LogMaxAgeDays,
		"CALENDAR_WINDOW_DAYS":      &c.CalendarWindowDays,
		"CALENDAR_MAX_DAYS":         &c.CalendarMaxDays,
		"ROLLOVER_INTERVAL_MINUTES": &c.RolloverIntervalMinutes,
	}
	for key, dst := range ints {
		if v := getEnv(key, ""); v != "" {
			*dst = mustParseInt(v)
		}
	}

	bools := map[string]*bool{
		"AUTO_MIGRATE":     &c.AutoMigrate,
		"CACHE_ENABLED":    &c.CacheEnabled,
		"LOG_COMPRESS":     &c.LogCompress,
		"ROLLOVER_ENABLED": &c.RolloverEnabled,
	}
	for key, dst := range bools {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true"
		}
	}

	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if c.ResyncMode != ResyncReplace {
		c.ResyncMode = ResyncMerge
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
