package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DevJWTSecret is the JWT secret of local environments. It is public.
const DevJWTSecret = "super-secret-jwt-token-with-at-least-32-characters-long"

type (
	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		Server   ServerConfig
		Database DatabaseConfig
		Auth     AuthConfig
		Storage  StorageConfig
		Redis    RedisConfig
		Audit    AuditConfig
		Browse   BrowseConfig
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine     string // postgres | memory
		Host       string
		Port       string
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	AuthConfig struct {
		Provider            string // gotrue | dummy
		URL                 string
		AnonKey             string
		JWTSecret           string
		JWTExpirationDelta  time.Duration
		RecoveryResendDelay time.Duration
	}

	StorageConfig struct {
		Provider        string // s3 | memory
		Endpoint        string
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		PublicBaseURL   string
		NotesBucket     string
		AvatarsBucket   string
		MaxNoteSize     int64
		MaxAvatarSize   int64
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	AuditConfig struct {
		Capacity int
		Key      string
	}

	BrowseConfig struct {
		QuietPeriod     time.Duration
		NotificationTTL time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "UniNotes")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "UniNotes <noreply@localhost>")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "uninotes")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("auth.provider", "dummy")
	v.SetDefault("auth.jwtSecret", DevJWTSecret)
	v.SetDefault("auth.jwtExpirationDelta", time.Hour)
	v.SetDefault("auth.recoveryResendDelay", 60*time.Second)

	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.region", "ap-southeast-1")
	v.SetDefault("storage.notesBucket", "notes")
	v.SetDefault("storage.avatarsBucket", "avatars")
	v.SetDefault("storage.maxNoteSize", 10<<20)
	v.SetDefault("storage.maxAvatarSize", 2<<20)

	v.SetDefault("redis.db", 0)

	v.SetDefault("audit.capacity", 500)
	v.SetDefault("audit.key", "uninotes:audit")

	v.SetDefault("browse.quietPeriod", 300*time.Millisecond)
	v.SetDefault("browse.notificationTTL", 4000*time.Millisecond)
}

// NewConfig loads the configuration for the environment set in $ENV (DEV by default).
// Values are read from `config/.env.<env>` when present, then from <ENV>_ prefixed environment variables.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()
	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("database.engine"),
			Host:       v.GetString("database.host"),
			Port:       v.GetString("database.port"),
			Name:       v.GetString("database.name"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Auth: AuthConfig{
			Provider:            v.GetString("auth.provider"),
			URL:                 v.GetString("auth.url"),
			AnonKey:             v.GetString("auth.anonKey"),
			JWTSecret:           v.GetString("auth.jwtSecret"),
			JWTExpirationDelta:  v.GetDuration("auth.jwtExpirationDelta"),
			RecoveryResendDelay: v.GetDuration("auth.recoveryResendDelay"),
		},
		Storage: StorageConfig{
			Provider:        v.GetString("storage.provider"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			AccessKeyID:     v.GetString("storage.accessKeyID"),
			SecretAccessKey: v.GetString("storage.secretAccessKey"),
			PublicBaseURL:   v.GetString("storage.publicBaseURL"),
			NotesBucket:     v.GetString("storage.notesBucket"),
			AvatarsBucket:   v.GetString("storage.avatarsBucket"),
			MaxNoteSize:     v.GetInt64("storage.maxNoteSize"),
			MaxAvatarSize:   v.GetInt64("storage.maxAvatarSize"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Audit: AuditConfig{
			Capacity: v.GetInt("audit.capacity"),
			Key:      v.GetString("audit.key"),
		},
		Browse: BrowseConfig{
			QuietPeriod:     v.GetDuration("browse.quietPeriod"),
			NotificationTTL: v.GetDuration("browse.notificationTTL"),
		},
	}
	if err = conf.Check(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

// Check rejects the local development auth settings outside DEV and TEST,
// where they would let anyone forge access tokens.
func (c *Config) Check() error {
	if c.Env == "DEV" || c.Env == "TEST" {
		return nil
	}
	if c.Auth.Provider != "gotrue" {
		return errors.Errorf("auth.provider must be gotrue in %s (got %q)", c.Env, c.Auth.Provider)
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevJWTSecret {
		return errors.Errorf("auth.jwtSecret must be set in %s", c.Env)
	}
	return nil
}

// String hides secrets.
func (c *Config) String() string {
	return fmt.Sprintf("env=%s build=%s debug=%t server=%s db=%s/%s auth=%s", c.Env, c.Build, c.Debug,
		c.Server.Host, c.Database.Address(), c.Database.Name, c.Auth.Provider)
}
