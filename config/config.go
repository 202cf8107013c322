package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	LocalStore LocalStoreConfig
	JWT        JWTConfig
	OTP        OTPConfig
	Mail       MailConfig
	Push       PushConfig
	Firebase   FirebaseConfig
	Cloudinary CloudinaryConfig
	Device     DeviceConfig
	RateLimit  RateLimitConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogFile      string
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// LocalStoreConfig points at the SQLite file holding device notification logs.
type LocalStoreConfig struct {
	Path string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// StartTLS forces STARTTLS; when false the dialer uses it opportunistically.
	StartTLS bool
}

// Enabled reports whether an SMTP host is configured.
func (m MailConfig) Enabled() bool { return m.Host != "" }

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the contact (mailto: or https:) sent in the VAPID JWT.
	Subscriber string
	TTL        int
	// RegistryURL, when set, makes device managers forward subscriptions to a
	// remote registry over HTTP instead of the in-process one.
	RegistryURL string
}

func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

func (f FirebaseConfig) Enabled() bool { return f.CredentialsFile != "" }

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type DeviceConfig struct {
	RPCTimeout        time.Duration
	ReconcileInterval time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// AdminConfig seeds the first ADMIN account on an empty database.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8099")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("DATABASE_DSN", "messmate:messmate@tcp(localhost:3306)/messmate?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 100)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", time.Hour)

	v.SetDefault("LOCAL_STORE_PATH", "data/notifications.db")

	v.SetDefault("JWT_ACCESS_SECRET", "change-me-in-production")
	v.SetDefault("JWT_REFRESH_SECRET", "change-me-refresh")
	v.SetDefault("JWT_ACCESS_EXPIRY", 15*time.Minute)
	v.SetDefault("JWT_REFRESH_EXPIRY", 168*time.Hour)
	v.SetDefault("JWT_ISSUER", "messmate")

	v.SetDefault("OTP_TTL", 10*time.Minute)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "MessMate <no-reply@messmate.local>")
	v.SetDefault("SMTP_STARTTLS", true)

	v.SetDefault("VAPID_SUBSCRIBER", "mailto:admin@messmate.local")
	v.SetDefault("VAPID_TTL", 86400)

	v.SetDefault("CLOUDINARY_FOLDER", "messmate/notifications")

	v.SetDefault("DEVICE_RPC_TIMEOUT", 30*time.Second)
	v.SetDefault("DEVICE_RECONCILE_INTERVAL", 15*time.Minute)

	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)

	v.SetDefault("ADMIN_EMAIL", "admin@messmate.local")
	v.SetDefault("ADMIN_NAME", "Administrator")
}

// Load reads the configuration from the process environment.
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from v, filling in defaults for unset keys.
func FromViper(v *viper.Viper) *Config {
	setDefaults(v)

	vapidPublic := v.GetString("VAPID_PUBLIC_KEY")
	if vapidPublic == "" {
		vapidPublic = v.GetString("NEXT_PUBLIC_VAPID_PUBLIC_KEY")
	}

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			Env:          v.GetString("APP_ENV"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			LogFile:      v.GetString("LOG_FILE"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("DATABASE_DSN"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		LocalStore: LocalStoreConfig{
			Path: v.GetString("LOCAL_STORE_PATH"),
		},
		JWT: JWTConfig{
			AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
			RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
			AccessExpiry:  v.GetDuration("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: v.GetDuration("JWT_REFRESH_EXPIRY"),
			Issuer:        v.GetString("JWT_ISSUER"),
		},
		OTP: OTPConfig{
			TTL:         v.GetDuration("OTP_TTL"),
			MaxAttempts: v.GetInt("OTP_MAX_ATTEMPTS"),
		},
		Mail: MailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			StartTLS: v.GetBool("SMTP_STARTTLS"),
		},
		Push: PushConfig{
			VAPIDPublicKey:  vapidPublic,
			VAPIDPrivateKey: v.GetString("VAPID_PRIVATE_KEY"),
			Subscriber:      v.GetString("VAPID_SUBSCRIBER"),
			TTL:             v.GetInt("VAPID_TTL"),
			RegistryURL:     v.GetString("PUSH_REGISTRY_URL"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
			CredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    v.GetString("CLOUDINARY_API_KEY"),
			APISecret: v.GetString("CLOUDINARY_API_SECRET"),
			Folder:    v.GetString("CLOUDINARY_FOLDER"),
		},
		Device: DeviceConfig{
			RPCTimeout:        v.GetDuration("DEVICE_RPC_TIMEOUT"),
			ReconcileInterval: v.GetDuration("DEVICE_RECONCILE_INTERVAL"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
			Name:     v.GetString("ADMIN_NAME"),
		},
	}
}
