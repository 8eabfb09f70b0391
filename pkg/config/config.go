package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Inventory InventoryConfig
	Dashboard DashboardConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string

	MaxConns           int32
	MinConns           int32
	StatementTimeoutMS int // statement_timeout de la sesión
	LockTimeoutMS      int // lock_timeout: evita esperas indefinidas en SELECT ... FOR UPDATE
	TxTimeoutSeconds   int // tope de duración de una transacción del ledger
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// TxTimeout duración máxima de una transacción.
func (c DBConfig) TxTimeout() time.Duration {
	return time.Duration(c.TxTimeoutSeconds) * time.Second
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string

	// Admin inicial creado al arrancar si su email no existe. Vacío = sin bootstrap.
	AdminEmail    string
	AdminPassword string
}

// BootstrapAdmin indica si hay admin inicial configurado.
func (c JWTConfig) BootstrapAdmin() bool { return c.AdminEmail != "" }

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig conexión a Redis. Address vacío = sin caché ni lock distribuido.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// Enabled indica si hay Redis configurado.
func (c RedisConfig) Enabled() bool { return c.Address != "" }

// InventoryConfig parámetros del ledger de inventario.
type InventoryConfig struct {
	DefaultReorderLevel int
	MovementsMaxLimit   int
	AuditLockTTLSeconds int
}

// AuditLockTTL tiempo de vida del lock de auditoría.
func (c InventoryConfig) AuditLockTTL() time.Duration {
	return time.Duration(c.AuditLockTTLSeconds) * time.Second
}

// DashboardConfig parámetros del resumen cacheado.
type DashboardConfig struct {
	CacheTTLSeconds int
}

// CacheTTL TTL explícito de la caché del dashboard.
func (c DashboardConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, DB_PORT, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo .env o config.env
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "erp-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL:        getString(v, "DATABASE_URL", ""),
			Host:               getString(v, "DB_HOST", "localhost"),
			Port:               getInt(v, "DB_PORT", 5432),
			User:               getString(v, "DB_USER", "postgres"),
			Password:           getString(v, "DB_PASSWORD", ""),
			DBName:             getString(v, "DB_NAME", "erp"),
			SSLMode:            getString(v, "DB_SSLMODE", "disable"),
			MaxConns:           int32(getInt(v, "DB_MAX_CONNS", 25)),
			MinConns:           int32(getInt(v, "DB_MIN_CONNS", 2)),
			StatementTimeoutMS: getInt(v, "DB_STATEMENT_TIMEOUT_MS", 15000),
			LockTimeoutMS:      getInt(v, "DB_LOCK_TIMEOUT_MS", 5000),
			TxTimeoutSeconds:   getInt(v, "DB_TX_TIMEOUT_SECONDS", 30),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "erp-api"),

			AdminEmail:    getString(v, "ADMIN_EMAIL", ""),
			AdminPassword: getString(v, "ADMIN_PASSWORD", ""),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			Address:  getString(v, "REDIS_ADDRESS", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Inventory: InventoryConfig{
			DefaultReorderLevel: getInt(v, "INVENTORY_DEFAULT_REORDER_LEVEL", 5),
			MovementsMaxLimit:   getInt(v, "INVENTORY_MOVEMENTS_MAX_LIMIT", 100),
			AuditLockTTLSeconds: getInt(v, "AUDIT_LOCK_TTL_SECONDS", 120),
		},
		Dashboard: DashboardConfig{
			CacheTTLSeconds: getInt(v, "DASHBOARD_CACHE_TTL_SECONDS", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Inventory.DefaultReorderLevel < 0 {
		return fmt.Errorf("config: INVENTORY_DEFAULT_REORDER_LEVEL no puede ser negativo")
	}
	if c.Inventory.MovementsMaxLimit <= 0 {
		return fmt.Errorf("config: INVENTORY_MOVEMENTS_MAX_LIMIT debe ser mayor que 0")
	}
	if c.JWT.BootstrapAdmin() && len(c.JWT.AdminPassword) < 8 {
		return fmt.Errorf("config: ADMIN_PASSWORD debe tener al menos 8 caracteres")
	}
	if c.DB.TxTimeoutSeconds <= 0 {
		return fmt.Errorf("config: DB_TX_TIMEOUT_SECONDS debe ser mayor que 0")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
