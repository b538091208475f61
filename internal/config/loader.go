package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "NEOSCAN"

// ConfigLoader 配置加载器
type ConfigLoader struct {
	configPath string
	envPrefix  string
	viper      *viper.Viper
}

// NewConfigLoader 创建配置加载器
func NewConfigLoader(configPath, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = EnvPrefix
	}

	return &ConfigLoader{
		configPath: configPath,
		envPrefix:  envPrefix,
		viper:      viper.New(),
	}
}

// LoadConfig 加载配置
// 顺序：默认值 -> 配置文件 -> 环境变量
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	return cl.load(true)
}

// LoadDefaults 只使用默认值和环境变量，不读取配置文件
func (cl *ConfigLoader) LoadDefaults() (*Config, error) {
	return cl.load(false)
}

func (cl *ConfigLoader) load(withFile bool) (*Config, error) {
	cl.viper.SetConfigType("yaml")

	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cl.bindEnvVars()
	cl.setDefaults()

	if withFile {
		if err := cl.loadConfigFile(); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	var config Config
	if err := cl.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cl.normalize(&config)

	if err := cl.validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadConfigFile 加载配置文件，找不到文件时仅使用默认值和环境变量
func (cl *ConfigLoader) loadConfigFile() error {
	if cl.configPath == "" {
		if envPath := os.Getenv(cl.envPrefix + "_CONFIG_PATH"); envPath != "" {
			cl.configPath = envPath
		} else {
			cl.configPath = "./configs"
		}
	}

	// 直接指定了文件
	if ext := filepath.Ext(cl.configPath); ext == ".yaml" || ext == ".yml" {
		cl.viper.SetConfigFile(cl.configPath)
		return cl.viper.ReadInConfig()
	}

	env := cl.getEnvironment()

	cl.viper.AddConfigPath(cl.configPath)
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")

	cl.viper.SetConfigName(fmt.Sprintf("config.%s", env))
	if err := cl.viper.ReadInConfig(); err != nil {
		cl.viper.SetConfigName("config")
		if err := cl.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil
			}
			return err
		}
	}

	return nil
}

// getEnvironment 获取运行环境
func (cl *ConfigLoader) getEnvironment() string {
	env := os.Getenv(cl.envPrefix + "_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development"
	}
	return env
}

// bindEnvVars 绑定环境变量
func (cl *ConfigLoader) bindEnvVars() {
	p := cl.envPrefix

	// Server配置
	cl.viper.BindEnv("server.host", p+"_SERVER_HOST")
	cl.viper.BindEnv("server.port", p+"_SERVER_PORT", "PORT")
	cl.viper.BindEnv("server.mode", p+"_SERVER_MODE")

	// 日志配置
	cl.viper.BindEnv("log.level", p+"_LOG_LEVEL")
	cl.viper.BindEnv("log.format", p+"_LOG_FORMAT")
	cl.viper.BindEnv("log.output", p+"_LOG_OUTPUT")
	cl.viper.BindEnv("log.file_path", p+"_LOG_FILE_PATH")

	// 中间件配置
	cl.viper.BindEnv("middleware.cors.allow_origins", "ALLOWED_ORIGINS", p+"_ALLOWED_ORIGINS")
	cl.viper.BindEnv("middleware.auth.enabled", p+"_AUTH_ENABLED")
	cl.viper.BindEnv("middleware.auth.api_keys", p+"_API_KEYS")

	// 扫描配置
	cl.viper.BindEnv("scanner.workers", p+"_SCANNER_WORKERS")
	cl.viper.BindEnv("scanner.probe_timeout", p+"_SCANNER_PROBE_TIMEOUT")
	cl.viper.BindEnv("scanner.scan_deadline", p+"_SCANNER_SCAN_DEADLINE")
	cl.viper.BindEnv("scanner.max_cidr_hosts", p+"_SCANNER_MAX_CIDR_HOSTS")
	cl.viper.BindEnv("scanner.dns_server", p+"_SCANNER_DNS_SERVER")
	cl.viper.BindEnv("scanner.proxy", p+"_SCANNER_PROXY")

	// 历史记录
	cl.viper.BindEnv("history.enabled", p+"_HISTORY_ENABLED")
	cl.viper.BindEnv("history.addr", p+"_HISTORY_ADDR", "REDIS_URL")
	cl.viper.BindEnv("history.password", p+"_HISTORY_PASSWORD")
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	// App默认值
	cl.viper.SetDefault("app.name", "NeoScan Scanner")
	cl.viper.SetDefault("app.version", "1.0.0")
	cl.viper.SetDefault("app.environment", "development")
	cl.viper.SetDefault("app.debug", false)

	// Server默认值
	cl.viper.SetDefault("server.host", "0.0.0.0")
	cl.viper.SetDefault("server.port", 8000)
	cl.viper.SetDefault("server.mode", "release")
	cl.viper.SetDefault("server.read_timeout", "30s")
	cl.viper.SetDefault("server.write_timeout", "90s")
	cl.viper.SetDefault("server.idle_timeout", "60s")
	cl.viper.SetDefault("server.max_header_bytes", 1048576)

	// 日志默认值
	cl.viper.SetDefault("log.level", "info")
	cl.viper.SetDefault("log.format", "json")
	cl.viper.SetDefault("log.output", "stdout")
	cl.viper.SetDefault("log.file_path", "./logs/scanner.log")
	cl.viper.SetDefault("log.max_size", 100)
	cl.viper.SetDefault("log.max_backups", 3)
	cl.viper.SetDefault("log.max_age", 28)
	cl.viper.SetDefault("log.compress", true)
	cl.viper.SetDefault("log.caller", false)

	// 中间件默认值
	cl.viper.SetDefault("middleware.auth.enabled", false)
	cl.viper.SetDefault("middleware.auth.skip_paths", []string{"/health", "/ping"})
	cl.viper.SetDefault("middleware.logging.enable_request_log", true)
	cl.viper.SetDefault("middleware.logging.slow_request_threshold", "10s")
	cl.viper.SetDefault("middleware.logging.skip_paths", []string{"/health", "/ping"})
	cl.viper.SetDefault("middleware.cors.enabled", true)
	cl.viper.SetDefault("middleware.cors.allow_origins", []string{"http://localhost:3000"})
	cl.viper.SetDefault("middleware.cors.allow_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	cl.viper.SetDefault("middleware.cors.allow_headers", []string{"*"})
	cl.viper.SetDefault("middleware.cors.allow_credentials", true)
	cl.viper.SetDefault("middleware.cors.max_age", 86400)
	cl.viper.SetDefault("middleware.rate_limit.enabled", true)
	cl.viper.SetDefault("middleware.rate_limit.requests_per_second", 2)
	cl.viper.SetDefault("middleware.rate_limit.burst_size", 5)
	cl.viper.SetDefault("middleware.rate_limit.idle_ttl", "10m")
	cl.viper.SetDefault("middleware.rate_limit.skip_paths", []string{"/health", "/ping"})

	// 扫描默认值
	cl.viper.SetDefault("scanner.workers", 100)
	cl.viper.SetDefault("scanner.probe_timeout", "2s")
	cl.viper.SetDefault("scanner.scan_deadline", "30s")
	cl.viper.SetDefault("scanner.max_cidr_hosts", 1024)
	cl.viper.SetDefault("scanner.max_ports", 65535)
	cl.viper.SetDefault("scanner.default_ports", "1-1000")
	cl.viper.SetDefault("scanner.banner_bytes", 2048)
	cl.viper.SetDefault("scanner.banner_timeout", "1500ms")
	cl.viper.SetDefault("scanner.host_parallelism", 4)
	cl.viper.SetDefault("scanner.adaptive", false)

	// TLS 检查默认值
	cl.viper.SetDefault("ssl.ports", []int{443, 8443, 993, 995, 465, 636})
	cl.viper.SetDefault("ssl.default_port", 443)
	cl.viper.SetDefault("ssl.handshake_timeout", "5s")
	cl.viper.SetDefault("ssl.expiry_warning_days", 30)

	// 暴露面检查默认值
	cl.viper.SetDefault("exposure.enabled", true)
	cl.viper.SetDefault("exposure.timeout", "3s")

	// 规则默认值
	cl.viper.SetDefault("vuln.rules_file", "")

	// 历史记录默认值
	cl.viper.SetDefault("history.enabled", false)
	cl.viper.SetDefault("history.addr", "localhost:6379")
	cl.viper.SetDefault("history.db", 0)
	cl.viper.SetDefault("history.ttl", "168h")
	cl.viper.SetDefault("history.max_items", 1000)
}

// normalize 处理环境变量传入的逗号列表等
func (cl *ConfigLoader) normalize(config *Config) {
	if config.Middleware != nil && config.Middleware.CORS != nil {
		var origins []string
		for _, o := range config.Middleware.CORS.AllowOrigins {
			origins = append(origins, SplitOrigins(o)...)
		}
		config.Middleware.CORS.AllowOrigins = origins
	}
	if config.Scanner != nil && config.Scanner.BannerTimeout > config.Scanner.ProbeTimeout {
		config.Scanner.BannerTimeout = config.Scanner.ProbeTimeout
	}
}

// validateConfig 验证配置
func (cl *ConfigLoader) validateConfig(config *Config) error {
	if config.Server == nil || config.Scanner == nil || config.Log == nil {
		return fmt.Errorf("server, log and scanner sections are required")
	}
	return config.Validate()
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Scanner.Workers <= 0 {
		return fmt.Errorf("invalid scanner workers: %d", c.Scanner.Workers)
	}
	if c.Scanner.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: %s", c.Scanner.ProbeTimeout)
	}
	if c.Scanner.ScanDeadline < c.Scanner.ProbeTimeout {
		return fmt.Errorf("scan deadline %s must not be shorter than probe timeout %s",
			c.Scanner.ScanDeadline, c.Scanner.ProbeTimeout)
	}
	if c.Scanner.MaxCIDRHosts <= 0 {
		return fmt.Errorf("invalid max cidr hosts: %d", c.Scanner.MaxCIDRHosts)
	}
	if c.Scanner.MaxPorts <= 0 || c.Scanner.MaxPorts > 65535 {
		return fmt.Errorf("invalid max ports: %d", c.Scanner.MaxPorts)
	}
	if c.Scanner.BannerBytes <= 0 {
		return fmt.Errorf("invalid banner bytes: %d", c.Scanner.BannerBytes)
	}
	if c.Scanner.HostParallelism <= 0 {
		c.Scanner.HostParallelism = 1
	}
	if c.SSL != nil {
		for _, p := range c.SSL.Ports {
			if p <= 0 || p > 65535 {
				return fmt.Errorf("invalid ssl port: %d", p)
			}
		}
	}
	return nil
}

// GetConfigPath 获取配置文件路径
func (cl *ConfigLoader) GetConfigPath() string {
	return cl.viper.ConfigFileUsed()
}
