package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	LLM        LLMConfig
	Embedding  EmbeddingConfig
	Redis      RedisConfig
	Notes      NotesConfig
	Generation GenerationConfig
	Courses    map[string]CourseConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggerConfig struct {
	Env   string
	Level string
}

// LLMConfig selects the generation oracle. Provider is "ollama" or "openai";
// the openai provider also serves any OpenAI-compatible endpoint via BaseURL.
type LLMConfig struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

type EmbeddingConfig struct {
	Enabled   bool
	Source    string
	BaseURL   string
	Model     string
	APIKey    string
	Threshold float64
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	PageTTL  time.Duration
}

type NotesConfig struct {
	Root string
}

type GenerationConfig struct {
	Lazy         bool
	MaxQuestions int
}

type CourseConfig struct {
	Name  string   `mapstructure:"name"`
	Files []string `mapstructure:"files"`
}

// DefaultCourses is the built-in course catalog.
func DefaultCourses() map[string]CourseConfig {
	return map[string]CourseConfig{
		"nlp": {
			Name:  "Natural Language Processing",
			Files: []string{"nlp/nlp-notes.pdf"},
		},
		"ml-dl": {
			Name:  "Machine Learning & Deep Learning",
			Files: []string{"ml-dl/ml-dl-notes.pdf"},
		},
		"ar": {
			Name:  "Automated Reasoning",
			Files: []string{"ar/ar-notes.pdf"},
		},
		"planning": {
			Name:  "AI Planning",
			Files: []string{"planning/planning-notes.pdf"},
		},
		"hci": {
			Name:  "Human-Computer Interaction",
			Files: []string{"hci/hci-notes.pdf"},
		},
	}
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8090,
			ReadTimeout:  20 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Logger: LoggerConfig{Env: "development", Level: "info"},
		LLM: LLMConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "qwen3:0.6b",
			Timeout:  60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Source:    "ollama",
			BaseURL:   "http://localhost:11434",
			Model:     "nomic-embed-text",
			Threshold: 0.92,
		},
		Redis:      RedisConfig{PageTTL: 24 * time.Hour},
		Notes:      NotesConfig{Root: "."},
		Generation: GenerationConfig{Lazy: true, MaxQuestions: 50},
		Courses:    DefaultCourses(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", 20)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("logger.env", d.Logger.Env)
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.timeout", 60)
	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.source", d.Embedding.Source)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.threshold", d.Embedding.Threshold)
	v.SetDefault("redis.page_ttl", 24*60*60)
	v.SetDefault("notes.root", d.Notes.Root)
	v.SetDefault("generation.lazy", d.Generation.Lazy)
	v.SetDefault("generation.max_questions", d.Generation.MaxQuestions)
}

// LoadConfig reads config.yaml from the working directory or ./config and
// applies environment overrides. A .env file is loaded first if present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  time.Duration(v.GetInt("server.read_timeout")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("server.write_timeout")) * time.Second,
		},
		Logger: LoggerConfig{
			Env:   v.GetString("logger.env"),
			Level: v.GetString("logger.level"),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(v.GetString("llm.provider")),
			BaseURL:  v.GetString("llm.base_url"),
			Model:    v.GetString("llm.model"),
			APIKey:   v.GetString("llm.api_key"),
			Timeout:  time.Duration(v.GetInt("llm.timeout")) * time.Second,
		},
		Embedding: EmbeddingConfig{
			Enabled:   v.GetBool("embedding.enabled"),
			Source:    strings.ToLower(v.GetString("embedding.source")),
			BaseURL:   v.GetString("embedding.base_url"),
			Model:     v.GetString("embedding.model"),
			APIKey:    v.GetString("embedding.api_key"),
			Threshold: v.GetFloat64("embedding.threshold"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			PageTTL:  time.Duration(v.GetInt("redis.page_ttl")) * time.Second,
		},
		Notes: NotesConfig{
			Root: v.GetString("notes.root"),
		},
		Generation: GenerationConfig{
			Lazy:         v.GetBool("generation.lazy"),
			MaxQuestions: v.GetInt("generation.max_questions"),
		},
	}

	courses := map[string]CourseConfig{}
	if err := v.UnmarshalKey("courses", &courses); err != nil {
		return nil, fmt.Errorf("failed to decode courses: %w", err)
	}
	if len(courses) == 0 {
		courses = DefaultCourses()
	}
	cfg.Courses = courses

	// Override with environment variables if set
	if root := os.Getenv("NOTES_ROOT"); root != "" {
		cfg.Notes.Root = root
	}
	if llmServer := os.Getenv("LLM_SERVER"); llmServer != "" {
		cfg.LLM.BaseURL = llmServer
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = apiKey
		}
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = apiKey
		}
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		cfg.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}

	return cfg, nil
}

// CourseCodes returns the catalog codes in sorted order.
func (c *Config) CourseCodes() []string {
	codes := make([]string, 0, len(c.Courses))
	for code := range c.Courses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
