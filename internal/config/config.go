package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	HabiticaURL string `yaml:"habitica_url"`
	CipherFile  string `yaml:"cipher_file"`
	JWTSecret   string `yaml:"jwt_secret"`
	ListenAddr  string `yaml:"listen_addr"`
}

// Load reads configuration from environment variables. If TODO_OVERS_CONFIG
// names a YAML file, its values override the environment.
func Load() *Config {
	port, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		port = 5432 // fallback
	}

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     port,
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		HabiticaURL: os.Getenv("HABITICA_URL"),
		CipherFile:  os.Getenv("CIPHER_FILE"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
	}

	if cfg.CipherFile == "" {
		cfg.CipherFile = "cipher.key"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if path := os.Getenv("TODO_OVERS_CONFIG"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			log.Printf("config: could not load %s: %v", path, err)
		}
	}

	return cfg
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}
