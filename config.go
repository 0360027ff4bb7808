package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server          string `json:"server"`
	Database        string `json:"database"`
	Dsn             string `json:"dsn"`
	JWTSecret       string `json:"jwt_secret"`
	UploadsDir      string `json:"uploads_dir"`
	PostBlockExpire string `json:"post_block_expire"`
	Title           string `json:"title"`
	Description     string `json:"description"`
}

func NewConfig() *Config {
	return &Config{
		Server:          ":8080",
		Database:        "sqlite",
		Dsn:             "./db/usof.sqlite",
		UploadsDir:      "./uploads",
		PostBlockExpire: "30s",
		Title:           "USOF",
		Description:     "Questions, answers and arguments",
	}
}

// Load reads an optional JSON config file passed as the first argument,
// then applies .env / environment overrides on top.
func (c *Config) Load(args []string) error {
	godotenv.Load()
	if len(args) > 1 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, c); err != nil {
			return err
		}
	}
	envString(&c.Server, "SERVER_ADDR")
	envString(&c.Database, "DB_DRIVER")
	envString(&c.Dsn, "DB_DSN")
	envString(&c.JWTSecret, "JWT_SECRET")
	envString(&c.UploadsDir, "UPLOADS_DIR")
	envString(&c.PostBlockExpire, "POST_BLOCK_EXPIRE")
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	return nil
}

func envString(target *string, name string) {
	if v := os.Getenv(name); v != "" {
		*target = v
	}
}
