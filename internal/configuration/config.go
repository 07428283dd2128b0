package configuration

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
)

type MongoConfig struct {
	Uri                     string `json:"uri"`
	Database                string `json:"database"`
	UsersCollection         string `json:"usersCollection"`
	MessagesCollection      string `json:"messagesCollection"`
	ConversationsCollection string `json:"conversationsCollection"`
}

type RedisConfig struct {
	Addr          string `json:"addr"`
	Password      string `json:"password"`
	DB            int    `json:"db"`
	FanoutChannel string `json:"fanout_channel"`
}

type PresenceConfig struct {
	LeaseTTLSeconds      int `json:"lease_ttl_seconds"`
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`
}

type ServerConfig struct {
	AppPort        int      `json:"app_port"`
	SocketPort     int      `json:"socket_port"`
	JwtSecret      string   `json:"jwt_secret"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type Config struct {
	ChatDatabase MongoConfig    `json:"mongo"`
	Redis        RedisConfig    `json:"redis"`
	Presence     PresenceConfig `json:"presence"`
	Server       ServerConfig   `json:"server"`
}

func LoadConfig(config_path string) (*Config, error) {
	// .env is optional; real deployments set the variables directly
	_ = godotenv.Load()

	file, err := os.ReadFile(config_path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	config.applyEnvOverrides()
	return &config, nil
}

// applyEnvOverrides lets deployments override secrets and endpoints
// without editing the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.ChatDatabase.Uri = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Server.JwtSecret = v
	}
}
