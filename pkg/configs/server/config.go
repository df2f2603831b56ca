package server

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds everything the triald process needs to start.
//
// DBURI is the connection string of the backing store. It is injected
// from outside (config file or environment), never hard-coded: the
// deployment environment owns the credential.
type ServerConfig struct {
	Port  string `yaml:"port"`
	DBURI string `yaml:"dbURI"`
}

func LoadServerConfig(filepath string) (*ServerConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*ServerConfig, error) {
	var out ServerConfig
	err := yaml.Unmarshal(conf, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FromEnv builds config from environment variables:
// TRIALD_PORT (default "8080") and TRIALD_DB_URI.
func FromEnv() *ServerConfig {
	port := os.Getenv("TRIALD_PORT")
	if port == "" {
		port = "8080"
	}
	return &ServerConfig{
		Port:  port,
		DBURI: os.Getenv("TRIALD_DB_URI"),
	}
}
