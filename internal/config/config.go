package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds the settings shared by the CLI commands.
type Config struct {
	// Input / output
	InputFile  string
	OutputFile string

	// Conversion settings
	ProgressEvery int  // entities between progress reports
	CheckRefs     bool // validate way edges against seen node ids

	// Filter settings
	Force       bool   // overwrite an existing filter output
	FileSuffix  string // suffix for the derived filter output path
	ProfileFile string // YAML filter profile, empty = built-in railway

	// Database settings (load command)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSchema   string
	Workers    int // connection pool size for parallel table loads

	// Logging and metrics
	Verbose         bool
	LogFile         string
	MetricsInterval time.Duration
	NoProgress      bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ProgressEvery: 8192,
		DBHost:        "localhost",
		DBPort:        5432,
		DBName:        "osm",
		DBUser:        "postgres",
		DBSchema:      "public",
		Workers:       runtime.NumCPU(),
	}
}

// ConnectionString returns a PostgreSQL connection string.
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.ProgressEvery < 1 {
		return fmt.Errorf("progress interval must be at least 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}
