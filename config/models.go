/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/utils"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

type DatabaseConfig struct {
	Type             string        `mapstructure:"type"`
	Driver           string        `mapstructure:"driver"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"dbname"`
	SSLMode          string        `mapstructure:"sslmode"`
	Charset          string        `mapstructure:"charset"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	EnableQueryLog   bool          `mapstructure:"enable_query_log"`
	QueryLogStyle    string        `mapstructure:"query_log_style"`
	SlowQueryTime    time.Duration `mapstructure:"slow_query_time"`
	EnableMetrics    bool          `mapstructure:"enable_metrics"`
	MigrateOnStartup bool          `mapstructure:"migrate_on_startup"`
	ForeignKeys      bool          `mapstructure:"foreign_keys"`
}

// Validate reports the first missing or malformed setting.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	return c.Database.Validate()
}

func (d DatabaseConfig) Validate() error {
	switch d.Type {
	case "sqlite", "sqlite3":
		return nil
	case "postgres", "postgresql", "mysql":
	case "":
		return errors.New("database.type is required")
	default:
		return fmt.Errorf("database.type %q is not supported", d.Type)
	}
	if d.Host == "" {
		return errors.New("database.host is required")
	}
	if d.Username == "" || d.DBName == "" {
		return errors.New("database credentials are required")
	}
	return nil
}

// ServerAddr returns host:port for the HTTP listener.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ApplyLogging sets the level and format of every named logger.
func (c Config) ApplyLogging() {
	utils.ConfigureLogLevel(c.Logging.Level)
	utils.ConfigureConsoleLogFormat(c.Logging.Format)
}

// ToDatabaseConfig overlays the configured values on the database defaults.
func (d DatabaseConfig) ToDatabaseConfig() *database.Config {
	conn := database.DefaultConnectionConfig()
	conn.Type = d.Type
	conn.Driver = d.Driver
	conn.Host = d.Host
	conn.Port = d.Port
	conn.Username = d.Username
	conn.Password = d.Password
	conn.DBName = d.DBName
	conn.SSLMode = d.SSLMode
	conn.Charset = d.Charset
	conn.EnableQueryLog = d.EnableQueryLog
	conn.QueryLogStyle = d.QueryLogStyle
	conn.EnableMetrics = d.EnableMetrics
	if d.MaxOpenConns > 0 {
		conn.MaxOpenConns = d.MaxOpenConns
	}
	if d.MaxIdleConns > 0 {
		conn.MaxIdleConns = d.MaxIdleConns
	}
	if d.ConnMaxLifetime > 0 {
		conn.ConnMaxLifetime = d.ConnMaxLifetime
	}
	if d.SlowQueryTime > 0 {
		conn.SlowQueryTime = d.SlowQueryTime
	}
	return &database.Config{
		ConnectionConfig: *conn,
		DataMigrateConfig: database.DataMigrateConfig{
			EnableMigrateOnStartup: d.MigrateOnStartup,
			EnableForeignKey:       d.ForeignKeys,
		},
	}
}
