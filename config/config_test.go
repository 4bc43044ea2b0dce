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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "0.0.0.0:8080", cfg.ServerAddr())
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "sqlite", cfg.Database.Type)
	require.True(t, cfg.Database.MigrateOnStartup)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datajpa.yaml")
	yml := `
server:
  port: 9001
  shutdown_timeout: 1s
database:
  type: postgres
  driver: pgx
  host: db
  port: 5432
  username: app
  password: secret
  dbname: members
  max_open_conns: 7
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("DATABASE_HOST", "db.internal")

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "db.internal", cfg.Database.Host)

	dbCfg := cfg.Database.ToDatabaseConfig()
	require.Equal(t, "postgres", dbCfg.ConnectionConfig.Type)
	require.Equal(t, "pgx", dbCfg.ConnectionConfig.Driver)
	require.Equal(t, 7, dbCfg.ConnectionConfig.MaxOpenConns)
	require.Equal(t, "members", dbCfg.ConnectionConfig.DBName)
	require.Equal(t, 10*time.Second, dbCfg.ConnectionConfig.ConnectTimeout)
	require.True(t, dbCfg.DataMigrateConfig.EnableForeignKey)
}

func TestLoadEnvFileKeepsRealEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERVER_PORT=7000\nLOGGING_LEVEL=debug\n"), 0o600))
	t.Setenv("SERVER_PORT", "9000")
	unsetEnv(t, "LOGGING_LEVEL")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), noEnvFile(t))
	require.Error(t, err)

	t.Setenv("DATABASE_TYPE", "oracle")
	_, err = Load("", noEnvFile(t))
	require.ErrorContains(t, err, "not supported")
}

func TestValidate(t *testing.T) {
	ok := Config{Server: ServerConfig{Port: 80}, Database: DatabaseConfig{Type: "sqlite"}}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.Server.Port = 0
	require.Error(t, bad.Validate())

	bad = ok
	bad.Logging.Format = "xml"
	require.Error(t, bad.Validate())

	bad = ok
	bad.Database = DatabaseConfig{Type: "mysql", Username: "root", DBName: "app"}
	require.ErrorContains(t, bad.Validate(), "database.host")

	bad.Database.Host = "localhost"
	require.NoError(t, bad.Validate())

	bad.Database.Type = ""
	require.Error(t, bad.Validate())
}
