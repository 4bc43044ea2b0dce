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

package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

// dialectEntry knows how to reach one kind of database.
type dialectEntry struct {
	driver  func(c *ConnectionConfig) string
	dsn     func(c *ConnectionConfig) string
	dialect func() schema.Dialect
}

var dialects = map[string]dialectEntry{
	"mysql": {
		driver:  func(*ConnectionConfig) string { return "mysql" },
		dsn:     mysqlDSN,
		dialect: func() schema.Dialect { return mysqldialect.New() },
	},
	"postgres": {
		driver:  postgresDriver,
		dsn:     postgresDSN,
		dialect: func() schema.Dialect { return pgdialect.New() },
	},
	"sqlite": {
		driver:  func(*ConnectionConfig) string { return sqliteshim.ShimName },
		dsn:     sqliteDSN,
		dialect: func() schema.Dialect { return sqlitedialect.New() },
	},
}

var memoryDBSeq atomic.Int64

func lookupDialect(dbType string) (dialectEntry, bool) {
	switch dbType {
	case "postgresql":
		dbType = "postgres"
	case "sqlite3":
		dbType = "sqlite"
	}
	entry, ok := dialects[dbType]
	return entry, ok
}

// DSN returns the driver name and data source name for c.
func DSN(c *ConnectionConfig) (driver string, dsn string, err error) {
	entry, ok := lookupDialect(c.Type)
	if !ok {
		return "", "", fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return entry.driver(c), entry.dsn(c), nil
}

func openBun(c *ConnectionConfig) (*sql.DB, *bun.DB, error) {
	entry, ok := lookupDialect(c.Type)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.Type)
	}
	sqlDB, err := openSQL(c)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, entry.dialect()), nil
}

func openSQL(c *ConnectionConfig) (*sql.DB, error) {
	driver, dsn, err := DSN(c)
	if err != nil {
		return nil, err
	}
	return sql.Open(driver, dsn)
}

func mysqlDSN(c *ConnectionConfig) string {
	charset := c.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		c.Username, c.Password, c.Host, c.Port, c.DBName,
		charset, c.ConnectTimeout, c.ReadTimeout, c.WriteTimeout)
}

// lib/pq registers "postgres", pgx/v5/stdlib registers "pgx".
func postgresDriver(c *ConnectionConfig) string {
	if c.Driver == "pgx" {
		return "pgx"
	}
	return "postgres"
}

func postgresDSN(c *ConnectionConfig) string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", fmt.Sprint(int(c.ConnectTimeout.Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}

// sqliteDSN gives every in-memory manager its own shared-cache database.
func sqliteDSN(c *ConnectionConfig) string {
	if c.IsMemory() {
		return fmt.Sprintf("file:datajpa_%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	}
	return c.DBName + ".db"
}
