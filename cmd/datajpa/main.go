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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tomoncle/datajpa/config"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/utils"
	"github.com/uptrace/bun"
)

var log = utils.NewLogger("datajpa")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "datajpa",
		Short:         "Member and team record access service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to a YAML config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg.ApplyLogging()
		database.InitLogger(database.NewDefaultLogger(log))
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load), newMigrateCmd(load), newSeedCmd(load))
	return root
}

type configLoader func() (*config.Config, error)

// openDB connects the global database and always runs the migrations when
// migrate is set.
func openDB(ctx context.Context, cfg *config.Config, migrate bool) (*bun.DB, error) {
	dbCfg := cfg.Database.ToDatabaseConfig()
	if migrate {
		dbCfg.DataMigrateConfig.EnableMigrateOnStartup = true
	}
	return database.InitDB(ctx, dbCfg)
}

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the member and team tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if _, err := openDB(cmd.Context(), cfg, true); err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()
			log.Info("migrations applied")
			return nil
		},
	}
}
