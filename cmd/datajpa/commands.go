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
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tomoncle/datajpa"
	"github.com/tomoncle/datajpa/api"
	"github.com/tomoncle/datajpa/database"
)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := openDB(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			gin.SetMode(cfg.Server.Mode)
			router := api.NewRouter(datajpa.NewService(db),
				api.WithHealthChecker(database.GetDatabaseManager()),
				api.WithLogger(log),
				api.WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
			)
			srv := &http.Server{
				Addr:        cfg.ServerAddr(),
				Handler:     router,
				ReadTimeout: cfg.Server.ReadTimeout,
				IdleTimeout: 60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", srv.Addr).Info("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithFields(logrus.Fields{"error": err.Error()}).Error("shutdown error")
				return err
			}
			return nil
		},
	}
}

func newSeedCmd(load configLoader) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load teams and members from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			res, err := datajpa.NewSeeder(datajpa.NewService(db)).SeedFile(cmd.Context(), file)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"teams": res.Teams, "members": res.Members}).Info("fixture seeded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fixture file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
