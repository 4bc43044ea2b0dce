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

package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/datajpa"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/utils"
)

// HealthChecker reports the database health for /healthz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) *database.HealthStatus
}

type options struct {
	health   HealthChecker
	gatherer prometheus.Gatherer
	log      *logrus.Logger
	rps      float64
	burst    int
}

type Option func(*options)

func WithHealthChecker(h HealthChecker) Option {
	return func(o *options) { o.health = h }
}

// WithGatherer sets the registry served on /metrics. The default is the
// global Prometheus registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) { o.gatherer = g }
}

func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRateLimit limits every client IP to rps requests per second with the
// given burst. A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) { o.rps, o.burst = rps, burst }
}

// NewRouter builds the gin engine serving svc.
func NewRouter(svc *datajpa.Service, opts ...Option) *gin.Engine {
	o := &options{gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = utils.NewLogger("api")
	}

	h := &Handler{svc: svc, health: o.health, log: o.log}

	r := gin.New()
	r.Use(
		RequestID(),
		AccessLog(o.log),
		Recovery(o.log),
	)
	if o.rps > 0 {
		r.Use(RateLimit(o.rps, max(o.burst, 1)))
	}
	r.Use(RequestScope())

	r.GET("/hello", h.Hello)
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})))

	r.GET("/members", h.ListMembers)
	r.GET("/members/dto", h.MemberDtos)
	r.GET("/members/:id", h.GetMember)
	r.POST("/members", h.CreateMember)
	r.POST("/teams", h.CreateTeam)

	r.NoRoute(func(c *gin.Context) {
		writeErrorBody(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	return r
}
