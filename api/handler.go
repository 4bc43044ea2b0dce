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
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/datajpa"
	"github.com/tomoncle/datajpa/query"
	"github.com/tomoncle/datajpa/types"
)

// Handler serves the member and team endpoints.
type Handler struct {
	svc    *datajpa.Service
	health HealthChecker
	log    *logrus.Logger
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type createMemberRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	TeamID *int64 `json:"team_id"`
}

func (h *Handler) Hello(c *gin.Context) {
	c.String(http.StatusOK, "hello")
}

func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"healthy": true})
		return
	}
	status := h.health.HealthCheck(c.Request.Context())
	if !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListMembers pages members. Query parameters: page, size, name, age,
// min_age, team_id and sort, repeatable as sort=field or sort=field,desc.
func (h *Handler) ListMembers(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		h.writeError(c, err)
		return
	}
	size, err := intQuery(c, "size", types.DefaultPageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if page < 1 || size < 1 {
		h.writeError(c, types.Errorf(types.ErrInvalidQuery, "page and size must be positive"))
		return
	}
	filter, err := memberFilter(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sorts, err := sortQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	p, err := h.svc.PageMembers(c.Request.Context(), filter, types.NewPageRequest(page, size), sorts...)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) GetMember(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(c, types.Errorf(types.ErrInvalidQuery, "invalid member id %q", c.Param("id")))
		return
	}
	dto, err := h.svc.GetMember(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) MemberDtos(c *gin.Context) {
	dtos, err := h.svc.MemberDtos(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos)
}

func (h *Handler) CreateTeam(c *gin.Context) {
	var body createTeamRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, types.Errorf(types.ErrInvalidQuery, "invalid JSON"))
		return
	}
	team, err := h.svc.CreateTeam(c.Request.Context(), body.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *Handler) CreateMember(c *gin.Context) {
	var body createMemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, types.Errorf(types.ErrInvalidQuery, "invalid JSON"))
		return
	}
	ctx := c.Request.Context()
	m, err := h.svc.RegisterMember(ctx, body.Name, body.Age, body.TeamID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	dto, err := h.svc.GetMember(ctx, m.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, types.Errorf(types.ErrInvalidQuery, "%s must be an integer", key)
	}
	return v, nil
}

func optionalInt(c *gin.Context, key string) (*int, error) {
	if c.Query(key) == "" {
		return nil, nil
	}
	v, err := intQuery(c, key, 0)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func memberFilter(c *gin.Context) (datajpa.MemberFilter, error) {
	f := datajpa.MemberFilter{Name: c.Query("name")}
	var err error
	if f.Age, err = optionalInt(c, "age"); err != nil {
		return f, err
	}
	if f.MinAge, err = optionalInt(c, "min_age"); err != nil {
		return f, err
	}
	if raw := c.Query("team_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, types.Errorf(types.ErrInvalidQuery, "team_id must be an integer")
		}
		f.TeamID = &id
	}
	return f, nil
}

// sortQuery parses sort=field[,asc|desc] parameters. Field names are checked
// when the descriptor is built.
func sortQuery(c *gin.Context) ([]query.Sort, error) {
	var sorts []query.Sort
	for _, raw := range c.QueryArray("sort") {
		field, dir, _ := strings.Cut(raw, ",")
		field = strings.TrimSpace(field)
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
			sorts = append(sorts, query.Asc(field))
		case "desc":
			sorts = append(sorts, query.Desc(field))
		default:
			return nil, types.Errorf(types.ErrInvalidQuery, "unknown sort direction %q", dir)
		}
	}
	return sorts, nil
}
