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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/entity"
	"github.com/tomoncle/datajpa/types"
)

type testServer struct {
	router *gin.Engine
	svc    *datajpa.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mgr, err := database.Open(context.Background(), &database.Config{
		ConnectionConfig: *database.DefaultConnectionConfig(),
		DataMigrateConfig: database.DataMigrateConfig{
			EnableMigrateOnStartup: true,
			EnableForeignKey:       true,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Disconnect() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := datajpa.NewService(mgr.GetDB())
	return &testServer{
		router: NewRouter(svc, WithHealthChecker(mgr), WithLogger(log)),
		svc:    svc,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	team, err := s.svc.CreateTeam(ctx, "teamA")
	require.NoError(t, err)
	for i, name := range []string{"member1", "member2", "member3"} {
		var teamID *int64
		if i < 2 {
			teamID = &team.ID
		}
		_, err := s.svc.RegisterMember(ctx, name, 10*(i+1), teamID)
		require.NoError(t, err)
	}
}

func TestHello(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/hello", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestListMembers(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodGet, "/members?page=1&size=2&sort=name,desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[types.Pagination[entity.MemberDto]](t, rec)
	require.Equal(t, 3, p.Total)
	require.Equal(t, 2, p.PageSize)
	require.Len(t, p.Items, 2)
	require.Equal(t, "member3", p.Items[0].Name)
	require.Empty(t, p.Items[0].TeamName)
	require.Equal(t, "member2", p.Items[1].Name)
	require.Equal(t, "teamA", p.Items[1].TeamName)

	rec = s.do(t, http.MethodGet, "/members?age=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p = decode[types.Pagination[entity.MemberDto]](t, rec)
	require.Equal(t, 1, p.Total)
	require.Equal(t, "member2", p.Items[0].Name)

	rec = s.do(t, http.MethodGet, "/members?page=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p = decode[types.Pagination[entity.MemberDto]](t, rec)
	require.Equal(t, 3, p.Total)
	require.Empty(t, p.Items)
}

func TestListMembersBadRequest(t *testing.T) {
	s := newTestServer(t)
	for _, target := range []string{
		"/members?page=x",
		"/members?size=0",
		"/members?size=5000",
		"/members?sort=salary",
		"/members?sort=name,sideways",
		"/members?team_id=abc",
	} {
		rec := s.do(t, http.MethodGet, target, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		body := decode[ErrorResponse](t, rec)
		require.Equal(t, "INVALID_QUERY", body.Error.Code, target)
	}
}

func TestGetMember(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodGet, "/members/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[entity.MemberDto](t, rec)
	require.Equal(t, "member1", dto.Name)
	require.Equal(t, "teamA", dto.TeamName)

	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/members/99", nil).Code)
	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/members/abc", nil).Code)
}

func TestMemberDtos(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodGet, "/members/dto", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dtos := decode[[]entity.MemberDto](t, rec)
	require.Len(t, dtos, 2)
	require.Equal(t, "member1", dtos[0].Name)
}

func TestCreateTeamAndMember(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/teams", createTeamRequest{Name: "teamA"})
	require.Equal(t, http.StatusCreated, rec.Code)
	team := decode[entity.Team](t, rec)
	require.NotZero(t, team.ID)

	rec = s.do(t, http.MethodPost, "/members", createMemberRequest{Name: "member1", Age: 10, TeamID: &team.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	dto := decode[entity.MemberDto](t, rec)
	require.Equal(t, "teamA", dto.TeamName)

	rec = s.do(t, http.MethodPost, "/members", createMemberRequest{Name: "", Age: 10})
	require.Equal(t, http.StatusConflict, rec.Code)

	missing := int64(99)
	rec = s.do(t, http.MethodPost, "/members", createMemberRequest{Name: "x", Age: 1, TeamID: &missing})
	require.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/teams", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	bad := httptest.NewRecorder()
	s.router.ServeHTTP(bad, req)
	require.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[database.HealthStatus](t, rec)
	require.True(t, status.Healthy)

	s.do(t, http.MethodGet, "/hello", nil)
	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "datajpa_http_requests_total")
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/nowhere", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, rec).Error.Code)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := gin.New()
	r.Use(RequestID(), Recovery(log))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "INTERNAL_ERROR", decode[ErrorResponse](t, rec).Error.Code)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{types.NewError(types.ErrNotFound, "get", "member"), http.StatusNotFound},
		{types.Errorf(types.ErrInvalidQuery, "bad"), http.StatusBadRequest},
		{types.ErrConstraintViolation, http.StatusConflict},
		{types.ErrNonUniqueResult, http.StatusConflict},
		{types.ErrNotImplemented, http.StatusNotImplemented},
		{types.ErrDetachedReference, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := statusOf(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(0.001, 2))
	r.GET("/hello", func(c *gin.Context) { c.String(http.StatusOK, "hello") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
