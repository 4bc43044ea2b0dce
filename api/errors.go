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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/datajpa/types"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// statusOf maps the error taxonomy to an HTTP status and an error code.
func statusOf(err error) (int, string) {
	switch {
	case types.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case types.IsInvalidQuery(err):
		return http.StatusBadRequest, "INVALID_QUERY"
	case types.IsConstraintViolation(err):
		return http.StatusConflict, "CONSTRAINT_VIOLATION"
	case errors.Is(err, types.ErrNonUniqueResult):
		return http.StatusConflict, "NON_UNIQUE_RESULT"
	case errors.Is(err, types.ErrNotImplemented):
		return http.StatusNotImplemented, "NOT_IMPLEMENTED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"error":      err.Error(),
		}).Error("internal error")
		writeErrorBody(c, status, code, "internal server error")
		return
	}
	writeErrorBody(c, status, code, err.Error())
}

func writeErrorBody(c *gin.Context, status int, code, msg string) {
	c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: msg}})
}
