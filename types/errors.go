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

package types

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the record-access layer. None of them is
// retried internally.
var (
	ErrNotFound            = errors.New("record not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrDetachedReference   = errors.New("detached reference")
	ErrInvalidProjection   = errors.New("invalid projection")
	ErrNonUniqueResult     = errors.New("non unique result")
	ErrNotImplemented      = errors.New("not implemented")
)

// Error adds operation context to one of the sentinel errors.
type Error struct {
	Op     string
	Entity string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Entity != "" {
		msg += " " + e.Entity
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %s)", e.Field)
	}
	if msg == "" {
		return e.Err.Error()
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with operation context.
func NewError(err error, op, entity string) *Error {
	return &Error{Op: op, Entity: entity, Err: err}
}

// NewFieldError wraps err with operation context naming the offending field.
func NewFieldError(err error, op, entity, field string) *Error {
	return &Error{Op: op, Entity: entity, Field: field, Err: err}
}

// Errorf wraps a sentinel with a formatted detail message.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConstraintViolation(err error) bool { return errors.Is(err, ErrConstraintViolation) }

func IsInvalidQuery(err error) bool { return errors.Is(err, ErrInvalidQuery) }

func IsDetachedReference(err error) bool { return errors.Is(err, ErrDetachedReference) }

func IsInvalidProjection(err error) bool { return errors.Is(err, ErrInvalidProjection) }
