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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// FetchPolicy tells the relationship resolver when a referenced record is
// loaded.
type FetchPolicy int

const (
	// FetchEager loads the reference as part of the originating query.
	FetchEager FetchPolicy = iota
	// FetchLazy defers the load until first access inside the request scope.
	FetchLazy
)

var _ BaseEnum = FetchEager

func (p FetchPolicy) IsValid() bool { return p == FetchEager || p == FetchLazy }

func (p FetchPolicy) Number() int {
	if !p.IsValid() {
		return IllegalValue
	}
	return int(p)
}

func (p FetchPolicy) String() string { return p.Name() }

func (p FetchPolicy) Name() string {
	switch p {
	case FetchEager:
		return "eager"
	case FetchLazy:
		return "lazy"
	default:
		return IllegalName
	}
}

func (p FetchPolicy) Desc() string {
	switch p {
	case FetchEager:
		return "load with a join in the originating query"
	case FetchLazy:
		return "load on first access within the request scope"
	default:
		return IllegalDesc
	}
}

// LockMode is the row lock requested by a query.
type LockMode int

const (
	LockNone LockMode = iota
	LockPessimisticWrite
)

var _ BaseEnum = LockNone

func (m LockMode) IsValid() bool { return m == LockNone || m == LockPessimisticWrite }

func (m LockMode) Number() int {
	if !m.IsValid() {
		return IllegalValue
	}
	return int(m)
}

func (m LockMode) String() string { return m.Name() }

func (m LockMode) Name() string {
	switch m {
	case LockNone:
		return "none"
	case LockPessimisticWrite:
		return "pessimistic_write"
	default:
		return IllegalName
	}
}

func (m LockMode) Desc() string {
	switch m {
	case LockNone:
		return "no row lock"
	case LockPessimisticWrite:
		return "SELECT ... FOR UPDATE"
	default:
		return IllegalDesc
	}
}
