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

// DefaultPageSize is used when a PageRequest carries no usable size.
const DefaultPageSize = 10

// PageRequest describes a 1-based page number and a page size.
type PageRequest struct {
	page     int
	pageSize int
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// NewPageRequest constructs a PageRequest. Values below 1 fall back to the
// first page and DefaultPageSize.
func NewPageRequest(page int, pageSize int) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize}
}

// Pagination holds paged result items along with pagination metadata.
// Total counts every matching record, not only the ones in Items.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// NewWindowPagination builds an empty container from a raw offset/limit
// window. The page number is derived from the offset.
func NewWindowPagination[T any](offset int, limit int) *Pagination[T] {
	page := 1
	if limit > 0 {
		page = offset/limit + 1
	}
	return NewDefaultPagination[T](page, limit)
}

// TotalPages returns the number of pages needed for Total items.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 {
		if p.Total > 0 {
			return 1
		}
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p *Pagination[T]) IsFirst() bool { return p.Page <= 1 }

func (p *Pagination[T]) IsLast() bool { return p.Page >= p.TotalPages() }

func (p *Pagination[T]) HasNext() bool { return p.Page < p.TotalPages() }

func (p *Pagination[T]) HasPrevious() bool { return p.Page > 1 }

// MapPagination converts the items of a page and keeps its metadata.
// The first mapping error aborts the conversion.
func MapPagination[T any, R any](p *Pagination[T], fn func(*T) (*R, error)) (*Pagination[R], error) {
	out := &Pagination[R]{
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
		Items:    make([]*R, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		r, err := fn(item)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, r)
	}
	return out, nil
}
