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
	"encoding/json"
	"math"
)

// PageRequest describes a zero-based page index, a page size and ordering.
// Values are validated, never clamped.
type PageRequest struct {
	page int
	size int
	sort Sort
}

// NewPageRequest constructs a PageRequest; page must be >= 0 and size > 0.
func NewPageRequest(page int, size int, orders ...Order) (*PageRequest, error) {
	p := &PageRequest{page: page, size: size, sort: By(orders...)}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate reports an InvalidPageRequestError for a nil request, a negative
// page index or a non-positive size.
func (p *PageRequest) Validate() error {
	if p == nil {
		return &InvalidPageRequestError{Reason: "page request is required"}
	}
	if p.page < 0 {
		return &InvalidPageRequestError{Page: p.page, Size: p.size, Reason: "page index must not be less than zero"}
	}
	if p.size < 1 {
		return &InvalidPageRequestError{Page: p.page, Size: p.size, Reason: "page size must be greater than zero"}
	}
	return nil
}

func (p *PageRequest) GetPage() int { return p.page }

func (p *PageRequest) GetPageSize() int { return p.size }

// GetOffset returns page*size, saturated at math.MaxInt.
func (p *PageRequest) GetOffset() int {
	if p.size > 0 && p.page > math.MaxInt/p.size {
		return math.MaxInt
	}
	return p.page * p.size
}

// InRange reports whether the requested page holds at least one of total
// elements.
func (p *PageRequest) InRange(total int64) bool {
	return total > 0 && int64(p.page) <= lastPage(total, p.size)
}

// HasNextWithin reports whether a page after the requested one holds at
// least one of total elements.
func (p *PageRequest) HasNextWithin(total int64) bool {
	return total > 0 && int64(p.page) < lastPage(total, p.size)
}

// lastPage is the index of the last non-empty page for total > 0. It divides
// instead of multiplying so that no page index can overflow.
func lastPage(total int64, size int) int64 {
	if size < 1 {
		return -1
	}
	return (total - 1) / int64(size)
}

func (p *PageRequest) GetSort() Sort { return p.sort }

// Next returns the request for the following page with the same size and sort.
func (p *PageRequest) Next() *PageRequest {
	return &PageRequest{page: p.page + 1, size: p.size, sort: p.sort}
}

// Page is one window of a counted result sequence. Every field is derived
// from the content, the request and the total, so a Page cannot be put into
// an inconsistent state.
type Page[T any] struct {
	content []*T
	number  int
	size    int
	total   int64
	sort    Sort
}

// NewPage builds a Page for req holding content out of total elements.
func NewPage[T any](content []*T, req *PageRequest, total int64) *Page[T] {
	if content == nil {
		content = make([]*T, 0)
	}
	return &Page[T]{content: content, number: req.page, size: req.size, total: total, sort: req.sort}
}

func (p *Page[T]) Content() []*T { return p.content }

func (p *Page[T]) NumberOfElements() int { return len(p.content) }

func (p *Page[T]) Number() int { return p.number }

func (p *Page[T]) Size() int { return p.size }

func (p *Page[T]) Sort() Sort { return p.sort }

func (p *Page[T]) TotalElements() int64 { return p.total }

// TotalPages is ceil(total/size), zero for an empty result.
func (p *Page[T]) TotalPages() int {
	if p.total <= 0 || p.size < 1 {
		return 0
	}
	return int(lastPage(p.total, p.size) + 1)
}

func (p *Page[T]) IsFirst() bool { return p.number == 0 }

func (p *Page[T]) IsLast() bool { return !p.HasNext() }

func (p *Page[T]) HasNext() bool {
	return p.total > 0 && int64(p.number) < lastPage(p.total, p.size)
}

func (p *Page[T]) HasPrevious() bool { return p.number > 0 }

func (p *Page[T]) HasContent() bool { return len(p.content) > 0 }

// MapPage converts the content of p while keeping its paging metadata.
func MapPage[T any, R any](p *Page[T], fn func(*T) *R) *Page[R] {
	out := make([]*R, len(p.content))
	for i, item := range p.content {
		out[i] = fn(item)
	}
	return &Page[R]{content: out, number: p.number, size: p.size, total: p.total, sort: p.sort}
}

type pageView[T any] struct {
	Content       []*T  `json:"content" yaml:"content"`
	Number        int   `json:"number" yaml:"number"`
	Size          int   `json:"size" yaml:"size"`
	TotalElements int64 `json:"total_elements" yaml:"total_elements"`
	TotalPages    int   `json:"total_pages" yaml:"total_pages"`
	First         bool  `json:"first" yaml:"first"`
	Last          bool  `json:"last" yaml:"last"`
}

func (p *Page[T]) view() pageView[T] {
	return pageView[T]{
		Content:       p.content,
		Number:        p.number,
		Size:          p.size,
		TotalElements: p.total,
		TotalPages:    p.TotalPages(),
		First:         p.IsFirst(),
		Last:          p.IsLast(),
	}
}

// MarshalJSON renders the page with its derived metadata.
func (p *Page[T]) MarshalJSON() ([]byte, error) { return json.Marshal(p.view()) }

// MarshalYAML renders the page with its derived metadata.
func (p *Page[T]) MarshalYAML() (interface{}, error) { return p.view(), nil }

// Slice is an uncounted window: it knows whether a next window exists but
// not how many elements there are in total.
type Slice[T any] struct {
	content []*T
	number  int
	size    int
	hasNext bool
	sort    Sort
}

// NewSlice builds a Slice for req holding content.
func NewSlice[T any](content []*T, req *PageRequest, hasNext bool) *Slice[T] {
	if content == nil {
		content = make([]*T, 0)
	}
	return &Slice[T]{content: content, number: req.page, size: req.size, hasNext: hasNext, sort: req.sort}
}

func (s *Slice[T]) Content() []*T { return s.content }

func (s *Slice[T]) NumberOfElements() int { return len(s.content) }

func (s *Slice[T]) Number() int { return s.number }

func (s *Slice[T]) Size() int { return s.size }

func (s *Slice[T]) Sort() Sort { return s.sort }

func (s *Slice[T]) IsFirst() bool { return s.number == 0 }

func (s *Slice[T]) IsLast() bool { return !s.hasNext }

func (s *Slice[T]) HasNext() bool { return s.hasNext }

func (s *Slice[T]) HasPrevious() bool { return s.number > 0 }
