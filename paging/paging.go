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

package paging

import (
	"slices"

	"github.com/tomoncle/roster/query"
	"github.com/tomoncle/roster/types"
)

// Paginate sorts items by the request sort and cuts out the requested page.
// items must already be filtered and in their natural order, which is kept
// for elements with equal sort keys. An out of range page is empty, not an
// error; an invalid request is.
func Paginate[T any](schema *query.Schema[T], items []*T, req *types.PageRequest) (*types.Page[T], error) {
	sorted, err := order(schema, items, req)
	if err != nil {
		return nil, err
	}
	return types.NewPage(window(sorted, req), req, int64(len(sorted))), nil
}

// Window is Paginate without a total: the returned Slice only knows whether
// a further element exists past the page.
func Window[T any](schema *query.Schema[T], items []*T, req *types.PageRequest) (*types.Slice[T], error) {
	sorted, err := order(schema, items, req)
	if err != nil {
		return nil, err
	}
	hasNext := req.HasNextWithin(int64(len(sorted)))
	return types.NewSlice(window(sorted, req), req, hasNext), nil
}

func order[T any](schema *query.Schema[T], items []*T, req *types.PageRequest) ([]*T, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cmp, err := query.Comparator(schema, req.GetSort())
	if err != nil {
		return nil, err
	}
	if cmp == nil {
		return items, nil
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, cmp)
	return sorted, nil
}

// window cuts out the page of req. The offset is only computed once the page
// is known to be in range, where it cannot overflow.
func window[T any](items []*T, req *types.PageRequest) []*T {
	if !req.InRange(int64(len(items))) {
		return make([]*T, 0)
	}
	offset := req.GetOffset()
	end := offset + min(req.GetPageSize(), len(items)-offset)
	return slices.Clone(items[offset:end])
}
