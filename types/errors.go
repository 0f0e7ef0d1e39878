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

// ErrInvalidPageRequest is matched by every InvalidPageRequestError.
var ErrInvalidPageRequest = errors.New("invalid page request")

// InvalidPageRequestError reports a page index below zero or a non-positive size.
type InvalidPageRequestError struct {
	Page   int
	Size   int
	Reason string
}

func (e *InvalidPageRequestError) Error() string {
	return fmt.Sprintf("invalid page request (page=%d, size=%d): %s", e.Page, e.Size, e.Reason)
}

func (e *InvalidPageRequestError) Is(target error) bool {
	return target == ErrInvalidPageRequest
}

// IsInvalidPageRequest checks if an error is an invalid page request error.
func IsInvalidPageRequest(err error) bool {
	return errors.Is(err, ErrInvalidPageRequest)
}
