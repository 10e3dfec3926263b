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
	"time"

	"github.com/tomoncle/bookshelf/service"
	"github.com/tomoncle/bookshelf/types"
)

// ListParams are the paging parameters shared by every list operation.
type ListParams struct {
	Limit  int  `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int  `query:"offset" default:"0" minimum:"0" maximum:"1000000" doc:"Page index, rows skipped are limit*offset"`
	Desc   bool `query:"desc" doc:"Sort descending"`
}

func (p ListParams) page() types.Page {
	return types.NewPage(p.Limit, p.Offset)
}

func (p ListParams) sort(field string) types.Sort {
	return types.NewSort(field, p.Desc)
}

// TimeParams bound created_at and updated_at, both ends inclusive.
type TimeParams struct {
	CreatedFrom string `query:"created_from" doc:"RFC 3339 lower bound on created_at"`
	CreatedTo   string `query:"created_to" doc:"RFC 3339 upper bound on created_at"`
	UpdatedFrom string `query:"updated_from" doc:"RFC 3339 lower bound on updated_at"`
	UpdatedTo   string `query:"updated_to" doc:"RFC 3339 upper bound on updated_at"`
}

func (p TimeParams) timeRange() (service.TimeRange, error) {
	var r service.TimeRange
	for _, b := range []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"created_from", p.CreatedFrom, &r.CreatedFrom},
		{"created_to", p.CreatedTo, &r.CreatedTo},
		{"updated_from", p.UpdatedFrom, &r.UpdatedFrom},
		{"updated_to", p.UpdatedTo, &r.UpdatedTo},
	} {
		if b.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, b.value)
		if err != nil {
			return r, invalidParam(b.name, "must be an RFC 3339 timestamp")
		}
		t = t.UTC()
		*b.dst = &t
	}
	return r, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func optEnum[E ~string](s string) *E {
	if s == "" {
		return nil
	}
	e := E(s)
	return &e
}

// IDInput addresses a single entity.
type IDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Entity ID"`
}

// NoContentOutput is returned by deletes.
type NoContentOutput struct{}
