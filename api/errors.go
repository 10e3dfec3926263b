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

	"github.com/danielgtaylor/huma/v2"
	"github.com/tomoncle/bookshelf/types"
)

// APIError is the body of every failed request.
type APIError struct {
	status  int
	Code    string            `json:"code" doc:"Machine-readable error code"`
	Message string            `json:"message" doc:"Human-readable error message"`
	Field   string            `json:"field,omitempty" doc:"Offending field"`
	Details map[string]string `json:"details,omitempty" doc:"Per-field messages"`
}

func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind types.ErrorKind) int {
	switch kind {
	case types.KindNotFound, types.KindReferentialViolation:
		return http.StatusNotFound
	case types.KindAlreadyExists:
		return http.StatusConflict
	case types.KindValidation:
		return http.StatusUnprocessableEntity
	case types.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// toAPIError converts a service failure. Unclassified failures never leak
// their cause to the client.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var domainErr *types.Error
	if !errors.As(err, &domainErr) || domainErr.Kind == types.KindUnclassified {
		return &APIError{
			status:  http.StatusInternalServerError,
			Code:    types.KindUnclassified.String(),
			Message: "internal error",
		}
	}
	return &APIError{
		status:  StatusOf(domainErr.Kind),
		Code:    domainErr.Kind.String(),
		Message: domainErr.Message,
		Field:   domainErr.Field,
		Details: domainErr.Details,
	}
}

func invalidParam(name, message string) *APIError {
	return &APIError{
		status:  http.StatusUnprocessableEntity,
		Code:    types.KindValidation.String(),
		Message: "validation failed",
		Field:   name,
		Details: map[string]string{name: message},
	}
}

// RegisterErrorHandler makes huma render its own failures (bad params,
// malformed bodies) with the same body as service errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *types.Error
			if errors.As(err, &domainErr) {
				return toAPIError(domainErr)
			}
		}
		out := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		for _, err := range errs {
			var detail *huma.ErrorDetail
			if errors.As(err, &detail) {
				if out.Details == nil {
					out.Details = map[string]string{}
				}
				out.Details[detail.Location] = detail.Message
			}
		}
		return out
	}
}

func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return types.KindValidation.String()
	case http.StatusNotFound:
		return types.KindNotFound.String()
	case http.StatusConflict:
		return types.KindAlreadyExists.String()
	case http.StatusServiceUnavailable:
		return types.KindServiceUnavailable.String()
	default:
		return types.KindUnclassified.String()
	}
}
