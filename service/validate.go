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

package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/bookshelf/models"
	"github.com/tomoncle/bookshelf/types"
)

// Validator wraps go-playground/validator and reports failures as
// validation errors keyed by JSON field name.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(types.BaseEnum)
		return ok && e.IsValid()
	})
	return &Validator{v: v}
}

// Validate checks s and returns a *types.Error of kind validation.
func (v *Validator) Validate(entity string, s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return types.NewError(types.KindValidation, entity, "validation failed").Wrap(err)
	}
	details := make(map[string]string, len(fieldErrs))
	for _, e := range fieldErrs {
		details[e.Field()] = friendlyMessage(e)
	}
	out := types.NewError(types.KindValidation, entity, "validation failed").Wrap(err)
	out.Details = details
	if len(fieldErrs) == 1 {
		out.Field = fieldErrs[0].Field()
	}
	return out
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gt":
		return "must be greater than " + e.Param()
	case "enum":
		return "must be one of: " + strings.Join(enumNames(e.Value()), ", ")
	default:
		return "is invalid"
	}
}

func enumNames(v any) []string {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		v = rv.Elem().Interface()
	}
	switch v.(type) {
	case models.Kind:
		return types.EnumNames(models.Kinds...)
	case models.Status:
		return types.EnumNames(models.Statuses...)
	case models.Priority:
		return types.EnumNames(models.Priorities...)
	}
	return nil
}
