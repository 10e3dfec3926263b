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

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bookshelf/repository"
	"github.com/tomoncle/bookshelf/types"
	"github.com/tomoncle/bookshelf/uow"
)

// mapError reduces any failure to exactly one *types.Error. Storage
// details never leave the service; they are logged instead.
func mapError(log *logrus.Logger, entity string, err error) *types.Error {
	var out *types.Error
	var conflict *repository.ConflictError
	switch {
	case errors.As(err, &out):
	case errors.Is(err, uow.ErrServiceUnavailable):
		out = types.NewError(types.KindServiceUnavailable, entity, "database service is temporarily unavailable").Wrap(err)
	case errors.As(err, &conflict):
		field := conflict.Field()
		out = types.NewError(types.KindAlreadyExists, entity, fmt.Sprintf("%s with this %s already exists", entity, field)).
			WithField(field).
			Wrap(err)
	case errors.Is(err, repository.ErrNotFound):
		out = types.NewError(types.KindNotFound, entity, entity+" not found").Wrap(err)
	case errors.Is(err, repository.ErrReferentialViolation):
		out = types.NewError(types.KindReferentialViolation, entity, "referenced record does not exist").Wrap(err)
	case errors.Is(err, repository.ErrUnknownField), errors.Is(err, repository.ErrInvalidValue):
		out = types.NewError(types.KindValidation, entity, err.Error()).Wrap(err)
	default:
		out = types.NewError(types.KindUnclassified, entity, "internal error").Wrap(err)
	}

	fields := logrus.Fields{"entity": entity, "kind": out.Kind.String()}
	switch out.Kind {
	case types.KindReferentialViolation:
		log.WithFields(fields).WithError(err).Warn("Referential integrity violation")
	case types.KindServiceUnavailable, types.KindUnclassified:
		log.WithFields(fields).WithError(err).Error("Operation failed")
	default:
		log.WithFields(fields).WithError(err).Debug("Operation rejected")
	}
	return out
}

func missingUser(entity string) *types.Error {
	return types.NewError(types.KindReferentialViolation, entity, "user does not exist").WithField("user_id")
}

func emptyUpdate(entity string) *types.Error {
	return types.NewError(types.KindValidation, entity, "no fields to update")
}
