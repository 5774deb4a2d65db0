// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	multierr "github.com/hashicorp/go-multierror"
)

// Validator accumulates validation failures instead of stopping at the first
// one, so a caller gets all problems with a configuration in one pass.
type Validator struct {
	Error error
}

func (v *Validator) MustNotBeEmpty(key string, value interface{}) bool {
	if value == nil {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be nil or empty", key))
		return false
	}
	cv := reflect.ValueOf(value)
	switch cv.Kind() {
	case reflect.String:
		if strings.TrimSpace(cv.String()) == "" {
			v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be empty", key))
			return false
		}
	case reflect.Slice:
		if cv.Len() == 0 {
			v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be empty", key))
			return false
		}
	case reflect.Map:
		if cv.Len() == 0 {
			v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be empty", key))
			return false
		}
	}
	return true
}

func (v *Validator) MustNotBeNil(key string, value interface{}) bool {
	if value == nil || reflect.ValueOf(value).IsNil() {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must not be nil", key))
		return false
	}
	return true
}

// DurationMustBePositive rejects nil, zero and negative duration values.
func (v *Validator) DurationMustBePositive(key string, value *time.Duration) bool {
	if value == nil || *value <= 0 {
		v.Error = multierr.Append(v.Error, fmt.Errorf("%s must be a positive duration", key))
		return false
	}
	return true
}
