// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"os"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/yaml"
)

var logger = log.Log.WithName("util")

// SleepWithContext sleeps for sleepFor or until ctx is done, whichever comes
// first. The context error is returned when the sleep was interrupted.
func SleepWithContext(ctx context.Context, sleepFor time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(sleepFor):
		return nil
	}
}

// ReadAndUnmarshall reads a YAML file and unmarshalls it into a value of type T.
func ReadAndUnmarshall[T any](file string) (*T, error) {
	configBytes, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	t := new(T)
	if err = yaml.Unmarshal(configBytes, t); err != nil {
		return nil, err
	}
	return t, nil
}
