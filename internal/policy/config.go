// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/nmstate-tools/nncpkit/internal/util"
)

const (
	// DefaultApplyTimeout is the window within which write conflicts are retried.
	DefaultApplyTimeout = 3 * time.Second
	// DefaultApplyRetryInterval is the pause between conflicting write attempts.
	DefaultApplyRetryInterval = 1 * time.Second
	// DefaultConditionsTimeout bounds the wait for status conditions to first appear.
	DefaultConditionsTimeout = 30 * time.Second
	// DefaultStatusTimeout bounds the wait for a terminal status reason.
	DefaultStatusTimeout = 30 * time.Second
	// DefaultInterfaceUpTimeout bounds the per-node confirmation that a configured interface is up.
	DefaultInterfaceUpTimeout = 30 * time.Second
	// DefaultInterfaceDeleteTimeout bounds the per-node confirmation that a removed interface is gone.
	DefaultInterfaceDeleteTimeout = 30 * time.Second
	// DefaultPollInterval is the pause between samples of any status wait.
	DefaultPollInterval = 1 * time.Second
)

// Config carries the timeouts and intervals of the policy lifecycle. All
// fields are optional, missing values are defaulted.
type Config struct {
	// ApplyTimeout is the window within which conflicting desired state writes are retried.
	ApplyTimeout *metav1.Duration `json:"applyTimeout,omitempty"`
	// ApplyRetryInterval is the pause between conflicting write attempts.
	ApplyRetryInterval *metav1.Duration `json:"applyRetryInterval,omitempty"`
	// ConditionsTimeout bounds the wait for status conditions to first appear on a fresh policy.
	ConditionsTimeout *metav1.Duration `json:"conditionsTimeout,omitempty"`
	// StatusTimeout bounds the wait for the Available condition to reach a terminal reason.
	StatusTimeout *metav1.Duration `json:"statusTimeout,omitempty"`
	// InterfaceUpTimeout bounds the per-node wait for a configured interface to report up.
	InterfaceUpTimeout *metav1.Duration `json:"interfaceUpTimeout,omitempty"`
	// InterfaceDeleteTimeout bounds the per-node wait for a removed interface to disappear.
	InterfaceDeleteTimeout *metav1.Duration `json:"interfaceDeleteTimeout,omitempty"`
	// PollInterval is the pause between samples of any status wait.
	PollInterval *metav1.Duration `json:"pollInterval,omitempty"`
}

// LoadConfig reads a Config from a YAML file, fills defaults and validates it.
func LoadConfig(file string) (*Config, error) {
	config, err := util.ReadAndUnmarshall[Config](file)
	if err != nil {
		return nil, err
	}
	fillDefaultValues(config)
	if err = validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config populated with the default values.
func DefaultConfig() *Config {
	config := new(Config)
	fillDefaultValues(config)
	return config
}

func validate(c *Config) error {
	v := new(util.Validator)
	v.DurationMustBePositive("applyTimeout", durationOf(c.ApplyTimeout))
	v.DurationMustBePositive("applyRetryInterval", durationOf(c.ApplyRetryInterval))
	v.DurationMustBePositive("conditionsTimeout", durationOf(c.ConditionsTimeout))
	v.DurationMustBePositive("statusTimeout", durationOf(c.StatusTimeout))
	v.DurationMustBePositive("interfaceUpTimeout", durationOf(c.InterfaceUpTimeout))
	v.DurationMustBePositive("interfaceDeleteTimeout", durationOf(c.InterfaceDeleteTimeout))
	v.DurationMustBePositive("pollInterval", durationOf(c.PollInterval))
	return v.Error
}

func fillDefaultValues(c *Config) {
	c.ApplyTimeout = defaultDuration(c.ApplyTimeout, DefaultApplyTimeout)
	c.ApplyRetryInterval = defaultDuration(c.ApplyRetryInterval, DefaultApplyRetryInterval)
	c.ConditionsTimeout = defaultDuration(c.ConditionsTimeout, DefaultConditionsTimeout)
	c.StatusTimeout = defaultDuration(c.StatusTimeout, DefaultStatusTimeout)
	c.InterfaceUpTimeout = defaultDuration(c.InterfaceUpTimeout, DefaultInterfaceUpTimeout)
	c.InterfaceDeleteTimeout = defaultDuration(c.InterfaceDeleteTimeout, DefaultInterfaceDeleteTimeout)
	c.PollInterval = defaultDuration(c.PollInterval, DefaultPollInterval)
}

func defaultDuration(value *metav1.Duration, defaultValue time.Duration) *metav1.Duration {
	if value != nil {
		return value
	}
	return &metav1.Duration{Duration: defaultValue}
}

func durationOf(value *metav1.Duration) *time.Duration {
	if value == nil {
		return nil
	}
	return &value.Duration
}
