// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the coded errors surfaced by the policy lifecycle.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a policy lifecycle failure.
type ErrorCode string

const (
	// ErrApplyPolicy indicates that pushing the desired state to the cluster failed.
	ErrApplyPolicy ErrorCode = "ERR_APPLY_POLICY"
	// ErrAwaitConditions indicates that the policy never reported any status conditions.
	ErrAwaitConditions ErrorCode = "ERR_AWAIT_CONDITIONS"
	// ErrAwaitStatus indicates that the policy did not reach a terminal status in time.
	ErrAwaitStatus ErrorCode = "ERR_AWAIT_STATUS"
	// ErrConfigurationFailed indicates that the NMState handler reported FailedToConfigure.
	ErrConfigurationFailed ErrorCode = "ERR_CONFIGURATION_FAILED"
	// ErrConfirmInterfaces indicates that a configured interface never came up on a targeted node.
	ErrConfirmInterfaces ErrorCode = "ERR_CONFIRM_INTERFACES"
	// ErrBackupState indicates that capturing the pre-change MTU or DHCP state failed.
	ErrBackupState ErrorCode = "ERR_BACKUP_STATE"
)

// PolicyError is the error type returned by the policy lifecycle operations.
type PolicyError struct {
	Code    ErrorCode
	Cause   error
	Message string
}

func (e *PolicyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Code: %s, Message: %s, Cause: %s", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("Code: %s, Message: %s", e.Code, e.Message)
}

func (e *PolicyError) Unwrap() error {
	return e.Cause
}

// WrapError wraps err with a code and message. A nil err stays nil.
func WrapError(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &PolicyError{
		Code:    code,
		Cause:   err,
		Message: message,
	}
}

// NewConfigurationFailed creates the terminal error raised when the remote
// system reports the FailedToConfigure reason. It is never retried.
func NewConfigurationFailed(message string) error {
	return &PolicyError{
		Code:    ErrConfigurationFailed,
		Message: message,
	}
}

// IsConfigurationFailed reports whether err (or any error it wraps) is a
// terminal configuration failure.
func IsConfigurationFailed(err error) bool {
	var policyErr *PolicyError
	for ; err != nil; err = stderrors.Unwrap(err) {
		if stderrors.As(err, &policyErr) && policyErr.Code == ErrConfigurationFailed {
			return true
		}
	}
	return false
}
