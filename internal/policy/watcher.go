// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/nmstate-tools/nncpkit/api/nmstate"
	policyerrors "github.com/nmstate-tools/nncpkit/internal/policy/errors"
	"github.com/nmstate-tools/nncpkit/internal/nodestate"
	"github.com/nmstate-tools/nncpkit/internal/util"
)

// conditions reads status.conditions of the policy instance. A policy that
// was just created may not report any conditions yet.
func (p *Policy) conditions(ctx context.Context) ([]nmstate.Condition, error) {
	obj, err := p.res.Get(ctx)
	if err != nil {
		return nil, err
	}
	raw, found, err := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if err != nil {
		return nil, fmt.Errorf("failed to read conditions of policy %s: %w", p.Name(), err)
	}
	if !found {
		return nil, nil
	}
	conditions := make([]nmstate.Condition, 0, len(raw))
	for _, entry := range raw {
		content, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		var condition nmstate.Condition
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(content, &condition); err != nil {
			return nil, fmt.Errorf("failed to decode condition of policy %s: %w", p.Name(), err)
		}
		conditions = append(conditions, condition)
	}
	return conditions, nil
}

// availableReason returns the reason of the Available condition, or the empty
// string while the condition is not reported.
func (p *Policy) availableReason(ctx context.Context) (nmstate.ConditionReason, error) {
	conditions, err := p.conditions(ctx)
	if err != nil {
		return "", err
	}
	for _, condition := range conditions {
		if condition.Type == nmstate.ConditionAvailable {
			return condition.Reason, nil
		}
	}
	return "", nil
}

// waitForConditions blocks until the policy reports any status conditions.
// Polling the Available reason directly could busy loop on a field that does
// not exist yet on a freshly created resource.
func (p *Policy) waitForConditions(ctx context.Context) error {
	_, err := util.PollUntil(ctx, fmt.Sprintf("conditions of policy %s to appear", p.Name()),
		p.conditions,
		func(conditions []nmstate.Condition) bool { return len(conditions) > 0 },
		p.config.PollInterval.Duration, p.config.ConditionsTimeout.Duration, nil)
	return policyerrors.WrapError(err, policyerrors.ErrAwaitConditions,
		"policy "+p.Name()+" never reported status conditions")
}

// WaitForStatusSuccess waits for the NMState handler to report a terminal
// status: it returns nil on SuccessfullyConfigured, a configuration failure
// on FailedToConfigure, and a timeout error when neither appears in time.
func (p *Policy) WaitForStatusSuccess(ctx context.Context) error {
	p.phase = PhaseAwaitingConditions
	if err := p.waitForConditions(ctx); err != nil {
		if errors.Is(err, util.ErrPollTimeout) {
			p.phase = PhaseTimedOut
		}
		return err
	}

	_, err := util.PollUntil(ctx, fmt.Sprintf("policy %s to be successfully configured", p.Name()),
		func(ctx context.Context) (nmstate.ConditionReason, error) {
			reason, err := p.availableReason(ctx)
			if err != nil {
				return "", err
			}
			if reason == nmstate.ReasonFailedToConfigure {
				return "", policyerrors.NewConfigurationFailed(
					fmt.Sprintf("policy %s reported reason %s", p.Name(), nmstate.ReasonFailedToConfigure))
			}
			return reason, nil
		},
		func(reason nmstate.ConditionReason) bool { return reason == nmstate.ReasonSuccessfullyConfigured },
		p.config.PollInterval.Duration, p.config.StatusTimeout.Duration, nil)
	if err != nil {
		switch {
		case policyerrors.IsConfigurationFailed(err):
			p.phase = PhaseFailed
		case errors.Is(err, util.ErrPollTimeout):
			p.phase = PhaseTimedOut
			err = policyerrors.WrapError(err, policyerrors.ErrAwaitStatus,
				"policy "+p.Name()+" did not reach a terminal status in time")
		}
		logger.Error(err, "unable to configure policy", "policy", p.Name())
		return err
	}
	p.phase = PhaseSucceeded
	logger.Info("policy configured successfully", "policy", p.Name())
	return nil
}

// confirmInterfacesUp checks, on every targeted node, that each interface the
// policy pushed is observed in state up. A failed confirmation is fatal,
// there is no partial success.
func (p *Policy) confirmInterfacesUp(ctx context.Context) error {
	for _, pod := range p.workerPods {
		state := nodestate.New(p.client, pod.NodeName)
		for _, iface := range p.ifaces {
			if err := state.WaitUntilUp(ctx, iface.Name, p.config.PollInterval.Duration, p.config.InterfaceUpTimeout.Duration); err != nil {
				return policyerrors.WrapError(err, policyerrors.ErrConfirmInterfaces,
					fmt.Sprintf("interface %s of policy %s never came up on node %s", iface.Name, p.Name(), pod.NodeName))
			}
		}
	}
	return nil
}
