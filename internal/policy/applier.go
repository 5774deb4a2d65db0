// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	policyerrors "github.com/nmstate-tools/nncpkit/internal/policy/errors"
	"github.com/nmstate-tools/nncpkit/internal/util"

	"context"
)

// Apply serializes the current desired state and pushes it to the cluster.
// Only write conflicts are retried, bounded by the apply timeout window; any
// other error is fatal and propagates immediately.
func (p *Policy) Apply(ctx context.Context) error {
	obj, err := p.BuildManifest()
	if err != nil {
		return policyerrors.WrapError(err, policyerrors.ErrApplyPolicy, "failed to build manifest for policy "+p.Name())
	}
	attempts := int(p.config.ApplyTimeout.Duration / p.config.ApplyRetryInterval.Duration)
	if attempts < 1 {
		attempts = 1
	}
	result := util.Retry(ctx, "apply policy "+p.Name(),
		func() (*unstructured.Unstructured, error) {
			// Update mutates the object's resourceVersion, push a copy so a
			// retried attempt starts from the assembled manifest again.
			pushed := obj.DeepCopy()
			if err := p.res.Update(ctx, pushed); err != nil {
				return nil, err
			}
			return pushed, nil
		},
		attempts, p.config.ApplyRetryInterval.Duration, apierrors.IsConflict)
	if result.Err != nil {
		return policyerrors.WrapError(result.Err, policyerrors.ErrApplyPolicy, "failed to apply policy "+p.Name())
	}
	p.phase = PhaseApplied
	logger.V(4).Info("applied desired state", "policy", p.Name(), "interfaces", len(p.desiredState.Interfaces))
	return nil
}
