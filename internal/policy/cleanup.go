// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"errors"
	"slices"

	multierr "github.com/hashicorp/go-multierror"

	"github.com/nmstate-tools/nncpkit/api/nmstate"
	"github.com/nmstate-tools/nncpkit/internal/nodestate"
	"github.com/nmstate-tools/nncpkit/internal/util"
)

// CleanUp reverts everything the policy changed and deletes the backing
// resource. Failures on individual interfaces are collected but never stop
// the cleanup of the remaining interfaces or the final deletion.
func (p *Policy) CleanUp(ctx context.Context) error {
	p.phase = PhaseTearingDown
	var errs *multierr.Error

	if p.spec.MTU > 0 {
		p.restorePortMTUs()
	}

	for _, iface := range p.ifaces {
		// Physical NICs that pre-existed the policy are never deleted:
		// removing them would fail against the NMState handler and is not
		// what the caller wants.
		if slices.Contains(p.spec.NodeActiveNICs, iface.Name) {
			continue
		}
		if err := p.absentInterface(ctx, iface); err != nil {
			logger.Error(err, "failed to mark interface absent", "policy", p.Name(), "interface", iface.Name)
			errs = multierr.Append(errs, err)
			continue
		}
		if err := p.waitForInterfaceDeleted(ctx, iface.Name); err != nil {
			if errors.Is(err, util.ErrPollTimeout) {
				// One stuck interface must not block cleanup of the rest.
				logger.Error(err, "timed out confirming interface removal, continuing cleanup",
					"policy", p.Name(), "interface", iface.Name)
				continue
			}
			errs = multierr.Append(errs, err)
		}
	}

	if err := p.res.Delete(ctx); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		p.phase = PhaseRemoved
	}
	return errs.ErrorOrNil()
}

// restorePortMTUs rebuilds every managed port with its backed up MTU so the
// removal of the policy does not strand ports on an overridden MTU.
func (p *Policy) restorePortMTUs() {
	for _, port := range p.spec.Ports {
		mtu, ok := p.mtuBackup[port]
		if !ok {
			continue
		}
		p.SetInterface(nmstate.Interface{
			Name:  port,
			Type:  "ethernet",
			State: nmstate.InterfaceStateUp,
			MTU:   mtu,
		})
	}
}

// absentInterface marks iface absent in the desired state and re-applies the
// policy. For DHCP enabled policies the ports whose DHCP flags drifted from
// the pre-change backup get their backed up values re-injected first, so the
// removal does not strand them in an unintended DHCP configuration.
func (p *Policy) absentInterface(ctx context.Context, iface nmstate.Interface) error {
	iface.State = nmstate.InterfaceStateAbsent
	if iface.Name == p.primary.Name {
		p.primary.State = nmstate.InterfaceStateAbsent
	}
	p.SetInterface(iface)
	p.recordInterface(iface)

	if p.ipv4DHCP {
		for port, backup := range p.changedPortBackups(ctx) {
			p.SetInterface(nmstate.Interface{Name: port, IPv4: backup.AsIPv4()})
		}
	}
	return p.Apply(ctx)
}

// changedPortBackups diffs the current per-node DHCP flags of the managed
// ports against the pre-change backup and returns the backup values of every
// port that drifted. Nodes whose state cannot be read are logged and skipped,
// cleanup of the remaining nodes proceeds.
func (p *Policy) changedPortBackups(ctx context.Context) map[string]nmstate.IPv4Backup {
	changed := make(map[string]nmstate.IPv4Backup)
	for _, pod := range p.workerPods {
		backup, ok := p.ipv4Backup[pod.NodeName]
		if !ok {
			continue
		}
		state := nodestate.New(p.client, pod.NodeName)
		current, err := state.SnapshotIPv4(ctx, p.spec.Ports)
		if err != nil {
			logger.Error(err, "failed to read current port state, skipping DHCP restore for node",
				"policy", p.Name(), "node", pod.NodeName)
			continue
		}
		for port, now := range current {
			if prev, ok := backup[port]; ok && prev != now {
				changed[port] = prev
			}
		}
	}
	return changed
}

// waitForInterfaceDeleted confirms on every targeted node that the interface
// is no longer observed.
func (p *Policy) waitForInterfaceDeleted(ctx context.Context, name string) error {
	for _, pod := range p.workerPods {
		state := nodestate.New(p.client, pod.NodeName)
		if err := state.WaitUntilDeleted(ctx, name, p.config.PollInterval.Duration, p.config.InterfaceDeleteTimeout.Duration); err != nil {
			return err
		}
	}
	return nil
}
