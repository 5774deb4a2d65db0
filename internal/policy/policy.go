// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package policy drives the lifecycle of an NMState
// NodeNetworkConfigurationPolicy: it builds the desired interface state,
// applies it with bounded retry on write conflicts, waits for the handler to
// report a terminal status, and rolls the change back on release.
package policy

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/nmstate-tools/nncpkit/api/nmstate"
	policyerrors "github.com/nmstate-tools/nncpkit/internal/policy/errors"
	"github.com/nmstate-tools/nncpkit/internal/nodestate"
	"github.com/nmstate-tools/nncpkit/internal/remote"
	"github.com/nmstate-tools/nncpkit/internal/resource"
	"github.com/nmstate-tools/nncpkit/internal/util"
)

var logger = log.Log.WithName("policy")

// Phase is the lifecycle phase of a policy.
type Phase string

const (
	PhaseBuilt              Phase = "Built"
	PhaseApplied            Phase = "Applied"
	PhaseAwaitingConditions Phase = "AwaitingConditions"
	PhaseSucceeded          Phase = "Succeeded"
	PhaseFailed             Phase = "Failed"
	PhaseTimedOut           Phase = "TimedOut"
	PhaseReconfiguringDHCP  Phase = "ReconfiguringDHCP"
	PhaseTearingDown        Phase = "TearingDown"
	PhaseRemoved            Phase = "Removed"
)

// Spec declares a policy. It is YAML loadable so the CLI can read policy
// definitions from a file.
//
// IPv4Addresses entries use the NMState wire names, for example
// {ip: 10.1.2.3, prefix-length: 24}. Desired state sanity is deliberately not
// checked client side: dhcp disabled with no static address is passed through
// untouched and left for the NMState handler to reject, which negative tests
// rely on.
type Spec struct {
	// Name is the name of the NodeNetworkConfigurationPolicy resource.
	Name string `json:"name"`
	// Interface is the primary interface the policy creates, typically a bridge.
	Interface nmstate.Interface `json:"interface"`
	// NodeSelector optionally pins the policy to a single node by hostname.
	// When empty the policy targets all worker nodes.
	NodeSelector string `json:"nodeSelector,omitempty"`
	// WorkerPods lists one helper pod per targeted node, used to read node
	// state (MTU backup) and to scope per-node waits.
	WorkerPods []remote.NodePod `json:"workerPods,omitempty"`
	// Teardown controls whether Release reverts and deletes the policy.
	// Defaults to true.
	Teardown *bool `json:"teardown,omitempty"`
	// MTU optionally overrides the MTU of the managed ports.
	MTU int `json:"mtu,omitempty"`
	// Ports are the underlying interfaces managed (and backed up) by the policy.
	Ports []string `json:"ports,omitempty"`
	// IPv4Enable enables IPv4 on the primary interface.
	IPv4Enable bool `json:"ipv4Enable,omitempty"`
	// IPv4DHCP enables DHCP on the primary interface.
	IPv4DHCP bool `json:"ipv4Dhcp,omitempty"`
	// IPv4Addresses optionally lists static addresses for the primary interface.
	IPv4Addresses []nmstate.IPv4Address `json:"ipv4Addresses,omitempty"`
	// IPv6Enable enables IPv6 on the primary interface.
	IPv6Enable bool `json:"ipv6Enable,omitempty"`
	// NodeActiveNICs lists pre-existing physical NICs which must never be
	// deleted on teardown.
	NodeActiveNICs []string `json:"nodeActiveNics,omitempty"`
}

// Policy manages one NodeNetworkConfigurationPolicy instance. A Policy is not
// safe for concurrent use.
type Policy struct {
	spec     Spec
	config   *Config
	client   client.Client
	executor remote.Executor
	res      *resource.Resource

	nodeSelector map[string]string
	workerPods   []remote.NodePod
	teardown     bool

	primary      nmstate.Interface
	desiredState nmstate.DesiredState
	// ifaces accumulates every interface ever pushed, it scopes the cleanup.
	ifaces []nmstate.Interface

	ipv4Enable bool
	ipv4DHCP   bool
	mtuBackup  map[string]int
	// ipv4Backup maps node name to port name to the pre-change DHCP snapshot.
	ipv4Backup map[string]map[string]nmstate.IPv4Backup

	phase Phase
}

// New creates a Policy from spec. A nil config uses the defaults. The
// executor may be nil when no MTU override is requested.
func New(c client.Client, executor remote.Executor, spec Spec, config *Config) (*Policy, error) {
	v := new(util.Validator)
	v.MustNotBeEmpty("spec.name", spec.Name)
	v.MustNotBeEmpty("spec.interface.name", spec.Interface.Name)
	if spec.MTU > 0 {
		v.MustNotBeEmpty("spec.ports", spec.Ports)
	}
	if v.Error != nil {
		return nil, v.Error
	}
	if config == nil {
		config = DefaultConfig()
	} else if err := validate(config); err != nil {
		return nil, err
	}

	p := &Policy{
		spec:       spec,
		config:     config,
		client:     c,
		executor:   executor,
		res:        resource.New(c, nmstate.PolicyGVK(), spec.Name, ""),
		workerPods: spec.WorkerPods,
		teardown:   spec.Teardown == nil || *spec.Teardown,
		primary:    spec.Interface,
		ipv4Enable: spec.IPv4Enable,
		ipv4DHCP:   spec.IPv4DHCP,
		mtuBackup:  make(map[string]int),
		ipv4Backup: make(map[string]map[string]nmstate.IPv4Backup),
		phase:      PhaseBuilt,
	}
	p.desiredState = nmstate.DesiredState{Interfaces: []nmstate.Interface{}}
	if spec.NodeSelector != "" {
		p.nodeSelector = map[string]string{nmstate.HostnameLabel: spec.NodeSelector}
		for _, pod := range spec.WorkerPods {
			if pod.NodeName == spec.NodeSelector {
				p.workerPods = []remote.NodePod{pod}
				break
			}
		}
	} else {
		p.nodeSelector = map[string]string{nmstate.WorkerRoleLabel: ""}
	}
	return p, nil
}

// Name returns the name of the backing resource.
func (p *Policy) Name() string {
	return p.spec.Name
}

// Phase returns the current lifecycle phase.
func (p *Policy) Phase() Phase {
	return p.phase
}

// DesiredState returns the desired state document as currently assembled.
func (p *Policy) DesiredState() nmstate.DesiredState {
	return p.desiredState
}

// Acquire applies the policy and blocks until the NMState handler reports it
// successfully configured and every targeted node lists the created interface
// as up. Any failure after the first write triggers a best effort cleanup
// before the original error is returned, so partially applied state is not
// abandoned.
func (p *Policy) Acquire(ctx context.Context) error {
	if p.ipv4DHCP {
		if err := p.backupIPv4State(ctx); err != nil {
			return err
		}
	}
	if p.spec.MTU > 0 {
		if err := p.backupMTU(ctx); err != nil {
			return err
		}
	}

	if err := p.acquire(ctx); err != nil {
		logger.Error(err, "failed to acquire policy, attempting cleanup", "policy", p.Name())
		if cleanupErr := p.CleanUp(ctx); cleanupErr != nil {
			logger.Error(cleanupErr, "best effort cleanup after failed acquire reported errors", "policy", p.Name())
		}
		return err
	}
	return nil
}

func (p *Policy) acquire(ctx context.Context) error {
	if err := p.Apply(ctx); err != nil {
		return err
	}
	if err := p.WaitForStatusSuccess(ctx); err != nil {
		return err
	}
	return p.confirmInterfacesUp(ctx)
}

// Release reverts and deletes the policy unless teardown was disabled, in
// which case the policy is left in place for inspection.
func (p *Policy) Release(ctx context.Context) error {
	if !p.teardown {
		logger.Info("teardown disabled, leaving policy in place", "policy", p.Name())
		return nil
	}
	return p.CleanUp(ctx)
}

// ReconfigureDHCP toggles DHCP on the primary interface and immediately
// re-applies the policy. Enabling DHCP snapshots the current per-node DHCP
// state first so that teardown can restore it.
func (p *Policy) ReconfigureDHCP(ctx context.Context, enabled bool) error {
	if enabled == p.ipv4DHCP {
		return nil
	}
	p.phase = PhaseReconfiguringDHCP
	p.ipv4DHCP = enabled
	if enabled {
		if err := p.backupIPv4State(ctx); err != nil {
			return err
		}
		// DHCP is only meaningful with IPv4 enabled, the re-apply below
		// rewrites the primary interface accordingly.
		p.ipv4Enable = true
		p.primary.IPv4 = &nmstate.IPv4{Enabled: true, DHCP: true}
	}
	p.SetInterface(p.primary)
	return p.Apply(ctx)
}

func (p *Policy) backupMTU(ctx context.Context) error {
	for _, pod := range p.workerPods {
		for _, port := range p.spec.Ports {
			mtu, err := remote.ReadMTU(ctx, p.executor, pod, port)
			if err != nil {
				return policyerrors.WrapError(err, policyerrors.ErrBackupState,
					"failed to back up MTU of port "+port+" on node "+pod.NodeName)
			}
			logger.Info("backed up MTU", "node", pod.NodeName, "port", port, "mtu", mtu)
			p.mtuBackup[port] = mtu
		}
	}
	return nil
}

// backupIPv4State snapshots the {dhcp, enabled} flags of every managed port
// on every targeted node. It runs before any DHCP enabling change is applied.
func (p *Policy) backupIPv4State(ctx context.Context) error {
	for _, pod := range p.workerPods {
		state := nodestate.New(p.client, pod.NodeName)
		snapshot, err := state.SnapshotIPv4(ctx, p.spec.Ports)
		if err != nil {
			return policyerrors.WrapError(err, policyerrors.ErrBackupState,
				"failed to back up IPv4 state of node "+pod.NodeName)
		}
		p.ipv4Backup[pod.NodeName] = snapshot
	}
	return nil
}
