// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/nmstate-tools/nncpkit/api/nmstate"
)

// SetInterface inserts iface into the desired state list, replacing any
// existing entry with the same name. Interface names are unique within the
// list, last write wins.
func (p *Policy) SetInterface(iface nmstate.Interface) {
	interfaces := make([]nmstate.Interface, 0, len(p.desiredState.Interfaces)+1)
	for _, existing := range p.desiredState.Interfaces {
		if existing.Name != iface.Name {
			interfaces = append(interfaces, existing)
		}
	}
	p.desiredState.Interfaces = append(interfaces, iface)
}

// ReplaceInterface pushes an additional interface through the policy: it is
// merged into the desired state like SetInterface and recorded in the
// historical interface list, so a later teardown reverts it as well. The
// primary interface is kept in sync when it is the one being replaced.
func (p *Policy) ReplaceInterface(iface nmstate.Interface) {
	if iface.Name == p.primary.Name {
		p.primary = iface
	}
	p.SetInterface(iface)
	p.recordInterface(iface)
}

// BuildManifest assembles the full policy document: it layers the IPv4 and
// IPv6 configuration onto the primary interface, merges it into the desired
// state list, records it in the historical interface list and attaches the
// node selector.
func (p *Policy) BuildManifest() (*unstructured.Unstructured, error) {
	iface := p.primary
	iface.IPv4 = &nmstate.IPv4{Enabled: p.ipv4Enable, DHCP: p.ipv4DHCP}
	if len(p.spec.IPv4Addresses) > 0 {
		iface.IPv4.Address = p.spec.IPv4Addresses
	}
	iface.IPv6 = &nmstate.IPv6{Enabled: p.spec.IPv6Enable}
	p.primary = iface
	p.SetInterface(iface)
	p.recordInterface(iface)

	obj := p.res.BaseManifest()
	spec := nmstate.PolicySpec{
		NodeSelector: p.nodeSelector,
		DesiredState: p.desiredState,
	}
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&spec)
	if err != nil {
		return nil, fmt.Errorf("failed to convert policy spec of %s: %w", p.Name(), err)
	}
	if err := unstructured.SetNestedMap(obj.Object, content, "spec"); err != nil {
		return nil, fmt.Errorf("failed to set policy spec of %s: %w", p.Name(), err)
	}
	return obj, nil
}

// recordInterface keeps the historical interface list in sync with the
// desired state. Entries are never pruned, they scope the teardown, but an
// entry is replaced when an interface of the same name is pushed again.
func (p *Policy) recordInterface(iface nmstate.Interface) {
	for i := range p.ifaces {
		if p.ifaces[i].Name == iface.Name {
			p.ifaces[i] = iface
			return
		}
	}
	p.ifaces = append(p.ifaces, iface)
}
