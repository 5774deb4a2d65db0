// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package nodestate observes the network state the NMState handler reports
// per node through the NodeNetworkState custom resource.
package nodestate

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/nmstate-tools/nncpkit/api/nmstate"
	"github.com/nmstate-tools/nncpkit/internal/resource"
	"github.com/nmstate-tools/nncpkit/internal/util"
)

var logger = log.Log.WithName("nodestate")

// NodeNetworkState reads the observed interface list of a single node.
type NodeNetworkState struct {
	NodeName string
	res      *resource.Resource
}

// New creates a reader for the NodeNetworkState of the given node.
func New(c client.Client, nodeName string) *NodeNetworkState {
	return &NodeNetworkState{
		NodeName: nodeName,
		res:      resource.New(c, nmstate.NodeNetworkStateGVK(), nodeName, ""),
	}
}

// Interfaces returns status.currentState.interfaces of the node.
func (n *NodeNetworkState) Interfaces(ctx context.Context) ([]nmstate.Interface, error) {
	obj, err := n.res.Get(ctx)
	if err != nil {
		return nil, err
	}
	raw, found, err := unstructured.NestedSlice(obj.Object, "status", "currentState", "interfaces")
	if err != nil {
		return nil, fmt.Errorf("failed to read currentState interfaces of node %s: %w", n.NodeName, err)
	}
	if !found {
		return nil, nil
	}
	interfaces := make([]nmstate.Interface, 0, len(raw))
	for _, entry := range raw {
		content, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		var iface nmstate.Interface
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(content, &iface); err != nil {
			return nil, fmt.Errorf("failed to decode interface entry of node %s: %w", n.NodeName, err)
		}
		interfaces = append(interfaces, iface)
	}
	return interfaces, nil
}

// Lookup returns the observed interface with the given name, or nil when the
// node does not currently list it.
func (n *NodeNetworkState) Lookup(ctx context.Context, name string) (*nmstate.Interface, error) {
	interfaces, err := n.Interfaces(ctx)
	if err != nil {
		return nil, err
	}
	for i := range interfaces {
		if interfaces[i].Name == name {
			return &interfaces[i], nil
		}
	}
	return nil, nil
}

// SnapshotIPv4 captures the {dhcp, enabled} IPv4 flags of every listed port
// that the node currently reports. Ports the node does not report are absent
// from the returned table.
func (n *NodeNetworkState) SnapshotIPv4(ctx context.Context, ports []string) (map[string]nmstate.IPv4Backup, error) {
	interfaces, err := n.Interfaces(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(ports))
	for _, port := range ports {
		wanted[port] = struct{}{}
	}
	snapshot := make(map[string]nmstate.IPv4Backup)
	for _, iface := range interfaces {
		if _, ok := wanted[iface.Name]; !ok || iface.IPv4 == nil {
			continue
		}
		snapshot[iface.Name] = nmstate.IPv4Backup{DHCP: iface.IPv4.DHCP, Enabled: iface.IPv4.Enabled}
	}
	return snapshot, nil
}

// WaitUntilUp blocks until the node reports the named interface in state up.
// A NodeNetworkState that is not published yet is tolerated and sampled again.
func (n *NodeNetworkState) WaitUntilUp(ctx context.Context, name string, interval, timeout time.Duration) error {
	operation := fmt.Sprintf("interface %s on node %s to be up", name, n.NodeName)
	_, err := util.PollUntil(ctx, operation,
		func(ctx context.Context) (nmstate.InterfaceState, error) {
			iface, err := n.Lookup(ctx, name)
			if err != nil {
				return "", err
			}
			if iface == nil {
				return "", nil
			}
			return iface.State, nil
		},
		func(state nmstate.InterfaceState) bool { return state == nmstate.InterfaceStateUp },
		interval, timeout, apierrors.IsNotFound)
	return err
}

// WaitUntilDeleted blocks until the node no longer lists the named interface.
// A missing NodeNetworkState counts as deleted.
func (n *NodeNetworkState) WaitUntilDeleted(ctx context.Context, name string, interval, timeout time.Duration) error {
	operation := fmt.Sprintf("interface %s on node %s to be removed", name, n.NodeName)
	_, err := util.PollUntil(ctx, operation,
		func(ctx context.Context) (bool, error) {
			iface, err := n.Lookup(ctx, name)
			if err != nil {
				if apierrors.IsNotFound(err) {
					return true, nil
				}
				return false, err
			}
			return iface == nil, nil
		},
		func(gone bool) bool { return gone },
		interval, timeout, nil)
	if err == nil {
		logger.V(4).Info("interface no longer listed on node", "node", n.NodeName, "interface", name)
	}
	return err
}
