// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package nmstate provides typed access to the documents exchanged with the
// NMState reconciler: the desiredState pushed via a
// NodeNetworkConfigurationPolicy and the currentState reported back on a
// NodeNetworkState. The enumerations defined here are shared between the
// policy builder, the status watcher and test assertions so that state and
// condition comparisons are never done on bare strings.
package nmstate

import "k8s.io/apimachinery/pkg/runtime/schema"

// Group is the API group of the NMState custom resources.
const Group = "nmstate.io"

// Node selector label keys understood by the NMState reconciler.
const (
	// HostnameLabel selects a single node by its hostname.
	HostnameLabel = "kubernetes.io/hostname"
	// WorkerRoleLabel selects all worker nodes.
	WorkerRoleLabel = "node-role.kubernetes.io/worker"
)

// InterfaceState is the declared state of an interface in a desiredState
// document or the observed state of an interface in a currentState document.
type InterfaceState string

const (
	// InterfaceStateUp declares/reports an interface as up.
	InterfaceStateUp InterfaceState = "up"
	// InterfaceStateDown declares/reports an interface as down.
	InterfaceStateDown InterfaceState = "down"
	// InterfaceStateAbsent requests removal of an interface.
	InterfaceStateAbsent InterfaceState = "absent"
)

// ConditionType is the type of a status condition reported on a policy.
type ConditionType string

const (
	ConditionFailing     ConditionType = "Failing"
	ConditionAvailable   ConditionType = "Available"
	ConditionProgressing ConditionType = "Progressing"
	ConditionMatching    ConditionType = "Matching"
)

// ConditionReason is the reason attached to a status condition. Only the two
// terminal reasons are interpreted by this module.
type ConditionReason string

const (
	// ReasonSuccessfullyConfigured terminates a status wait successfully.
	ReasonSuccessfullyConfigured ConditionReason = "SuccessfullyConfigured"
	// ReasonFailedToConfigure terminates a status wait with a configuration failure.
	ReasonFailedToConfigure ConditionReason = "FailedToConfigure"
)

// Condition is a single entry of status.conditions.
type Condition struct {
	Type    ConditionType   `json:"type"`
	Status  string          `json:"status,omitempty"`
	Reason  ConditionReason `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
}

// IPv4Address is a static address entry. The json names are dictated by the
// NMState schema.
type IPv4Address struct {
	IP           string `json:"ip"`
	PrefixLength int    `json:"prefix-length"`
}

// IPv4 is the IPv4 protocol configuration of an interface.
type IPv4 struct {
	Enabled bool          `json:"enabled"`
	DHCP    bool          `json:"dhcp"`
	Address []IPv4Address `json:"address,omitempty"`
}

// IPv6 is the IPv6 protocol configuration of an interface. Only the enabled
// flag is managed by this module.
type IPv6 struct {
	Enabled bool `json:"enabled"`
}

// Interface is one entry of a desiredState (or observed currentState)
// interface list.
type Interface struct {
	Name  string         `json:"name"`
	Type  string         `json:"type,omitempty"`
	State InterfaceState `json:"state,omitempty"`
	MTU   int            `json:"mtu,omitempty"`
	IPv4  *IPv4          `json:"ipv4,omitempty"`
	IPv6  *IPv6          `json:"ipv6,omitempty"`
}

// DesiredState is the declarative network configuration document submitted to
// the NMState reconciler.
type DesiredState struct {
	Interfaces []Interface `json:"interfaces"`
}

// PolicySpec is the spec of a NodeNetworkConfigurationPolicy.
type PolicySpec struct {
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`
	DesiredState DesiredState      `json:"desiredState"`
}

// IPv4Backup is the per-port snapshot of the DHCP related IPv4 flags taken
// before a DHCP enabling change, and restored on teardown.
type IPv4Backup struct {
	DHCP    bool `json:"dhcp"`
	Enabled bool `json:"enabled"`
}

// AsIPv4 converts a backup snapshot into an interface protocol configuration
// suitable for re-injection into a desiredState document.
func (b IPv4Backup) AsIPv4() *IPv4 {
	return &IPv4{Enabled: b.Enabled, DHCP: b.DHCP}
}

// PolicyGVK identifies the NodeNetworkConfigurationPolicy custom resource.
func PolicyGVK() schema.GroupVersionKind {
	return schema.GroupVersionKind{Group: Group, Version: "v1", Kind: "NodeNetworkConfigurationPolicy"}
}

// NodeNetworkStateGVK identifies the NodeNetworkState custom resource.
func NodeNetworkStateGVK() schema.GroupVersionKind {
	return schema.GroupVersionKind{Group: Group, Version: "v1beta1", Kind: "NodeNetworkState"}
}
