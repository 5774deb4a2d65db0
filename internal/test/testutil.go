// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package test contains helpers shared by the package level tests: a scheme
// that recognizes the managed custom resources as unstructured types, a fake
// client constructor and generators for NMState documents.
package test

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/nmstate-tools/nncpkit/api/nmstate"
)

// Scheme returns a runtime scheme that maps the NMState custom resources, and
// any extra kinds the caller passes, onto unstructured objects. No CRD Go
// types exist for these resources, registering them as unstructured is what
// lets the fake client serve them.
func Scheme(extra ...schema.GroupVersionKind) *runtime.Scheme {
	s := runtime.NewScheme()
	gvks := append([]schema.GroupVersionKind{nmstate.PolicyGVK(), nmstate.NodeNetworkStateGVK()}, extra...)
	for _, gvk := range gvks {
		s.AddKnownTypeWithName(gvk, &unstructured.Unstructured{})
		s.AddKnownTypeWithName(gvk.GroupVersion().WithKind(gvk.Kind+"List"), &unstructured.UnstructuredList{})
		metav1.AddToGroupVersion(s, gvk.GroupVersion())
	}
	return s
}

// NewFakeClient creates a fake client backed by scheme and seeded with objs.
func NewFakeClient(scheme *runtime.Scheme, objs ...client.Object) client.Client {
	return fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
}

// GenerateNodeNetworkState generates the NodeNetworkState document of a node
// reporting the given interfaces under status.currentState.
func GenerateNodeNetworkState(nodeName string, interfaces ...nmstate.Interface) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(nmstate.NodeNetworkStateGVK())
	obj.SetName(nodeName)
	entries := make([]interface{}, 0, len(interfaces))
	for _, iface := range interfaces {
		content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&iface)
		if err != nil {
			panic(fmt.Sprintf("failed to convert interface %s: %v", iface.Name, err))
		}
		entries = append(entries, content)
	}
	if err := unstructured.SetNestedSlice(obj.Object, entries, "status", "currentState", "interfaces"); err != nil {
		panic(fmt.Sprintf("failed to set interfaces of node %s: %v", nodeName, err))
	}
	return obj
}

// UpdateNodeNetworkState replaces the reported interface list of an existing
// NodeNetworkState.
func UpdateNodeNetworkState(ctx context.Context, c client.Client, nodeName string, interfaces ...nmstate.Interface) error {
	current := &unstructured.Unstructured{}
	current.SetGroupVersionKind(nmstate.NodeNetworkStateGVK())
	if err := c.Get(ctx, client.ObjectKey{Name: nodeName}, current); err != nil {
		return err
	}
	obj := GenerateNodeNetworkState(nodeName, interfaces...)
	obj.SetResourceVersion(current.GetResourceVersion())
	return c.Update(ctx, obj)
}

// SetPolicyCondition stamps a single Available condition with the given
// reason onto the named policy.
func SetPolicyCondition(ctx context.Context, c client.Client, name string, reason nmstate.ConditionReason) error {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(nmstate.PolicyGVK())
	if err := c.Get(ctx, client.ObjectKey{Name: name}, obj); err != nil {
		return err
	}
	condition := map[string]interface{}{
		"type":   string(nmstate.ConditionAvailable),
		"status": "True",
		"reason": string(reason),
	}
	if err := unstructured.SetNestedSlice(obj.Object, []interface{}{condition}, "status", "conditions"); err != nil {
		return err
	}
	return c.Update(ctx, obj)
}

// KeepPolicyConditionSet re-stamps the Available condition with the given
// reason every interval until ctx is cancelled. It runs in a goroutine next
// to code under test that both rewrites the policy (wiping its status) and
// waits on that status, mimicking a reconciler that keeps the status current.
func KeepPolicyConditionSet(ctx context.Context, c client.Client, name string, reason nmstate.ConditionReason, interval time.Duration) {
	for {
		// Errors are expected while the policy does not exist yet, or when a
		// concurrent write wins, the next round simply tries again.
		_ = SetPolicyCondition(ctx, c, name, reason)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
