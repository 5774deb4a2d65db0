// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package resource provides a minimal handle to a cluster or namespace scoped
// custom resource accessed through unstructured objects, so that no CRD
// scheme registration is required by consumers.
package resource

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var logger = log.Log.WithName("resource")

// Resource identifies a single custom resource instance and carries the
// client used to read and write it.
type Resource struct {
	Name      string
	Namespace string
	gvk       schema.GroupVersionKind
	client    client.Client
}

// New creates a handle for the resource identified by gvk and name. Namespace
// is empty for cluster scoped resources.
func New(c client.Client, gvk schema.GroupVersionKind, name, namespace string) *Resource {
	return &Resource{
		Name:      name,
		Namespace: namespace,
		gvk:       gvk,
		client:    c,
	}
}

// BaseManifest returns the apiVersion/kind/metadata skeleton of the resource,
// ready for a spec to be layered on top.
func (r *Resource) BaseManifest() *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(r.gvk)
	obj.SetName(r.Name)
	if r.Namespace != "" {
		obj.SetNamespace(r.Namespace)
	}
	return obj
}

// Get reads back the current instance of the resource, including its status.
func (r *Resource) Get(ctx context.Context) (*unstructured.Unstructured, error) {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(r.gvk)
	key := types.NamespacedName{Name: r.Name, Namespace: r.Namespace}
	if err := r.client.Get(ctx, key, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Create submits obj to the cluster.
func (r *Resource) Create(ctx context.Context, obj *unstructured.Unstructured) error {
	if err := r.client.Create(ctx, obj); err != nil {
		return fmt.Errorf("failed to create %s %s: %w", r.gvk.Kind, r.Name, err)
	}
	logger.Info("created resource", "kind", r.gvk.Kind, "name", r.Name)
	return nil
}

// Update replaces the remote instance with obj, creating it when it does not
// exist yet. The resourceVersion of the current instance is carried over so
// that a stale write surfaces as a conflict error for the caller to retry.
func (r *Resource) Update(ctx context.Context, obj *unstructured.Unstructured) error {
	current, err := r.Get(ctx)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return r.Create(ctx, obj)
		}
		return err
	}
	obj.SetResourceVersion(current.GetResourceVersion())
	return r.client.Update(ctx, obj)
}

// Delete removes the resource. A resource that is already gone is not an error.
func (r *Resource) Delete(ctx context.Context) error {
	obj := r.BaseManifest()
	if err := r.client.Delete(ctx, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete %s %s: %w", r.gvk.Kind, r.Name, err)
	}
	logger.Info("deleted resource", "kind", r.gvk.Kind, "name", r.Name)
	return nil
}
