// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package olm wraps the Operator Lifecycle Manager resources used to install
// the NMState operator in test clusters.
package olm

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/nmstate-tools/nncpkit/internal/resource"
)

var logger = log.Log.WithName("olm")

// CatalogSourceGVK identifies the OLM CatalogSource custom resource.
func CatalogSourceGVK() schema.GroupVersionKind {
	return schema.GroupVersionKind{Group: "operators.coreos.com", Version: "v1alpha1", Kind: "CatalogSource"}
}

// CatalogSourceConfig declares a CatalogSource.
type CatalogSourceConfig struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	SourceType  string `json:"sourceType,omitempty"`
	Image       string `json:"image,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	// Teardown controls whether Release deletes the resource. Defaults to true.
	Teardown *bool `json:"teardown,omitempty"`
}

// CatalogSource manages one CatalogSource instance.
type CatalogSource struct {
	config   CatalogSourceConfig
	res      *resource.Resource
	teardown bool
}

// New creates a CatalogSource handle from config.
func New(c client.Client, config CatalogSourceConfig) *CatalogSource {
	return &CatalogSource{
		config:   config,
		res:      resource.New(c, CatalogSourceGVK(), config.Name, config.Namespace),
		teardown: config.Teardown == nil || *config.Teardown,
	}
}

// BuildManifest assembles the CatalogSource document.
func (s *CatalogSource) BuildManifest() *unstructured.Unstructured {
	obj := s.res.BaseManifest()
	spec := map[string]interface{}{
		"sourceType":  s.config.SourceType,
		"image":       s.config.Image,
		"displayName": s.config.DisplayName,
		"publisher":   s.config.Publisher,
	}
	_ = unstructured.SetNestedMap(obj.Object, spec, "spec")
	return obj
}

// Acquire creates the resource in the cluster.
func (s *CatalogSource) Acquire(ctx context.Context) error {
	return s.res.Create(ctx, s.BuildManifest())
}

// Release deletes the resource unless teardown was disabled.
func (s *CatalogSource) Release(ctx context.Context) error {
	if !s.teardown {
		logger.Info("teardown disabled, leaving catalog source in place", "name", s.config.Name, "namespace", s.config.Namespace)
		return nil
	}
	return s.res.Delete(ctx)
}
