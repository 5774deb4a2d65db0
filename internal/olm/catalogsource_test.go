// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package olm

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/ptr"

	"github.com/nmstate-tools/nncpkit/internal/test"
)

func testCatalogSourceConfig() CatalogSourceConfig {
	return CatalogSourceConfig{
		Name:        "nmstate-catalog",
		Namespace:   "openshift-marketplace",
		SourceType:  "grpc",
		Image:       "quay.io/nmstate/catalog:latest",
		DisplayName: "NMState Catalog",
		Publisher:   "nmstate",
	}
}

func TestBuildManifest(t *testing.T) {
	g := NewWithT(t)
	source := New(nil, testCatalogSourceConfig())
	obj := source.BuildManifest()

	g.Expect(obj.GroupVersionKind()).To(Equal(CatalogSourceGVK()))
	g.Expect(obj.GetName()).To(Equal("nmstate-catalog"))
	g.Expect(obj.GetNamespace()).To(Equal("openshift-marketplace"))

	sourceType, _, err := unstructured.NestedString(obj.Object, "spec", "sourceType")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(sourceType).To(Equal("grpc"))
	image, _, err := unstructured.NestedString(obj.Object, "spec", "image")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(image).To(Equal("quay.io/nmstate/catalog:latest"))
}

func TestAcquireAndRelease(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(CatalogSourceGVK()))
	source := New(c, testCatalogSourceConfig())

	g.Expect(source.Acquire(context.Background())).To(Succeed())
	fetched, err := source.res.Get(context.Background())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(fetched.GetName()).To(Equal("nmstate-catalog"))

	g.Expect(source.Release(context.Background())).To(Succeed())
	_, err = source.res.Get(context.Background())
	g.Expect(apierrors.IsNotFound(err)).To(BeTrue())
}

func TestReleaseHonorsDisabledTeardown(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(CatalogSourceGVK()))
	config := testCatalogSourceConfig()
	config.Teardown = ptr.To(false)
	source := New(c, config)

	g.Expect(source.Acquire(context.Background())).To(Succeed())
	g.Expect(source.Release(context.Background())).To(Succeed())
	_, err := source.res.Get(context.Background())
	g.Expect(err).ToNot(HaveOccurred(), "Release with teardown disabled should leave the resource in place")
}
