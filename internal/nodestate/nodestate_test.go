// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package nodestate

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/nmstate-tools/nncpkit/api/nmstate"
	"github.com/nmstate-tools/nncpkit/internal/test"
	"github.com/nmstate-tools/nncpkit/internal/util"
)

const (
	testNode     = "worker-0"
	testInterval = 5 * time.Millisecond
	testTimeout  = 2 * time.Second
)

func TestInterfaces(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(), test.GenerateNodeNetworkState(testNode,
		nmstate.Interface{Name: "eth1", Type: "ethernet", State: nmstate.InterfaceStateUp, MTU: 1500},
		nmstate.Interface{Name: "br-test", Type: "linux-bridge", State: nmstate.InterfaceStateDown},
	))

	interfaces, err := New(c, testNode).Interfaces(context.Background())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(interfaces).To(HaveLen(2))
	g.Expect(interfaces[0].Name).To(Equal("eth1"))
	g.Expect(interfaces[0].MTU).To(Equal(1500))
	g.Expect(interfaces[1].State).To(Equal(nmstate.InterfaceStateDown))
}

func TestInterfacesWithoutReportedState(t *testing.T) {
	g := NewWithT(t)
	bare := &unstructured.Unstructured{}
	bare.SetGroupVersionKind(nmstate.NodeNetworkStateGVK())
	bare.SetName(testNode)
	c := test.NewFakeClient(test.Scheme(), bare)

	interfaces, err := New(c, testNode).Interfaces(context.Background())
	g.Expect(err).ToNot(HaveOccurred(), "a NodeNetworkState without a currentState should not be an error")
	g.Expect(interfaces).To(BeEmpty())
}

func TestLookup(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(), test.GenerateNodeNetworkState(testNode,
		nmstate.Interface{Name: "eth1", State: nmstate.InterfaceStateUp},
	))
	state := New(c, testNode)

	iface, err := state.Lookup(context.Background(), "eth1")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(iface).ToNot(BeNil())
	g.Expect(iface.State).To(Equal(nmstate.InterfaceStateUp))

	missing, err := state.Lookup(context.Background(), "eth9")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(missing).To(BeNil(), "an interface the node does not list should yield nil, not an error")
}

func TestSnapshotIPv4(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(), test.GenerateNodeNetworkState(testNode,
		nmstate.Interface{Name: "eth1", State: nmstate.InterfaceStateUp, IPv4: &nmstate.IPv4{Enabled: true, DHCP: true}},
		nmstate.Interface{Name: "eth2", State: nmstate.InterfaceStateUp},
		nmstate.Interface{Name: "br-test", State: nmstate.InterfaceStateUp, IPv4: &nmstate.IPv4{Enabled: true}},
	))

	snapshot, err := New(c, testNode).SnapshotIPv4(context.Background(), []string{"eth1", "eth2"})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(snapshot).To(HaveLen(1), "ports without IPv4 configuration and unlisted interfaces should be skipped")
	g.Expect(snapshot["eth1"]).To(Equal(nmstate.IPv4Backup{DHCP: true, Enabled: true}))
}

func TestWaitUntilUpObservesFlip(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(), test.GenerateNodeNetworkState(testNode,
		nmstate.Interface{Name: "br-test", State: nmstate.InterfaceStateDown},
	))
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = test.UpdateNodeNetworkState(context.Background(), c, testNode,
			nmstate.Interface{Name: "br-test", State: nmstate.InterfaceStateUp})
	}()

	err := New(c, testNode).WaitUntilUp(context.Background(), "br-test", testInterval, testTimeout)
	g.Expect(err).ToNot(HaveOccurred())
}

func TestWaitUntilUpToleratesMissingNodeState(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme())
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = c.Create(context.Background(), test.GenerateNodeNetworkState(testNode,
			nmstate.Interface{Name: "br-test", State: nmstate.InterfaceStateUp}))
	}()

	err := New(c, testNode).WaitUntilUp(context.Background(), "br-test", testInterval, testTimeout)
	g.Expect(err).ToNot(HaveOccurred(), "a NodeNetworkState that appears late should not fail the wait")
}

func TestWaitUntilUpTimesOut(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(), test.GenerateNodeNetworkState(testNode,
		nmstate.Interface{Name: "br-test", State: nmstate.InterfaceStateDown},
	))

	err := New(c, testNode).WaitUntilUp(context.Background(), "br-test", testInterval, 30*time.Millisecond)
	g.Expect(errors.Is(err, util.ErrPollTimeout)).To(BeTrue())
}

func TestWaitUntilDeletedObservesRemoval(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(), test.GenerateNodeNetworkState(testNode,
		nmstate.Interface{Name: "br-test", State: nmstate.InterfaceStateUp},
		nmstate.Interface{Name: "eth1", State: nmstate.InterfaceStateUp},
	))
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = test.UpdateNodeNetworkState(context.Background(), c, testNode,
			nmstate.Interface{Name: "eth1", State: nmstate.InterfaceStateUp})
	}()

	err := New(c, testNode).WaitUntilDeleted(context.Background(), "br-test", testInterval, testTimeout)
	g.Expect(err).ToNot(HaveOccurred())
}

func TestWaitUntilDeletedMissingStateCountsAsDeleted(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme())
	err := New(c, testNode).WaitUntilDeleted(context.Background(), "br-test", testInterval, testTimeout)
	g.Expect(err).ToNot(HaveOccurred(), "a node without a NodeNetworkState cannot list the interface")
}

func TestWaitUntilDeletedTimesOut(t *testing.T) {
	g := NewWithT(t)
	c := test.NewFakeClient(test.Scheme(), test.GenerateNodeNetworkState(testNode,
		nmstate.Interface{Name: "br-test", State: nmstate.InterfaceStateUp},
	))

	err := New(c, testNode).WaitUntilDeleted(context.Background(), "br-test", testInterval, 30*time.Millisecond)
	g.Expect(errors.Is(err, util.ErrPollTimeout)).To(BeTrue())
}
