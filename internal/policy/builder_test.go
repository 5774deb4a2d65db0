// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"testing"

	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/nmstate-tools/nncpkit/api/nmstate"
)

func manifestInterfaces(g *WithT, obj *unstructured.Unstructured) []map[string]interface{} {
	raw, found, err := unstructured.NestedSlice(obj.Object, "spec", "desiredState", "interfaces")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeTrue(), "the manifest should carry a desiredState interface list")
	entries := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		content, ok := entry.(map[string]interface{})
		g.Expect(ok).To(BeTrue())
		entries = append(entries, content)
	}
	return entries
}

func findManifestInterface(entries []map[string]interface{}, name string) map[string]interface{} {
	for _, entry := range entries {
		if entry["name"] == name {
			return entry
		}
	}
	return nil
}

func TestSetInterfaceLastWriteWins(t *testing.T) {
	g := NewWithT(t)
	p := newTestPolicy(t, nil, nil)

	p.SetInterface(nmstate.Interface{Name: "eth1", State: nmstate.InterfaceStateUp, MTU: 1500})
	p.SetInterface(nmstate.Interface{Name: "eth1", State: nmstate.InterfaceStateUp, MTU: 9000})

	state := p.DesiredState()
	g.Expect(state.Interfaces).To(HaveLen(1), "interface names are unique within the desired state")
	g.Expect(state.Interfaces[0].MTU).To(Equal(9000), "the last write should win")
}

func TestBuildManifestLayersProtocols(t *testing.T) {
	g := NewWithT(t)
	p := newTestPolicy(t, nil, func(s *Spec) {
		s.IPv4Enable = true
		s.IPv4DHCP = true
	})

	obj, err := p.BuildManifest()
	g.Expect(err).ToNot(HaveOccurred())

	entries := manifestInterfaces(g, obj)
	g.Expect(entries).To(HaveLen(1))
	bridge := findManifestInterface(entries, testBridge)
	g.Expect(bridge).ToNot(BeNil())

	ipv4, ok := bridge["ipv4"].(map[string]interface{})
	g.Expect(ok).To(BeTrue())
	g.Expect(ipv4["enabled"]).To(Equal(true))
	g.Expect(ipv4["dhcp"]).To(Equal(true))
	g.Expect(ipv4).ToNot(HaveKey("address"), "no static addresses were configured")

	ipv6, ok := bridge["ipv6"].(map[string]interface{})
	g.Expect(ok).To(BeTrue())
	g.Expect(ipv6["enabled"]).To(Equal(false))

	selector, found, err := unstructured.NestedStringMap(obj.Object, "spec", "nodeSelector")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeTrue())
	g.Expect(selector).To(Equal(map[string]string{nmstate.HostnameLabel: testNode}))
}

func TestBuildManifestIncludesStaticAddresses(t *testing.T) {
	g := NewWithT(t)
	p := newTestPolicy(t, nil, func(s *Spec) {
		s.IPv4Enable = true
		s.IPv4Addresses = []nmstate.IPv4Address{{IP: "10.0.0.5", PrefixLength: 24}}
	})

	obj, err := p.BuildManifest()
	g.Expect(err).ToNot(HaveOccurred())

	bridge := findManifestInterface(manifestInterfaces(g, obj), testBridge)
	g.Expect(bridge).ToNot(BeNil())
	ipv4 := bridge["ipv4"].(map[string]interface{})
	addresses, ok := ipv4["address"].([]interface{})
	g.Expect(ok).To(BeTrue())
	g.Expect(addresses).To(HaveLen(1))
	address := addresses[0].(map[string]interface{})
	g.Expect(address["ip"]).To(Equal("10.0.0.5"))
	g.Expect(address["prefix-length"]).To(Equal(int64(24)), "the NMState schema field name must be kept")
}

func TestBuildManifestTracksProtocolChanges(t *testing.T) {
	g := NewWithT(t)
	p := newTestPolicy(t, nil, nil)

	obj, err := p.BuildManifest()
	g.Expect(err).ToNot(HaveOccurred())
	bridge := findManifestInterface(manifestInterfaces(g, obj), testBridge)
	g.Expect(bridge["ipv4"].(map[string]interface{})["enabled"]).To(Equal(false))

	p.ipv4Enable = true
	p.ipv4DHCP = true
	obj, err = p.BuildManifest()
	g.Expect(err).ToNot(HaveOccurred())
	bridge = findManifestInterface(manifestInterfaces(g, obj), testBridge)
	g.Expect(bridge["ipv4"].(map[string]interface{})["enabled"]).To(Equal(true), "every build should reflect the current protocol flags")
	g.Expect(bridge["ipv4"].(map[string]interface{})["dhcp"]).To(Equal(true))
}

func TestReplaceInterfaceRecordsHistory(t *testing.T) {
	g := NewWithT(t)
	p := newTestPolicy(t, nil, nil)

	p.ReplaceInterface(nmstate.Interface{Name: "eth0", Type: "ethernet", State: nmstate.InterfaceStateUp})
	obj, err := p.BuildManifest()
	g.Expect(err).ToNot(HaveOccurred())

	entries := manifestInterfaces(g, obj)
	g.Expect(entries).To(HaveLen(2))
	g.Expect(findManifestInterface(entries, "eth0")).ToNot(BeNil())
	g.Expect(p.ifaces).To(HaveLen(2), "a replaced interface should be tracked for teardown")
}
