// Package wiretest builds reference Ethernet/IPv4/IPv6/ICMP frames with
// gopacket, independently of this module's own mbuf/packet/layers code,
// so round-trip and checksum tests can compare this module's byte output
// against a second, independently-implemented serializer instead of
// against itself.
package wiretest

import (
	"net"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/yanet-platform/corepkt/xerror"
)

// DefaultSrcMAC and DefaultDstMAC are the fixed MAC addresses used across
// the fixtures in this package.
var (
	DefaultSrcMAC = xerror.Unwrap(net.ParseMAC("00:00:00:00:00:01"))
	DefaultDstMAC = xerror.Unwrap(net.ParseMAC("00:11:22:33:44:55"))
)

func serialize(opts gopacket.SerializeOptions, l ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, opts, l...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ICMPv4Echo builds an Ethernet+IPv4+ICMPv4 echo frame. isReply selects
// between Echo Request (type 8) and Echo Reply (type 0); ttl is the IPv4
// TTL field.
func ICMPv4Echo(srcMAC, dstMAC net.HardwareAddr, srcIP, dstIP netip.Addr, ttl uint8, isReply bool, id, seq uint16, data []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      ttl,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.IP(srcIP.AsSlice()),
		DstIP:    net.IP(dstIP.AsSlice()),
	}
	typeCode := layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)
	if isReply {
		typeCode = layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0)
	}
	icmp := &layers.ICMPv4{
		TypeCode: typeCode,
		Id:       id,
		Seq:      seq,
	}

	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	return serialize(opts, eth, ip, icmp, gopacket.Payload(data))
}

// ICMPv6Echo builds an Ethernet+IPv6+ICMPv6 echo frame. isReply selects
// between Echo Request (type 128) and Echo Reply (type 129); hopLimit is
// the IPv6 hop-limit field.
func ICMPv6Echo(srcMAC, dstMAC net.HardwareAddr, srcIP, dstIP netip.Addr, hopLimit uint8, isReply bool, id, seq uint16, data []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv6,
	}
	ip := &layers.IPv6{
		Version:    6,
		NextHeader: layers.IPProtocolICMPv6,
		HopLimit:   hopLimit,
		SrcIP:      net.IP(srcIP.AsSlice()),
		DstIP:      net.IP(dstIP.AsSlice()),
	}
	typeCode := layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoRequest, 0)
	if isReply {
		typeCode = layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoReply, 0)
	}
	icmp := &layers.ICMPv6{TypeCode: typeCode}
	icmp.SetNetworkLayerForChecksum(ip)
	echo := &layers.ICMPv6Echo{Identifier: id, SeqNumber: seq}

	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	return serialize(opts, eth, ip, icmp, echo, gopacket.Payload(data))
}

// Parse decodes frame as an Ethernet-rooted packet for assertions against
// individual layers.
func Parse(frame []byte) gopacket.Packet {
	return gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
}
