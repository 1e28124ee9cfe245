package main

import (
	"fmt"
	"net/netip"

	"github.com/yanet-platform/corepkt/layers/ethernet"
	"github.com/yanet-platform/corepkt/layers/icmp/icmpv4"
	"github.com/yanet-platform/corepkt/layers/ipv4"
	"github.com/yanet-platform/corepkt/mbuf"
	"github.com/yanet-platform/corepkt/packet"
)

// BuildEchoRequest constructs a synthetic Ethernet+IPv4+ICMPv4 Echo
// Request, standing in for a packet the poll-mode driver would otherwise
// have delivered off the wire.
func BuildEchoRequest(pool mbuf.Pool, srcMAC, dstMAC [6]byte, srcIP, dstIP netip.Addr, id, seq uint16, data []byte) (*mbuf.Buffer, error) {
	b, err := mbuf.New(pool)
	if err != nil {
		return nil, fmt.Errorf("echoresponder.BuildEchoRequest: %w", err)
	}

	eth, err := ethernet.Push[*mbuf.Buffer](b)
	if err != nil {
		b.Free()
		return nil, fmt.Errorf("echoresponder.BuildEchoRequest: %w", err)
	}
	if err := eth.SetSrcMAC(srcMAC); err != nil {
		b.Free()
		return nil, err
	}
	if err := eth.SetDstMAC(dstMAC); err != nil {
		b.Free()
		return nil, err
	}

	ip, err := ipv4.Push(eth)
	if err != nil {
		b.Free()
		return nil, fmt.Errorf("echoresponder.BuildEchoRequest: %w", err)
	}
	if err := ip.SetSourceAddr(srcIP); err != nil {
		b.Free()
		return nil, err
	}
	if err := ip.SetDestinationAddr(dstIP); err != nil {
		b.Free()
		return nil, err
	}
	if err := ip.SetTTL(64); err != nil {
		b.Free()
		return nil, err
	}

	req, err := icmpv4.PushEchoRequest(ip)
	if err != nil {
		b.Free()
		return nil, fmt.Errorf("echoresponder.BuildEchoRequest: %w", err)
	}
	if err := req.SetIdentifier(id); err != nil {
		b.Free()
		return nil, err
	}
	if err := req.SetSeqNo(seq); err != nil {
		b.Free()
		return nil, err
	}
	if err := req.SetData(data); err != nil {
		b.Free()
		return nil, err
	}
	if err := req.ReconcileAll(); err != nil {
		b.Free()
		return nil, err
	}

	return b, nil
}

// Respond is the per-packet callback: given a received Ethernet/IPv4/
// ICMPv4 Echo Request, it builds a reply with source and destination
// MAC/address swapped, TTL=255, and the identifier/sequence/data copied
// from the request. On success it returns EmitAndDrop: the reply is
// handed back to transmit, and the request buffer is handed back to be
// freed, rather than freeing it here. Malformed input aborts with the
// request buffer as the single envelope to release.
func Respond(pool mbuf.Pool, in *mbuf.Buffer) packet.Postmark[*mbuf.Buffer] {
	eth, _, err := ethernet.Parse[*mbuf.Buffer](in)
	if err != nil {
		return packet.Abort[*mbuf.Buffer](in)
	}
	ipIn, _, err := ipv4.Parse(eth)
	if err != nil {
		return packet.Abort[*mbuf.Buffer](in)
	}
	req, _, err := icmpv4.ParseEchoRequest(ipIn)
	if err != nil {
		return packet.Abort[*mbuf.Buffer](in)
	}

	id, err := req.Identifier()
	if err != nil {
		return packet.Abort[*mbuf.Buffer](in)
	}
	seq, err := req.SeqNo()
	if err != nil {
		return packet.Abort[*mbuf.Buffer](in)
	}
	data, err := req.Data()
	if err != nil {
		return packet.Abort[*mbuf.Buffer](in)
	}
	srcMAC, _ := eth.SrcMAC()
	dstMAC, _ := eth.DstMAC()
	srcIP, _ := ipIn.SourceAddr()
	dstIP, _ := ipIn.DestinationAddr()

	out, err := BuildEchoReply(pool, dstMAC, srcMAC, dstIP, srcIP, id, seq, data)
	if err != nil {
		return packet.Abort[*mbuf.Buffer](in)
	}
	return packet.EmitAndDrop[*mbuf.Buffer](out, in)
}

// BuildEchoReply pushes an Ethernet/IPv4/ICMPv4 Echo Reply onto a fresh
// buffer from pool.
func BuildEchoReply(pool mbuf.Pool, srcMAC, dstMAC [6]byte, srcIP, dstIP netip.Addr, id, seq uint16, data []byte) (*mbuf.Buffer, error) {
	out, err := mbuf.New(pool)
	if err != nil {
		return nil, fmt.Errorf("echoresponder.BuildEchoReply: %w", err)
	}

	eth, err := ethernet.Push[*mbuf.Buffer](out)
	if err != nil {
		out.Free()
		return nil, err
	}
	if err := eth.SetSrcMAC(srcMAC); err != nil {
		out.Free()
		return nil, err
	}
	if err := eth.SetDstMAC(dstMAC); err != nil {
		out.Free()
		return nil, err
	}

	ip, err := ipv4.Push(eth)
	if err != nil {
		out.Free()
		return nil, err
	}
	if err := ip.SetSourceAddr(srcIP); err != nil {
		out.Free()
		return nil, err
	}
	if err := ip.SetDestinationAddr(dstIP); err != nil {
		out.Free()
		return nil, err
	}
	if err := ip.SetTTL(255); err != nil {
		out.Free()
		return nil, err
	}

	reply, err := icmpv4.PushEchoReply(ip)
	if err != nil {
		out.Free()
		return nil, err
	}
	if err := reply.SetIdentifier(id); err != nil {
		out.Free()
		return nil, err
	}
	if err := reply.SetSeqNo(seq); err != nil {
		out.Free()
		return nil, err
	}
	if err := reply.SetData(data); err != nil {
		out.Free()
		return nil, err
	}
	if err := reply.ReconcileAll(); err != nil {
		out.Free()
		return nil, err
	}

	return out, nil
}
