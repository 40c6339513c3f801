// Package wol builds Wake-on-LAN magic packets and sends them to a broadcast
// address on the local segment.
package wol

import (
	"context"
	"net"
	"strconv"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
)

// Target overrides the destination of a magic packet. Zero values select the
// sender defaults.
type Target struct {
	Broadcast string
	Port      int
}

// Result confirms what was actually handed to the network stack
type Result struct {
	MAC       string `json:"mac"`
	Broadcast string `json:"broadcast"`
	Port      int    `json:"port"`
}

// Sender transmits magic packets over UDP
type Sender struct {
	broadcast string
	port      int
	dialer    net.Dialer
}

// NewSender creates a sender with the given defaults. Empty or zero
// arguments fall back to 255.255.255.255:9.
func NewSender(defaultBroadcast string, defaultPort int) *Sender {
	if defaultBroadcast == "" {
		defaultBroadcast = DefaultBroadcast
	}
	if defaultPort == 0 {
		defaultPort = DefaultPort
	}
	return &Sender{broadcast: defaultBroadcast, port: defaultPort}
}

// ValidateTarget checks override values before anything is sent
func ValidateTarget(t Target) error {
	if t.Broadcast != "" && net.ParseIP(t.Broadcast) == nil {
		return apperr.Validation("invalid broadcast address %q", t.Broadcast)
	}
	if t.Port != 0 && (t.Port < 1 || t.Port > 65535) {
		return apperr.Validation("invalid port %d", t.Port)
	}
	return nil
}

// Wake sends one magic packet for mac. Success means the datagram was
// accepted by the OS; delivery is not confirmed.
func (s *Sender) Wake(ctx context.Context, mac string, t Target) (Result, error) {
	hw, err := ParseMAC(mac)
	if err != nil {
		return Result{}, err
	}
	if err := ValidateTarget(t); err != nil {
		return Result{}, err
	}

	res := Result{MAC: hw.String(), Broadcast: s.broadcast, Port: s.port}
	if t.Broadcast != "" {
		res.Broadcast = t.Broadcast
	}
	if t.Port != 0 {
		res.Port = t.Port
	}

	addr := net.JoinHostPort(res.Broadcast, strconv.Itoa(res.Port))
	conn, err := s.dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindTransport, err, "failed to open socket to %s", addr)
	}
	defer conn.Close()

	n, err := conn.Write(BuildPacket(hw))
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindTransport, err, "failed to send magic packet to %s", addr)
	}
	if n != PacketSize {
		return Result{}, apperr.Wrap(apperr.KindTransport, nil, "short write to %s: %d of %d bytes", addr, n, PacketSize)
	}

	logger.Log.Infof("Magic packet sent to %s via %s", res.MAC, addr)
	return res, nil
}
