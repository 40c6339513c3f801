package wol

import "net"

const (
	syncLength  = 6
	macRepeats  = 16
	PacketSize  = syncLength + macRepeats*6
	DefaultPort = 9

	DefaultBroadcast = "255.255.255.255"
)

// BuildPacket returns the magic packet for hw: six 0xFF bytes followed by
// the address repeated sixteen times.
func BuildPacket(hw net.HardwareAddr) []byte {
	packet := make([]byte, 0, PacketSize)
	for i := 0; i < syncLength; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < macRepeats; i++ {
		packet = append(packet, hw...)
	}
	return packet
}
