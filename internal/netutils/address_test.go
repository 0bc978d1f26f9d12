package netutils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSpecial(t *testing.T) {
	special := []Address{
		0x00000000, // 0.0.0.0
		0x0A010101, // 10.1.1.1
		0x7F000001, // 127.0.0.1
		0x64400000, // 100.64.0.0
		0x647F0000, // 100.127.0.0
		0xA9FE0001, // 169.254.0.1
		0xAC100001, // 172.16.0.1
		0xAC1F0001, // 172.31.0.1
		0xAC200001, // 172.32.0.1 (quirk: included, not RFC-correct)
		0xC0000000, // 192.0.0.0
		0xC0000200, // 192.0.2.0
		0xC0586300, // 192.88.99.0
		0xC0A80001, // 192.168.0.1
		0xC6120000, // 198.18.0.0
		0xC6336400, // 198.51.100.0
		0xCB007100, // 203.0.113.0
		0xE0000001, // 224.0.0.1
		0xFF000000, // 255.0.0.0
	}
	for _, a := range special {
		assert.True(t, IsSpecial(a), "expected %s to be special", a)
	}
}

func TestIsSpecialFalseForGlobal(t *testing.T) {
	global := []Address{
		0x01020304, // 1.2.3.4
		0x08080808, // 8.8.8.8
		0xAC0F0000, // 172.15.0.0 (just below the quirked range)
		0xDFFFFFFF, // 223.255.255.255 (just below multicast cutoff)
	}
	for _, a := range global {
		assert.False(t, IsSpecial(a), "expected %s to not be special", a)
	}
}

func TestAddressFromIPRoundtrip(t *testing.T) {
	ip := net.ParseIP("1.2.3.4")
	a, ok := AddressFromIP(ip)
	assert.True(t, ok)
	assert.Equal(t, "1.2.3.4", a.String())
	assert.True(t, a.IP().Equal(ip))
}

func TestAddressFromIPRejectsV6(t *testing.T) {
	_, ok := AddressFromIP(net.ParseIP("::1"))
	assert.False(t, ok)
}
