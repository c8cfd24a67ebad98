package crypto

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ChecksumAddress renders a 20-byte address as an EIP-55 checksummed hex
// string like 0xAbCd... The limit-order API rejects payloads whose maker
// address fails the checksum, so all outbound addresses go through here.
func ChecksumAddress(addr20 []byte) string {
	hexaddr := hex.EncodeToString(addr20) // lower
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(hexaddr))
	hash := h.Sum(nil)

	out := make([]byte, 2+len(hexaddr))
	copy(out, []byte("0x"))
	for i, c := range []byte(hexaddr) {
		if c >= '0' && c <= '9' {
			out[2+i] = c
			continue
		}
		// each hex char maps to 4 bits; i>>1 picks the byte, even/odd the nibble
		nibble := hash[i>>1]
		if i%2 == 0 {
			nibble = (nibble >> 4) & 0x0f
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[2+i] = byte(strings.ToUpper(string(c))[0])
		} else {
			out[2+i] = c
		}
	}
	return string(out)
}
