package storage

import (
	"encoding/binary"
	"fmt"
)

// keys: rec:<run>:<8-byte-seq>, ord:<run>:<8-byte-slice>, run:<run>
func recordKey(runID string, seq uint64) []byte {
	return append([]byte("rec:"+runID+":"), seqKey(seq)...)
}

func recordPrefix(runID string) []byte {
	return []byte("rec:" + runID + ":")
}

func orderKey(runID string, sliceIndex int) []byte {
	return append([]byte("ord:"+runID+":"), seqKey(uint64(sliceIndex))...)
}

func orderPrefix(runID string) []byte {
	return []byte("ord:" + runID + ":")
}

func runKey(runID string) []byte {
	return []byte("run:" + runID)
}

func seqKey(n uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], n)
	return k[:]
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix, for iterator bounds.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	panic(fmt.Sprintf("no upper bound for prefix %q", prefix))
}
