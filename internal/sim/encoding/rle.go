package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a sequence of per-voxel codes into base64(varint pairs).
// The pairs are (code, run_len) repeated.
func EncodeRLE(codes []byte) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(codes) {
		c := codes[i]
		run := 1
		for j := i + 1; j < len(codes) && codes[j] == c; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(c))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. limit bounds the decoded length (0 = none)
// so a corrupt run cannot allocate without bound.
func DecodeRLE(b64 string, limit int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []byte
	for i := 0; i < len(raw); {
		c, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if c > 0xFF {
			return nil, fmt.Errorf("code too large: %d", c)
		}
		if limit > 0 && uint64(len(out))+run > uint64(limit) {
			return nil, fmt.Errorf("run exceeds limit %d", limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, byte(c))
		}
	}
	return out, nil
}

// EncodeOccupancy packs a filled mask as 0/1 codes.
func EncodeOccupancy(filled []bool) string {
	codes := make([]byte, len(filled))
	for i, f := range filled {
		if f {
			codes[i] = 1
		}
	}
	return EncodeRLE(codes)
}

func DecodeOccupancy(b64 string, n int) ([]bool, error) {
	codes, err := DecodeRLE(b64, n)
	if err != nil {
		return nil, err
	}
	if len(codes) != n {
		return nil, fmt.Errorf("occupancy length mismatch: got %d want %d", len(codes), n)
	}
	out := make([]bool, n)
	for i, c := range codes {
		out[i] = c != 0
	}
	return out, nil
}
