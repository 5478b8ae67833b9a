package raster

// ICC colour profiles live in JPEG APP2 segments and PNG iCCP chunks.  The
// stdlib codecs ignore both, so the backend extracts the payload at decode
// time and splices it back into the encoded output at save time.

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"io"
)

const iccSegmentPrefix = "ICC_PROFILE\x00"

// Per APP2 segment: 65535 max length field, minus the length bytes, the
// ICC_PROFILE identifier and the sequence/count pair.
const maxICCChunk = 65535 - 2 - len(iccSegmentPrefix) - 2

// jpegICCProfile extracts the concatenated APP2 ICC payload from encoded
// JPEG data, or nil.
func jpegICCProfile(data []byte) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil
	}
	var profile []byte
	i := 2
	for i+2 <= len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		if marker == 0xDA || marker == 0xD9 { // SOS / EOI: entropy data follows
			break
		}
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) { // bare markers
			i += 2
			continue
		}
		if i+4 > len(data) {
			break
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if segLen < 2 || i+2+segLen > len(data) {
			break
		}
		seg := data[i+4 : i+2+segLen]
		if marker == 0xE2 && len(seg) > len(iccSegmentPrefix)+2 &&
			string(seg[:len(iccSegmentPrefix)]) == iccSegmentPrefix {
			profile = append(profile, seg[len(iccSegmentPrefix)+2:]...)
		}
		i += 2 + segLen
	}
	return profile
}

// spliceJPEGICC inserts APP2 ICC segments into encoded JPEG data, after the
// JFIF APP0 segment when one is present.
func spliceJPEGICC(encoded, profile []byte) []byte {
	if len(profile) == 0 || len(encoded) < 4 || encoded[0] != 0xFF || encoded[1] != 0xD8 {
		return encoded
	}
	insert := 2
	if encoded[2] == 0xFF && encoded[3] == 0xE0 && len(encoded) >= 6 {
		segLen := int(encoded[4])<<8 | int(encoded[5])
		if 4+segLen <= len(encoded) {
			insert = 4 + segLen
		}
	}

	count := (len(profile) + maxICCChunk - 1) / maxICCChunk
	var out bytes.Buffer
	out.Grow(len(encoded) + len(profile) + count*(4+len(iccSegmentPrefix)+2))
	out.Write(encoded[:insert])
	for seq := 0; seq < count; seq++ {
		chunk := profile[seq*maxICCChunk:]
		if len(chunk) > maxICCChunk {
			chunk = chunk[:maxICCChunk]
		}
		segLen := 2 + len(iccSegmentPrefix) + 2 + len(chunk)
		out.Write([]byte{0xFF, 0xE2, byte(segLen >> 8), byte(segLen)})
		out.WriteString(iccSegmentPrefix)
		out.Write([]byte{byte(seq + 1), byte(count)})
		out.Write(chunk)
	}
	out.Write(encoded[insert:])
	return out.Bytes()
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// pngICCProfile extracts and inflates the iCCP chunk payload from encoded
// PNG data, or nil.
func pngICCProfile(data []byte) []byte {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}
	i := len(pngSignature)
	for i+12 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[i:]))
		typ := string(data[i+4 : i+8])
		if i+8+length+4 > len(data) {
			return nil
		}
		switch typ {
		case "iCCP":
			payload := data[i+8 : i+8+length]
			// profile name, NUL, compression method byte, zlib stream
			nul := bytes.IndexByte(payload, 0)
			if nul < 0 || nul+2 >= len(payload) {
				return nil
			}
			zr, err := zlib.NewReader(bytes.NewReader(payload[nul+2:]))
			if err != nil {
				return nil
			}
			profile, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil
			}
			return profile
		case "IDAT", "IEND":
			return nil
		}
		i += 8 + length + 4
	}
	return nil
}

// splicePNGICC inserts an iCCP chunk into encoded PNG data, directly after
// the IHDR chunk.
func splicePNGICC(encoded, profile []byte) []byte {
	if len(profile) == 0 || !bytes.HasPrefix(encoded, pngSignature) {
		return encoded
	}
	// IHDR is always first: 8-byte header plus 13 data bytes and the CRC.
	insert := len(pngSignature) + 8 + 13 + 4
	if insert > len(encoded) {
		return encoded
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(profile)
	zw.Close()

	payload := append([]byte{'i', 'c', 'c', 0, 0}, z.Bytes()...)
	chunk := make([]byte, 0, 12+len(payload))
	var word [4]byte
	binary.BigEndian.PutUint32(word[:], uint32(len(payload)))
	chunk = append(chunk, word[:]...)
	chunk = append(chunk, 'i', 'C', 'C', 'P')
	chunk = append(chunk, payload...)
	crc := crc32.NewIEEE()
	crc.Write([]byte("iCCP"))
	crc.Write(payload)
	binary.BigEndian.PutUint32(word[:], crc.Sum32())
	chunk = append(chunk, word[:]...)

	out := make([]byte, 0, len(encoded)+len(chunk))
	out = append(out, encoded[:insert]...)
	out = append(out, chunk...)
	out = append(out, encoded[insert:]...)
	return out
}
