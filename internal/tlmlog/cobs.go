package tlmlog

import "errors"

// Delimiter terminates every COBS frame in a log stream.
const Delimiter byte = 0x00

var ErrMalformedCOBS = errors.New("tlmlog: malformed cobs frame")

// DecodeCOBS unstuffs one frame. A trailing delimiter, if present, is
// ignored. Code bytes of zero or groups that run past the end of the frame
// return ErrMalformedCOBS.
func DecodeCOBS(frame []byte) ([]byte, error) {
	if n := len(frame); n > 0 && frame[n-1] == Delimiter {
		frame = frame[:n-1]
	}
	out := make([]byte, 0, len(frame))
	for i := 0; i < len(frame); {
		code := int(frame[i])
		if code == 0 {
			return nil, ErrMalformedCOBS
		}
		end := i + code
		if end > len(frame) {
			return nil, ErrMalformedCOBS
		}
		out = append(out, frame[i+1:end]...)
		i = end
		if code < 0xFF && i < len(frame) {
			out = append(out, 0)
		}
	}
	return out, nil
}

// EncodeCOBS stuffs data and appends the delimiter.
func EncodeCOBS(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/254+2)
	codeIdx := len(out)
	out = append(out, 0)
	code := byte(1)
	for _, b := range data {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeIdx] = code
	return append(out, Delimiter)
}
