package grpcstore

import (
	"encoding/binary"
	"fmt"

	"registra.dev/registra/content"
	"registra.dev/registra/storage"
)

// An Update request carries the caller's expected hash ahead of the framed
// record, length-prefixed the same way the record frames its own hash.

func encodeUpdate(expected content.Hash, record []byte) []byte {
	h := expected.String()
	out := binary.AppendUvarint(nil, uint64(len(h)))
	out = append(out, h...)
	out = append(out, record...)
	return out
}

func decodeUpdate(b []byte) (content.Hash, []byte, error) {
	n, read := binary.Uvarint(b)
	if read <= 0 || uint64(len(b)-read) < n {
		return "", nil, fmt.Errorf("%w: truncated update header", storage.ErrInput)
	}
	return content.Hash(b[read : read+int(n)]), b[read+int(n):], nil
}
