package params

import (
	"encoding/binary"
	"fmt"

	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/store"
)

// EncodeOfferBody serializes a swap offer's identity fields and parameter
// set into the deterministic body the Offer Protocol Handler signs, using
// the same length-prefixed primitives as the per-parameter wire codec, so
// disk and wire encodings stay identical.
func EncodeOfferBody(txID core.TxID, status core.OfferStatus, publisherID []byte, coin uint64, rows []store.TxParamRow) []byte {
	out := make([]byte, 0, 16+1+4+len(publisherID)+8+4)
	out = append(out, txID[:]...)
	out = append(out, byte(status))
	out = append(out, lengthPrefix(publisherID)...)

	coinBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(coinBuf, coin)
	out = append(out, coinBuf...)

	countBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(countBuf, uint32(len(rows)))
	out = append(out, countBuf...)

	for _, r := range rows {
		idBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(idBuf, uint32(r.ParameterID))
		out = append(out, idBuf...)
		out = append(out, lengthPrefix(r.Value)...)
	}
	return out
}

// DecodeOfferBody is the inverse of EncodeOfferBody. It never trusts its
// input: any truncation or length mismatch yields an error, which the
// Offer Protocol Handler's ParseMessage treats as an outright rejection.
func DecodeOfferBody(body []byte) (txID core.TxID, status core.OfferStatus, publisherID []byte, coin uint64, rows []store.TxParamRow, err error) {
	if len(body) < 16+1+4 {
		return txID, status, nil, 0, nil, fmt.Errorf("params: offer body too short")
	}
	copy(txID[:], body[:16])
	off := 16

	status = core.OfferStatus(body[off])
	off++

	publisherID, n, err := readLengthPrefixed(body, off)
	if err != nil {
		return txID, status, nil, 0, nil, err
	}
	off = n

	if len(body)-off < 8+4 {
		return txID, status, nil, 0, nil, fmt.Errorf("params: offer body truncated before coin/count")
	}
	coin = binary.BigEndian.Uint64(body[off:])
	off += 8

	count := binary.BigEndian.Uint32(body[off:])
	off += 4

	rows = make([]store.TxParamRow, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(body)-off < 4 {
			return txID, status, nil, 0, nil, fmt.Errorf("params: offer body truncated at parameter %d", i)
		}
		id := core.ParameterID(binary.BigEndian.Uint32(body[off:]))
		off += 4

		value, next, err := readLengthPrefixed(body, off)
		if err != nil {
			return txID, status, nil, 0, nil, err
		}
		off = next

		rows = append(rows, store.TxParamRow{ParameterID: id, Value: value})
	}

	if off != len(body) {
		return txID, status, nil, 0, nil, fmt.Errorf("params: offer body has trailing bytes")
	}
	return txID, status, publisherID, coin, rows, nil
}

// readLengthPrefixed reads a 4-byte-length-prefixed slice starting at
// off, returning the slice and the offset immediately past it.
func readLengthPrefixed(body []byte, off int) ([]byte, int, error) {
	if len(body)-off < 4 {
		return nil, 0, fmt.Errorf("params: truncated length prefix at offset %d", off)
	}
	n := binary.BigEndian.Uint32(body[off:])
	off += 4
	if uint32(len(body)-off) < n {
		return nil, 0, fmt.Errorf("params: length prefix mismatch at offset %d", off)
	}
	value := append([]byte(nil), body[off:off+int(n)]...)
	off += int(n)
	return value, off, nil
}
