package params

import (
	"encoding/binary"
	"fmt"

	"github.com/mimblecoin/walletcore/internal/core"
)

// wireVersion is stamped as the first byte of every encoded parameter
// blob: length-prefixed, deterministic, version-tagged. It lets a future
// codec change coexist with rows written by an older build.
const wireVersion byte = 1

// encode dispatches on the ParameterID's registered TypeTag (internal/core's
// central ParameterID → TypeTag table) to produce the on-disk/on-wire
// blob. The same function backs both persistence and peer messages, so
// disk and wire encodings stay identical.
func encode(id core.ParameterID, value interface{}) ([]byte, error) {
	tag := core.TagFor(id)

	var payload []byte
	switch tag {
	case core.TagBool:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not bool", id)
		}
		payload = []byte{0}
		if v {
			payload[0] = 1
		}

	case core.TagUint64:
		v, ok := value.(uint64)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not uint64", id)
		}
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, v)

	case core.TagInt64:
		v, ok := value.(int64)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not int64", id)
		}
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, uint64(v))

	case core.TagString:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not string", id)
		}
		payload = lengthPrefix([]byte(v))

	case core.TagBytes:
		v, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not []byte", id)
		}
		payload = lengthPrefix(v)

	case core.TagTxID:
		v, ok := value.(core.TxID)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not TxID", id)
		}
		payload = append([]byte(nil), v[:]...)

	case core.TagStatus:
		v, ok := value.(core.TxStatus)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not TxStatus", id)
		}
		payload = []byte{byte(v)}

	case core.TagFailureReason:
		v, ok := value.(core.FailureReason)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not FailureReason", id)
		}
		payload = []byte{byte(v)}

	case core.TagCoinIDList:
		v, ok := value.([]core.CoinID)
		if !ok {
			return nil, fmt.Errorf("params: value for %d is not []CoinID", id)
		}
		payload = encodeCoinIDList(v)

	default:
		return nil, fmt.Errorf("params: parameter %d has no registered codec", id)
	}

	out := make([]byte, 0, len(payload)+1)
	out = append(out, wireVersion)
	out = append(out, payload...)
	return out, nil
}

// decode is the inverse of encode, returning a value typed per the
// ParameterID's TypeTag as `interface{}`; callers narrow it via the
// generic Get helper in map.go.
func decode(id core.ParameterID, blob []byte) (interface{}, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("params: empty blob for %d", id)
	}
	if blob[0] != wireVersion {
		return nil, fmt.Errorf("params: unsupported wire version %d for %d", blob[0], id)
	}
	payload := blob[1:]
	tag := core.TagFor(id)

	switch tag {
	case core.TagBool:
		if len(payload) != 1 {
			return nil, fmt.Errorf("params: bad bool length for %d", id)
		}
		return payload[0] != 0, nil

	case core.TagUint64:
		if len(payload) != 8 {
			return nil, fmt.Errorf("params: bad uint64 length for %d", id)
		}
		return binary.BigEndian.Uint64(payload), nil

	case core.TagInt64:
		if len(payload) != 8 {
			return nil, fmt.Errorf("params: bad int64 length for %d", id)
		}
		return int64(binary.BigEndian.Uint64(payload)), nil

	case core.TagString:
		b, err := unLengthPrefix(payload)
		if err != nil {
			return nil, err
		}
		return string(b), nil

	case core.TagBytes:
		return unLengthPrefix(payload)

	case core.TagTxID:
		return core.TxIDFromBytes(payload)

	case core.TagStatus:
		if len(payload) != 1 {
			return nil, fmt.Errorf("params: bad status length for %d", id)
		}
		return core.TxStatus(payload[0]), nil

	case core.TagFailureReason:
		if len(payload) != 1 {
			return nil, fmt.Errorf("params: bad failure reason length for %d", id)
		}
		return core.FailureReason(payload[0]), nil

	case core.TagCoinIDList:
		return decodeCoinIDList(payload)

	default:
		return nil, fmt.Errorf("params: parameter %d has no registered codec", id)
	}
}

// DecodeUint64 decodes a raw parameter blob known to carry a TagUint64
// value, independent of which ParameterID produced it. It is exported for
// callers outside the Parameter Map — such as the Swap Offers Board
// reading MinHeight/PeerResponseTime off a SwapOffer's raw parameter set
// — that hold a bare blob rather than a live store.Tx to route through
// Get.
func DecodeUint64(blob []byte) (uint64, error) {
	if len(blob) != 9 || blob[0] != wireVersion {
		return 0, fmt.Errorf("params: blob is not a valid uint64 parameter")
	}
	return binary.BigEndian.Uint64(blob[1:]), nil
}

// EncodeUint64 is the inverse of DecodeUint64: it builds a wire-correct
// TagUint64 parameter blob for callers outside the Parameter Map that
// need to construct one directly, such as tests assembling a SwapOffer's
// raw parameter set without a live store.Tx.
func EncodeUint64(v uint64) []byte {
	out := make([]byte, 9)
	out[0] = wireVersion
	binary.BigEndian.PutUint64(out[1:], v)
	return out
}

func lengthPrefix(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

func unLengthPrefix(b []byte) ([]byte, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("params: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b)
	if uint32(len(b)-4) != n {
		return nil, fmt.Errorf("params: length prefix mismatch: want %d, have %d", n, len(b)-4)
	}
	return append([]byte(nil), b[4:]...), nil
}

const coinIDSize = 4 + 4 + 8

func encodeCoinIDList(ids []core.CoinID) []byte {
	out := make([]byte, 4+len(ids)*coinIDSize)
	binary.BigEndian.PutUint32(out, uint32(len(ids)))
	off := 4
	for _, id := range ids {
		binary.BigEndian.PutUint32(out[off:], id.Type)
		binary.BigEndian.PutUint32(out[off+4:], id.SubIdx)
		binary.BigEndian.PutUint64(out[off+8:], id.Value)
		off += coinIDSize
	}
	return out
}

func decodeCoinIDList(b []byte) ([]core.CoinID, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("params: truncated coin id list")
	}
	n := binary.BigEndian.Uint32(b)
	want := 4 + int(n)*coinIDSize
	if len(b) != want {
		return nil, fmt.Errorf("params: coin id list length mismatch: want %d, have %d", want, len(b))
	}
	out := make([]core.CoinID, n)
	off := 4
	for i := range out {
		out[i] = core.CoinID{
			Type:   binary.BigEndian.Uint32(b[off:]),
			SubIdx: binary.BigEndian.Uint32(b[off+4:]),
			Value:  binary.BigEndian.Uint64(b[off+8:]),
		}
		off += coinIDSize
	}
	return out, nil
}
