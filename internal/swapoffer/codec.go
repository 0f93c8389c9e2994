// Package swapoffer is the Offer Protocol Handler: encoding, decoding and
// signature verification of signed swap offers.
package swapoffer

import (
	"bytes"
	"crypto/sha256"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/params"
	"github.com/mimblecoin/walletcore/internal/store"
)

// signatureSize is the length of a btcec compact ECDSA signature, fixed
// so parse_message can split [body][signature] without a length prefix.
const signatureSize = 65

// AddressResolver looks up whether a candidate public key belongs to a
// known local address, so create_message can find the publisher's private
// key. ParseMessage does not consult it: it checks the recovered public
// key against the body's PublisherID only. It is satisfied by
// keykeeper.Local in the wired daemon; tests supply a trivial in-memory
// implementation.
type AddressResolver interface {
	// LocalSigningKey returns the private key for publisherID if it is a
	// local address, or ok=false otherwise.
	LocalSigningKey(publisherID []byte) (priv *btcec.PrivateKey, ok bool)
}

// Codec encodes and decodes SwapOffer wire messages.
type Codec struct {
	resolver AddressResolver
}

// NewCodec constructs a Codec backed by resolver.
func NewCodec(resolver AddressResolver) *Codec {
	return &Codec{resolver: resolver}
}

// CreateMessage signs offer with publisherID's private BBS key and
// returns the framed [body][signature] bytes. It returns ok=false if
// publisherID is not local or differs from offer.PublisherID.
func (c *Codec) CreateMessage(offer core.SwapOffer, publisherID []byte) (msg []byte, ok bool) {
	if !bytes.Equal(offer.PublisherID, publisherID) {
		return nil, false
	}
	priv, found := c.resolver.LocalSigningKey(publisherID)
	if !found {
		return nil, false
	}

	body := encodeBody(offer)
	digest := sha256.Sum256(body)
	sig := ecdsa.SignCompact(priv, digest[:], true)

	out := make([]byte, 0, len(body)+len(sig))
	out = append(out, body...)
	out = append(out, sig...)
	return out, true
}

// ParseMessage strips the fixed-length signature from the tail of msg,
// verifies it against the publisher's public key (recovered from the
// signature itself, reconstructed from the body), and decodes the body
// into a SwapOffer. It never panics on adversarial input: any failure —
// truncation, bad signature, unparseable body, a PublisherID that does
// not match the signing key —
// yields ok=false; silent rejection is the contract.
func (c *Codec) ParseMessage(msg []byte) (offer core.SwapOffer, ok bool) {
	if len(msg) <= signatureSize {
		return core.SwapOffer{}, false
	}

	body := msg[:len(msg)-signatureSize]
	sig := msg[len(msg)-signatureSize:]

	digest := sha256.Sum256(body)
	pubKey, _, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return core.SwapOffer{}, false
	}

	decoded, err := decodeBody(body)
	if err != nil {
		return core.SwapOffer{}, false
	}

	if !publisherMatches(decoded.PublisherID, pubKey) {
		return core.SwapOffer{}, false
	}

	return decoded, true
}

func publisherMatches(publisherID []byte, recovered *btcec.PublicKey) bool {
	if len(publisherID) != 33 {
		return false
	}
	return string(publisherID) == string(recovered.SerializeCompressed())
}

// encodeBody serializes offer's parameter set using the same length-
// prefixed TLV codec the Parameter Map uses on disk, so disk and wire
// encodings stay identical.
func encodeBody(offer core.SwapOffer) []byte {
	rows := make([]store.TxParamRow, 0, len(offer.Parameters)+2)
	for id, blob := range offer.Parameters {
		rows = append(rows, store.TxParamRow{ParameterID: id, Value: blob})
	}
	// offer.Parameters is a map: iteration order is randomized per run.
	// Sort by ParameterID so the signed body is reproducible from the
	// offer's logical content instead of depending on map iteration.
	sort.Slice(rows, func(i, j int) bool { return rows[i].ParameterID < rows[j].ParameterID })
	return params.EncodeOfferBody(offer.TxID, offer.Status, offer.PublisherID, offer.Coin, rows)
}

func decodeBody(body []byte) (core.SwapOffer, error) {
	txID, status, publisherID, coin, rows, err := params.DecodeOfferBody(body)
	if err != nil {
		return core.SwapOffer{}, err
	}
	parameters := make(map[core.ParameterID][]byte, len(rows))
	for _, r := range rows {
		parameters[r.ParameterID] = r.Value
	}
	return core.SwapOffer{
		TxID:        txID,
		Status:      status,
		PublisherID: publisherID,
		Coin:        coin,
		Parameters:  parameters,
	}, nil
}
