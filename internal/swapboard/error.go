package swapboard

import "fmt"

// ErrorCode identifies a board-local rejection: the fourth error bucket,
// covering publish_offer's admission checks.
type ErrorCode int

const (
	// ErrInvalidOffer indicates a mandatory parameter is missing, the
	// coin is Unknown, or the offer's status isn't Pending.
	ErrInvalidOffer ErrorCode = iota

	// ErrForeignOffer indicates publish_offer was called with a
	// publisher_id that isn't a local address.
	ErrForeignOffer

	// ErrOfferAlreadyPublished indicates the offer's TxID is already on
	// the board.
	ErrOfferAlreadyPublished

	// ErrExpiredOffer indicates the offer's expiry height is at or below
	// the board's current tip.
	ErrExpiredOffer
)

var errorCodeStrings = map[ErrorCode]string{
	ErrInvalidOffer:          "ErrInvalidOffer",
	ErrForeignOffer:          "ErrForeignOffer",
	ErrOfferAlreadyPublished: "ErrOfferAlreadyPublished",
	ErrExpiredOffer:          "ErrExpiredOffer",
}

func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error is the single error type publish_offer and the receive path
// surface.
type Error struct {
	ErrorCode   ErrorCode
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("swapboard: %v: %v (%v)", e.ErrorCode, e.Description, e.Err)
	}
	return fmt.Sprintf("swapboard: %v: %v", e.ErrorCode, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(code ErrorCode, desc string) *Error {
	return &Error{ErrorCode: code, Description: desc}
}
