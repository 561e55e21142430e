package market

// Error is a ledger error value. Errors are single instances compared by
// identity (errors.Is), never by string matching.
type Error string

func (e Error) Error() string { return string(e) }

// ledger error taxonomy - every operation fails with one of these, and a
// failed operation leaves the ledger exactly as it was
var (
	ErrInvalidFee          = Error("fee paid must match the listing price")
	ErrInvalidPrice        = Error("price must be at least 1")
	ErrTransferNotApproved = Error("token transfer was not approved")
	ErrAlreadySold         = Error("item has already been sold")
	ErrIncorrectPayment    = Error("payment must match the asking price exactly")
	ErrInvalidEndDate      = Error("auctionEnd must be in the future")
	ErrAuctionEnded        = Error("auction has already ended")
	ErrInsufficientPayment = Error("you should transfer at least the bid amount")
	ErrBidTooLow           = Error("bid must be higher than the current highest bid")
	ErrBelowStartingPrice  = Error("bid is below the starting price")
	ErrAuctionNotEnded     = Error("Auction has not ended")
	ErrAlreadyClaimed      = Error("auction item has already been claimed")
	ErrNoBidsPlaced        = Error("no bids were placed on this auction")
	ErrNotAuctionWinner    = Error("only the highest bidder can claim the auction item")
)
