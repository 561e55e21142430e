package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/jp93arg/NFTMarketplace/market-service/internal/ledger"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/market"
	"github.com/jp93arg/NFTMarketplace/market-service/internal/service"
	"github.com/jp93arg/NFTMarketplace/shared/models"
)

// Handler contains HTTP request handlers
type Handler struct {
	svc *service.MarketService
	log zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc *service.MarketService, log zerolog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log,
	}
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// token registry
	api.HandleFunc("/tokens", h.MintToken).Methods("POST")
	api.HandleFunc("/tokens/{contract}/{id}", h.GetToken).Methods("GET")

	// direct-sale listings
	api.HandleFunc("/market/items", h.CreateMarketItem).Methods("POST")
	api.HandleFunc("/market/items", h.GetAvailableMarketItems).Methods("GET")
	api.HandleFunc("/market/items/{id}", h.GetMarketItem).Methods("GET")
	api.HandleFunc("/market/items/{id}/buy", h.CreateMarketSale).Methods("POST")
	api.HandleFunc("/market/listing-price", h.GetListingPrice).Methods("GET")

	// auctions
	api.HandleFunc("/auctions", h.CreateAuction).Methods("POST")
	api.HandleFunc("/auctions", h.GetOngoingAuctions).Methods("GET")
	api.HandleFunc("/auctions/{id}", h.GetAuction).Methods("GET")
	api.HandleFunc("/auctions/{id}/bid", h.PlaceBid).Methods("POST")
	api.HandleFunc("/auctions/{id}/current-bid", h.GetAuctionBid).Methods("GET")
	api.HandleFunc("/auctions/{id}/claim", h.ClaimAuctionItem).Methods("POST")

	// per-party projections
	api.HandleFunc("/sellers/{address}/items", h.GetSellerItems).Methods("GET")
	api.HandleFunc("/sellers/{address}/auctions", h.GetSellerAuctions).Methods("GET")
	api.HandleFunc("/owners/{address}/items", h.GetOwnedItems).Methods("GET")
	api.HandleFunc("/bidders/{address}/claims", h.GetAuctionClaims).Methods("GET")
	api.HandleFunc("/bidders/{address}/claimed", h.GetClaimedAuctions).Methods("GET")
	api.HandleFunc("/accounts/{address}/balance", h.GetBalance).Methods("GET")

	// Middleware
	router.Use(h.loggingMiddleware)
	router.Use(corsMiddleware)

	return router
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "market-service",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// MintToken mints a token in the in-process registry
func (h *Handler) MintToken(w http.ResponseWriter, r *http.Request) {
	var req models.MintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Owner == "" {
		respondError(w, http.StatusBadRequest, "Owner is required")
		return
	}

	ref := h.svc.MintToken(req.Owner, req.TokenURI)
	respondJSON(w, http.StatusCreated, ref)
}

// GetToken returns a token's owner and metadata location
func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid token id")
		return
	}

	ref := models.TokenRef{Contract: vars["contract"], TokenID: tokenID}
	owner, err := h.svc.TokenOwner(ref)
	if err != nil {
		respondError(w, http.StatusNotFound, "Token not found")
		return
	}
	uri, _ := h.svc.TokenURI(ref)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"contract":  ref.Contract,
		"token_id":  ref.TokenID,
		"owner":     owner,
		"token_uri": uri,
	})
}

// CreateMarketItem creates a direct-sale listing
func (h *Handler) CreateMarketItem(w http.ResponseWriter, r *http.Request) {
	var req models.ListItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Seller == "" {
		respondError(w, http.StatusBadRequest, "Seller is required")
		return
	}

	item, err := h.svc.CreateMarketItem(r.Context(), &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// CreateMarketSale settles a direct sale
func (h *Handler) CreateMarketSale(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.BuyItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Buyer == "" {
		respondError(w, http.StatusBadRequest, "Buyer is required")
		return
	}

	item, err := h.svc.CreateMarketSale(r.Context(), itemID, &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// GetListingPrice returns the fixed listing fee
func (h *Handler) GetListingPrice(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]uint64{"listing_price": h.svc.ListingPrice()})
}

// GetMarketItem returns one listing
func (h *Handler) GetMarketItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.MarketItem(itemID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// GetAvailableMarketItems returns all unsold listings
func (h *Handler) GetAvailableMarketItems(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.AvailableMarketItems())
}

// CreateAuction opens a timed auction
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Seller == "" {
		respondError(w, http.StatusBadRequest, "Seller is required")
		return
	}

	auction, err := h.svc.CreateAuction(r.Context(), &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, auction)
}

// GetAuction returns one auction from the authoritative ledger
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r)
	if !ok {
		return
	}

	auction, err := h.svc.AuctionItem(auctionID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auction)
}

// GetAuctionBid returns the current bid state, served from the Redis snapshot
// when available
func (h *Handler) GetAuctionBid(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r)
	if !ok {
		return
	}

	bid, bidder, err := h.svc.AuctionBid(r.Context(), auctionID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"item_id":        auctionID,
		"current_bid":    bid,
		"highest_bidder": bidder,
	})
}

// GetOngoingAuctions returns every open auction
func (h *Handler) GetOngoingAuctions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.OngoingAuctions())
}

// PlaceBid handles bid placement requests
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Bidder == "" {
		respondError(w, http.StatusBadRequest, "Bidder is required")
		return
	}
	if req.BidAmount == 0 {
		respondError(w, http.StatusBadRequest, "Bid amount must be positive")
		return
	}

	response, err := h.svc.PlaceBid(r.Context(), auctionID, &req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, response)
}

// ClaimAuctionItem settles an ended auction for its winner
func (h *Handler) ClaimAuctionItem(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Claimant == "" {
		respondError(w, http.StatusBadRequest, "Claimant is required")
		return
	}

	auction, err := h.svc.ClaimAuctionItem(r.Context(), auctionID, req.Claimant)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auction)
}

// GetSellerItems returns a seller's unsold listings
func (h *Handler) GetSellerItems(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.MarketItemsBySeller(mux.Vars(r)["address"]))
}

// GetSellerAuctions returns a seller's auctions
func (h *Handler) GetSellerAuctions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.AuctionsBySeller(mux.Vars(r)["address"]))
}

// GetOwnedItems returns the items a party has bought
func (h *Handler) GetOwnedItems(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.OwnedItems(mux.Vars(r)["address"]))
}

// GetAuctionClaims returns the ended auctions a bidder can still claim
func (h *Handler) GetAuctionClaims(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.AuctionClaims(mux.Vars(r)["address"]))
}

// GetClaimedAuctions returns the auctions a bidder has claimed
func (h *Handler) GetClaimedAuctions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.ClaimedAuctions(mux.Vars(r)["address"]))
}

// GetBalance returns a party's escrow balance (refunds, fees and proceeds)
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"balance": h.svc.BalanceOf(address),
	})
}

// pathID parses the {id} path variable
func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "Invalid item id")
		return 0, false
	}
	return id, true
}

// respondLedgerError maps ledger errors to HTTP status codes
func respondLedgerError(w http.ResponseWriter, err error) {
	respondError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrIncorrectPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, market.ErrTransferNotApproved),
		errors.Is(err, market.ErrNotAuctionWinner):
		return http.StatusForbidden
	case errors.Is(err, market.ErrAlreadySold),
		errors.Is(err, market.ErrAlreadyClaimed),
		errors.Is(err, market.ErrAuctionEnded),
		errors.Is(err, market.ErrAuctionNotEnded),
		errors.Is(err, market.ErrNoBidsPlaced):
		return http.StatusConflict
	case errors.Is(err, market.ErrInvalidFee),
		errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInvalidEndDate),
		errors.Is(err, market.ErrInsufficientPayment),
		errors.Is(err, market.ErrBidTooLow),
		errors.Is(err, market.ErrBelowStartingPrice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// loggingMiddleware logs all HTTP requests
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		h.log.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// corsMiddleware adds CORS headers (for development)
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
