package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/proposal"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/inbound"
)

// maxUploadBytes caps the multipart memory for application uploads.
const maxUploadBytes = 32 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// settlementResponse renders a settlement with checksummed addresses.
type settlementResponse struct {
	AuctionAddress string  `json:"auction_address"`
	Winner         *string `json:"winner,omitempty"`
	FinalPrice     *string `json:"final_price,omitempty"`
	TxHash         string  `json:"tx_hash"`
	Status         string  `json:"status"`
}

func newSettlementResponse(result *shared.SettlementResult) settlementResponse {
	resp := settlementResponse{
		AuctionAddress: result.AuctionAddress.Hex(),
		TxHash:         result.TxHash.Hex(),
		Status:         result.Status,
	}
	if result.Winner != nil {
		winner := result.Winner.Hex()
		resp.Winner = &winner
	}
	if result.FinalPrice != nil {
		price := result.FinalPrice.String()
		resp.FinalPrice = &price
	}
	return resp
}

func (server *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		server.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (server *Server) writeError(w http.ResponseWriter, err error) {
	server.writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, shared.ErrProposalNotFound),
		errors.Is(err, shared.ErrAuctionNotFound),
		errors.Is(err, shared.ErrNoBidsFound),
		errors.Is(err, shared.ErrMetadataNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrProposalNotPending),
		errors.Is(err, shared.ErrProposalAlreadyLive),
		errors.Is(err, shared.ErrAuctionAlreadyFinished),
		errors.Is(err, shared.ErrAuctionNotEnded),
		errors.Is(err, shared.ErrAuctionNotAcceptingBids),
		errors.Is(err, shared.ErrBidBelowHighest),
		errors.Is(err, shared.ErrBidBelowStarting),
		errors.Is(err, shared.ErrReviewerExists):
		return http.StatusConflict
	case errors.Is(err, shared.ErrReviewerRequired):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrInvalidRequest),
		errors.Is(err, shared.ErrInvalidAddress),
		errors.Is(err, shared.ErrInvalidProposalID),
		errors.Is(err, shared.ErrInvalidStartingBid),
		errors.Is(err, shared.ErrInvalidDuration),
		errors.Is(err, shared.ErrBidAmountInvalid),
		errors.Is(err, shared.ErrSignedTxRequired),
		errors.Is(err, shared.ErrInsufficientAllowance),
		errors.Is(err, shared.ErrInsufficientBalance),
		errors.Is(err, shared.ErrMetadataNameRequired),
		errors.Is(err, shared.ErrNoImagesProvided):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrReceiptTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrChainUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return shared.ErrInvalidRequest
	}
	return nil
}

func proposalIDParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, shared.ErrInvalidProposalID
	}
	return id, nil
}

func auctionAddrParam(r *http.Request) (common.Address, error) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		return common.Address{}, shared.ErrInvalidAddress
	}
	return common.HexToAddress(raw), nil
}

// submitApplicationResponse is the wire envelope for the application
// endpoint: {success, metadataUri} on success, {success, message} on
// failure.
type submitApplicationResponse struct {
	Success     bool   `json:"success"`
	MetadataURI string `json:"metadataUri,omitempty"`
	ProposalID  uint64 `json:"proposalId,omitempty"`
	TxHash      string `json:"txHash,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (server *Server) writeSubmitError(w http.ResponseWriter, err error) {
	server.writeJSON(w, statusForError(err), submitApplicationResponse{
		Success: false,
		Message: err.Error(),
	})
}

// handleSubmitApplication accepts a multipart asset application,
// pins it, and relays the proposal on chain.
func (server *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		server.writeSubmitError(w, shared.ErrInvalidRequest)
		return
	}

	form := submitApplicationForm{
		ProposerAddress: r.FormValue("proposerAddress"),
		Name:            r.FormValue("name"),
		Description:     r.FormValue("description"),
		Category:        r.FormValue("category"),
		Attributes:      r.FormValue("attributes"),
		StartingBid:     r.FormValue("startingBid"),
		DurationSeconds: r.FormValue("duration"),
	}
	req, err := form.toRequest()
	if err != nil {
		server.writeSubmitError(w, err)
		return
	}

	files := r.MultipartForm.File["images"]
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			server.writeSubmitError(w, shared.ErrInvalidRequest)
			return
		}
		defer file.Close()
		req.Images = append(req.Images, inbound.ImageUpload{
			Filename: header.Filename,
			Content:  file,
		})
	}

	result, err := server.proposalService.SubmitApplication(r.Context(), req)
	if err != nil {
		server.writeSubmitError(w, err)
		return
	}
	server.writeJSON(w, http.StatusCreated, submitApplicationResponse{
		Success:     true,
		MetadataURI: result.MetadataURI,
		ProposalID:  result.ProposalID,
		TxHash:      result.TxHash.Hex(),
	})
}

func (server *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	req := inbound.ListProposalsRequest{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := proposal.Status(raw)
		req.Status = &status
	}

	proposals, err := server.proposalService.ListProposals(r.Context(), req)
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, proposals)
}

func (server *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalIDParam(r)
	if err != nil {
		server.writeError(w, err)
		return
	}

	detail, err := server.proposalService.GetProposal(r.Context(), id)
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, detail)
}

func (server *Server) handleApproveProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalIDParam(r)
	if err != nil {
		server.writeError(w, err)
		return
	}

	var body reviewRequest
	if err := decodeBody(r, &body); err != nil {
		server.writeError(w, err)
		return
	}
	if err := validate.Struct(body); err != nil {
		server.writeError(w, shared.ErrInvalidRequest)
		return
	}

	a, err := server.proposalService.ReviewAndLaunchAuction(r.Context(), inbound.ReviewRequest{
		ProposalID: id,
		Reviewer:   common.HexToAddress(body.Reviewer),
	})
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, a)
}

func (server *Server) handleRejectProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalIDParam(r)
	if err != nil {
		server.writeError(w, err)
		return
	}

	var body reviewRequest
	if err := decodeBody(r, &body); err != nil {
		server.writeError(w, err)
		return
	}
	if err := validate.Struct(body); err != nil {
		server.writeError(w, shared.ErrInvalidRequest)
		return
	}

	if err := server.proposalService.RejectProposal(r.Context(), inbound.ReviewRequest{
		ProposalID: id,
		Reviewer:   common.HexToAddress(body.Reviewer),
	}); err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (server *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	req := inbound.ListAuctionsRequest{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := auction.Status(raw)
		req.Status = &status
	}

	auctions, err := server.auctionService.ListAuctions(r.Context(), req)
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, auctions)
}

func (server *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	addr, err := auctionAddrParam(r)
	if err != nil {
		server.writeError(w, err)
		return
	}

	detail, err := server.auctionService.GetAuction(r.Context(), addr)
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, detail)
}

func (server *Server) handleFinalizeAuction(w http.ResponseWriter, r *http.Request) {
	addr, err := auctionAddrParam(r)
	if err != nil {
		server.writeError(w, err)
		return
	}

	var body finalizeRequest
	if err := decodeBody(r, &body); err != nil {
		server.writeError(w, err)
		return
	}
	if err := validate.Struct(body); err != nil {
		server.writeError(w, shared.ErrInvalidRequest)
		return
	}

	result, err := server.auctionService.FinalizeAuction(r.Context(), common.HexToAddress(body.Caller), addr)
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, newSettlementResponse(result))
}

func (server *Server) handleListBids(w http.ResponseWriter, r *http.Request) {
	addr, err := auctionAddrParam(r)
	if err != nil {
		server.writeError(w, err)
		return
	}

	bids, err := server.bidService.GetBids(r.Context(), addr)
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, bids)
}

func (server *Server) handleGetHighestBid(w http.ResponseWriter, r *http.Request) {
	addr, err := auctionAddrParam(r)
	if err != nil {
		server.writeError(w, err)
		return
	}

	highest, err := server.bidService.GetHighestBid(r.Context(), addr)
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, highest)
}

func (server *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	addr, err := auctionAddrParam(r)
	if err != nil {
		server.writeError(w, err)
		return
	}

	var body placeBidRequest
	if err := decodeBody(r, &body); err != nil {
		server.writeError(w, err)
		return
	}
	req, err := body.toRequest(addr)
	if err != nil {
		server.writeError(w, err)
		return
	}

	b, err := server.bidService.PlaceBid(r.Context(), req)
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusCreated, b)
}

func (server *Server) handleAddReviewer(w http.ResponseWriter, r *http.Request) {
	var body addReviewerRequest
	if err := decodeBody(r, &body); err != nil {
		server.writeError(w, err)
		return
	}
	if err := validate.Struct(body); err != nil {
		server.writeError(w, shared.ErrInvalidRequest)
		return
	}

	grant, err := server.roleService.AddReviewer(r.Context(), common.HexToAddress(body.Caller), common.HexToAddress(body.Address))
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusCreated, grant)
}

func (server *Server) handleCheckReviewer(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		server.writeError(w, shared.ErrInvalidAddress)
		return
	}

	isReviewer, err := server.roleService.IsReviewer(r.Context(), common.HexToAddress(raw))
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, map[string]bool{"is_reviewer": isReviewer})
}

func (server *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	server.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return value
}
