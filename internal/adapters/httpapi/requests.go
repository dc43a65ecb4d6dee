package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/metadata"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/inbound"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("eth_addr_hex", func(fl validator.FieldLevel) bool {
		return common.IsHexAddress(fl.Field().String())
	})
	return v
}

// submitApplicationForm carries the non-file fields of the multipart
// application request.
type submitApplicationForm struct {
	ProposerAddress string `validate:"required,eth_addr_hex"`
	Name            string `validate:"required,max=120"`
	Description     string `validate:"max=4000"`
	Category        string `validate:"max=60"`
	Attributes      string
	StartingBid     string `validate:"required"`
	DurationSeconds string `validate:"required"`
}

// toRequest validates the form and converts it to the service request.
// Images are attached by the handler.
func (form submitApplicationForm) toRequest() (inbound.SubmitApplicationRequest, error) {
	var req inbound.SubmitApplicationRequest

	if err := validate.Struct(form); err != nil {
		return req, shared.ErrInvalidRequest
	}

	startingBid, err := decimal.NewFromString(form.StartingBid)
	if err != nil || startingBid.LessThanOrEqual(decimal.Zero) {
		return req, shared.ErrInvalidStartingBid
	}

	seconds, err := decimal.NewFromString(form.DurationSeconds)
	if err != nil || !seconds.IsInteger() || seconds.LessThanOrEqual(decimal.Zero) {
		return req, shared.ErrInvalidDuration
	}

	var attributes []metadata.Attribute
	if form.Attributes != "" {
		if err := json.Unmarshal([]byte(form.Attributes), &attributes); err != nil {
			return req, shared.ErrInvalidRequest
		}
	}

	req = inbound.SubmitApplicationRequest{
		Proposer:    common.HexToAddress(form.ProposerAddress),
		Name:        form.Name,
		Description: form.Description,
		Category:    form.Category,
		Attributes:  attributes,
		StartingBid: startingBid,
		Duration:    time.Duration(seconds.IntPart()) * time.Second,
	}
	return req, nil
}

// reviewRequest is the body for approve and reject endpoints.
type reviewRequest struct {
	Reviewer string `json:"reviewer" validate:"required,eth_addr_hex"`
}

// placeBidRequest is the body for the bid relay endpoint. SignedTx is
// the RLP-encoded signed transaction in hex.
type placeBidRequest struct {
	Bidder   string `json:"bidder" validate:"required,eth_addr_hex"`
	Amount   string `json:"amount" validate:"required"`
	SignedTx string `json:"signed_tx" validate:"required"`
}

func (body placeBidRequest) toRequest(auctionAddr common.Address) (inbound.PlaceBidRequest, error) {
	var req inbound.PlaceBidRequest

	if err := validate.Struct(body); err != nil {
		return req, shared.ErrInvalidRequest
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		return req, shared.ErrBidAmountInvalid
	}

	rawTx, err := hex.DecodeString(strings.TrimPrefix(body.SignedTx, "0x"))
	if err != nil || len(rawTx) == 0 {
		return req, shared.ErrSignedTxRequired
	}

	req = inbound.PlaceBidRequest{
		AuctionAddress: auctionAddr,
		Bidder:         common.HexToAddress(body.Bidder),
		Amount:         amount,
		SignedTx:       rawTx,
	}
	return req, nil
}

// finalizeRequest is the body for the manual finalize endpoint.
type finalizeRequest struct {
	Caller string `json:"caller" validate:"required,eth_addr_hex"`
}

// addReviewerRequest is the body for the reviewer grant endpoint.
type addReviewerRequest struct {
	Caller  string `json:"caller" validate:"required,eth_addr_hex"`
	Address string `json:"address" validate:"required,eth_addr_hex"`
}
