package shared

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ReviewerGrant records an address holding the reviewer role on the factory.
type ReviewerGrant struct {
	Address   common.Address `json:"address"`
	GrantedBy common.Address `json:"granted_by"`
	TxHash    common.Hash    `json:"tx_hash"`
	CreatedAt time.Time      `json:"created_at"`
}
