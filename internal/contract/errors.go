package contract

import (
	"strings"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
)

// revertReasons maps contract revert strings to typed errors so callers
// never match on raw RPC error text.
var revertReasons = []struct {
	substr string
	err    error
}{
	{"already finalized", ledger.ErrAlreadyFinalized},
	{"not active", ledger.ErrAuctionNotActive},
	{"not ended", ledger.ErrAuctionNotEnded},
	{"still active", ledger.ErrAuctionNotEnded},
	{"bid too low", ledger.ErrBidTooLow},
	{"owner cannot bid", ledger.ErrOwnerCannotBid},
	{"admin cannot bid", ledger.ErrAdminCannotBid},
	{"active in another auction", ledger.ErrAlreadyActiveElsewhere},
	{"not an admin", ledger.ErrNotAdmin},
	{"not the deployer", ledger.ErrNotDeployer},
	{"nothing to withdraw", ledger.ErrNothingToWithdraw},
	{"auction does not exist", ledger.ErrAuctionNotFound},
	{"invalid auction", ledger.ErrAuctionNotFound},
}

// ClassifyRevert converts an execution-revert error into a typed ledger
// error when the revert reason is recognized. Unrecognized errors pass
// through unchanged.
func ClassifyRevert(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "revert") && !strings.Contains(msg, "execution reverted") {
		return err
	}
	for _, r := range revertReasons {
		if strings.Contains(msg, r.substr) {
			return r.err
		}
	}
	return err
}
