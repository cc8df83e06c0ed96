package ledger

import "errors"

// 校验类错误：由调用方参数或身份引起，立即拒绝，不重试
var (
	ErrInvalidParameters      = errors.New("invalid auction parameters")
	ErrAuctionNotFound        = errors.New("auction not found")
	ErrBidTooLow              = errors.New("bid too low")
	ErrOwnerCannotBid         = errors.New("auction owner cannot bid")
	ErrAdminCannotBid         = errors.New("admin cannot bid")
	ErrAlreadyActiveElsewhere = errors.New("bidder already active in another auction")
	ErrNotAdmin               = errors.New("caller is not an admin")
	ErrNotDeployer            = errors.New("caller is not the deployer")
	ErrNothingToWithdraw      = errors.New("nothing to withdraw")
)

// 状态冲突类错误：并发下的正常信号，调用方应重读状态而非上报失败
var (
	ErrAuctionNotActive = errors.New("auction not active")
	ErrAuctionNotEnded  = errors.New("auction not ended")
	ErrAlreadyFinalized = errors.New("auction already finalized")
)

// IsStateConflict 判断是否为状态冲突类错误
// 终结竞争 (多个触发方同时 finalize) 下这些错误是良性的
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrAuctionNotActive) ||
		errors.Is(err, ErrAuctionNotEnded) ||
		errors.Is(err, ErrAlreadyFinalized)
}
