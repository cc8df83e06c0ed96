package ledger

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType 账本事件类型
type EventType string

const (
	EventAuctionCreated   EventType = "AuctionCreated"
	EventBidPlaced        EventType = "BidPlaced"
	EventAuctionFinalized EventType = "AuctionFinalized"
	EventAuctionStopped   EventType = "AuctionStopped"
)

// Event 账本产生的领域事件, 按发生顺序追加
type Event struct {
	Type      EventType
	AuctionID uint64
	Bidder    common.Address
	Winner    common.Address
	Amount    *big.Int
	At        time.Time
}

// TransferReason 出账原因
type TransferReason string

const (
	TransferOwnerPayout     TransferReason = "owner_payout"
	TransferWithdraw        TransferReason = "withdraw"
	TransferEmergencyRefund TransferReason = "emergency_refund"
	TransferForceToOwner    TransferReason = "force_to_owner"
)

// Transfer 一笔从托管余额流出的转账记录
type Transfer struct {
	To        common.Address
	Amount    *big.Int
	Reason    TransferReason
	AuctionID uint64
}

// Auction 账本内部的拍卖状态
// 任一时刻只有当前领先者持有非零托管; 被超越者的托管即刻转入可提取余额
type Auction struct {
	ID            uint64
	Owner         common.Address
	StartingBid   *big.Int
	MinIncrement  *big.Int
	EndTime       int64
	HighestBidder common.Address
	HighestBid    *big.Int
	Active        bool
	Finalized     bool
	Stopped       bool

	deposits map[common.Address]*big.Int
	bids     map[common.Address]*big.Int
	bidders  []common.Address
}

// Ledger 权威拍卖状态机
// 所有写操作串行化, 不变式: 托管总额 + 可提取总额 == Balance
type Ledger struct {
	mu sync.Mutex

	deployer common.Address
	admins   map[common.Address]bool

	auctions map[uint64]*Auction
	nextID   uint64

	// 每个地址至多在一个拍卖中持有托管
	activeIn     map[common.Address]uint64
	withdrawable map[common.Address]*big.Int

	balance   *big.Int
	transfers []Transfer
	events    []Event

	now func() time.Time
}

// New 创建账本, deployer 自动成为管理员
func New(deployer common.Address) *Ledger {
	return &Ledger{
		deployer:     deployer,
		admins:       map[common.Address]bool{deployer: true},
		auctions:     make(map[uint64]*Auction),
		nextID:       1,
		activeIn:     make(map[common.Address]uint64),
		withdrawable: make(map[common.Address]*big.Int),
		balance:      new(big.Int),
		now:          time.Now,
	}
}

// SetClock 注入时钟, 仅测试使用
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// AddAdmin 添加管理员, 仅部署者可调用
func (l *Ledger) AddAdmin(caller, admin common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.deployer {
		return ErrNotDeployer
	}
	if admin == (common.Address{}) {
		return ErrInvalidParameters
	}
	l.admins[admin] = true
	return nil
}

// RemoveAdmin 移除管理员, 仅部署者可调用, 部署者自身不可移除
func (l *Ledger) RemoveAdmin(caller, admin common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.deployer {
		return ErrNotDeployer
	}
	if admin == l.deployer {
		return ErrInvalidParameters
	}
	delete(l.admins, admin)
	return nil
}

// IsAdmin 查询地址是否为管理员
func (l *Ledger) IsAdmin(addr common.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admins[addr]
}

// CreateAuction 创建拍卖并立即进入活跃状态, 返回新拍卖 ID
// startingBid 与 minIncrement 必须为正, endTime 必须晚于当前时间
func (l *Ledger) CreateAuction(owner common.Address, startingBid, minIncrement *big.Int, endTime int64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if owner == (common.Address{}) {
		return 0, ErrInvalidParameters
	}
	if startingBid == nil || startingBid.Sign() <= 0 {
		return 0, ErrInvalidParameters
	}
	if minIncrement == nil || minIncrement.Sign() <= 0 {
		return 0, ErrInvalidParameters
	}
	if endTime <= l.now().Unix() {
		return 0, ErrInvalidParameters
	}

	id := l.nextID
	l.nextID++
	l.auctions[id] = &Auction{
		ID:           id,
		Owner:        owner,
		StartingBid:  new(big.Int).Set(startingBid),
		MinIncrement: new(big.Int).Set(minIncrement),
		EndTime:      endTime,
		HighestBid:   new(big.Int),
		Active:       true,
		deposits:     make(map[common.Address]*big.Int),
		bids:         make(map[common.Address]*big.Int),
	}
	l.appendEvent(Event{Type: EventAuctionCreated, AuctionID: id})
	return id, nil
}

// PlaceBid 出价, value 为本次出价的完整金额 (wei)
// 出价者只需补足超出自身已托管部分的差额; 被超越的领先者托管转入可提取余额
func (l *Ledger) PlaceBid(bidder common.Address, auctionID uint64, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[auctionID]
	if !ok {
		return ErrAuctionNotFound
	}
	if !a.Active || l.now().Unix() >= a.EndTime {
		return ErrAuctionNotActive
	}
	if bidder == a.Owner {
		return ErrOwnerCannotBid
	}
	if l.admins[bidder] {
		return ErrAdminCannotBid
	}
	if value == nil || value.Sign() <= 0 {
		return ErrInvalidParameters
	}

	// 跨拍卖互斥: 正在其他拍卖中领先的地址不可出价
	if in, locked := l.activeIn[bidder]; locked && in != auctionID {
		return ErrAlreadyActiveElsewhere
	}

	if a.HighestBid.Sign() == 0 {
		if value.Cmp(a.StartingBid) < 0 {
			return ErrBidTooLow
		}
	} else {
		min := new(big.Int).Add(a.HighestBid, a.MinIncrement)
		if value.Cmp(min) < 0 {
			return ErrBidTooLow
		}
	}

	// 先结算前领先者, 再登记新托管
	prev := a.HighestBidder
	if prev != (common.Address{}) && prev != bidder {
		l.creditWithdrawable(prev, a.takeDeposit(prev))
		delete(l.activeIn, prev)
	}

	current := a.deposit(bidder)
	delta := new(big.Int).Sub(value, current)
	if delta.Sign() < 0 {
		// 不变式保护: 领先者托管永远等于其当前出价, 不应出现
		return ErrInvalidParameters
	}
	l.balance.Add(l.balance, delta)
	a.setDeposit(bidder, value)
	a.recordBid(bidder, value)
	l.activeIn[bidder] = auctionID

	a.HighestBidder = bidder
	a.HighestBid = new(big.Int).Set(value)

	l.appendEvent(Event{Type: EventBidPlaced, AuctionID: auctionID, Bidder: bidder, Amount: new(big.Int).Set(value)})
	return nil
}

// Finalize 终结已到期的拍卖
// 有出价时将最高出价划转给 owner, 无出价时仅关闭; 重复终结返回 ErrAlreadyFinalized
func (l *Ledger) Finalize(caller common.Address, auctionID uint64) (winner common.Address, amount *big.Int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[auctionID]
	if !ok {
		return common.Address{}, nil, ErrAuctionNotFound
	}
	if a.Finalized {
		return common.Address{}, nil, ErrAlreadyFinalized
	}
	if !a.Active {
		return common.Address{}, nil, ErrAuctionNotActive
	}
	if l.now().Unix() < a.EndTime {
		return common.Address{}, nil, ErrAuctionNotEnded
	}

	a.Active = false
	a.Finalized = true

	winner = a.HighestBidder
	amount = new(big.Int).Set(a.HighestBid)
	if winner != (common.Address{}) {
		// 先清账再出账
		paid := a.takeDeposit(winner)
		delete(l.activeIn, winner)
		l.payOut(a.Owner, paid, TransferOwnerPayout, auctionID)
	}

	l.appendEvent(Event{Type: EventAuctionFinalized, AuctionID: auctionID, Winner: winner, Amount: amount})
	return winner, amount, nil
}

// AdminStop 管理员提前终止拍卖
// 所有在场托管 (含当前领先者) 转入可提取余额, owner 不获得任何划转
func (l *Ledger) AdminStop(caller common.Address, auctionID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.admins[caller] {
		return ErrNotAdmin
	}
	a, ok := l.auctions[auctionID]
	if !ok {
		return ErrAuctionNotFound
	}
	if a.Finalized {
		return ErrAlreadyFinalized
	}
	if !a.Active {
		return ErrAuctionNotActive
	}

	a.Active = false
	a.Stopped = true

	for _, bidder := range a.bidders {
		l.creditWithdrawable(bidder, a.takeDeposit(bidder))
		if l.activeIn[bidder] == auctionID {
			delete(l.activeIn, bidder)
		}
	}

	l.appendEvent(Event{Type: EventAuctionStopped, AuctionID: auctionID})
	return nil
}

// Withdraw 提取可提取余额, 返回提取金额
func (l *Ledger) Withdraw(caller common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	amount, ok := l.withdrawable[caller]
	if !ok || amount.Sign() == 0 {
		return nil, ErrNothingToWithdraw
	}
	delete(l.withdrawable, caller)
	out := new(big.Int).Set(amount)
	l.payOut(caller, out, TransferWithdraw, 0)
	return out, nil
}

// EmergencyRefundSingle 管理员将单个出价者的滞留托管直接退还
// 托管为零时为幂等空操作
func (l *Ledger) EmergencyRefundSingle(caller common.Address, auctionID uint64, bidder common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.admins[caller] {
		return nil, ErrNotAdmin
	}
	a, ok := l.auctions[auctionID]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	amount := a.takeDeposit(bidder)
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	if l.activeIn[bidder] == auctionID {
		delete(l.activeIn, bidder)
	}
	l.payOut(bidder, amount, TransferEmergencyRefund, auctionID)
	return amount, nil
}

// EmergencyRefundAll 管理员退还某拍卖的全部滞留托管, 返回退款人数
func (l *Ledger) EmergencyRefundAll(caller common.Address, auctionID uint64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.admins[caller] {
		return 0, ErrNotAdmin
	}
	a, ok := l.auctions[auctionID]
	if !ok {
		return 0, ErrAuctionNotFound
	}
	refunded := 0
	for _, bidder := range a.bidders {
		amount := a.takeDeposit(bidder)
		if amount.Sign() == 0 {
			continue
		}
		if l.activeIn[bidder] == auctionID {
			delete(l.activeIn, bidder)
		}
		l.payOut(bidder, amount, TransferEmergencyRefund, auctionID)
		refunded++
	}
	return refunded, nil
}

// ForceTransferToOwner 管理员将领先者的滞留托管强制划转给 owner
// 用于停止后补结算; 托管为零时为幂等空操作
func (l *Ledger) ForceTransferToOwner(caller common.Address, auctionID uint64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.admins[caller] {
		return nil, ErrNotAdmin
	}
	a, ok := l.auctions[auctionID]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	winner := a.HighestBidder
	if winner == (common.Address{}) {
		return new(big.Int), nil
	}
	amount := a.takeDeposit(winner)
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	if l.activeIn[winner] == auctionID {
		delete(l.activeIn, winner)
	}
	l.payOut(a.Owner, amount, TransferForceToOwner, auctionID)
	return amount, nil
}

// GetAuction 读取拍卖快照
func (l *Ledger) GetAuction(auctionID uint64) (Auction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[auctionID]
	if !ok {
		return Auction{}, ErrAuctionNotFound
	}
	return a.snapshot(), nil
}

// AuctionCount 已创建的拍卖总数
func (l *Ledger) AuctionCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextID - 1
}

// LeaderboardView 出价榜视图: 首末名地址与出价, 去重出价人数
type LeaderboardView struct {
	HighestBidder common.Address
	HighestBid    *big.Int
	LowestBidder  common.Address
	LowestBid     *big.Int
	TotalBidders  int
}

// Leaderboard 返回某拍卖的出价榜
// 最低出价取每个出价者的站立出价, 不是历史最低
func (l *Ledger) Leaderboard(auctionID uint64) (LeaderboardView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[auctionID]
	if !ok {
		return LeaderboardView{}, ErrAuctionNotFound
	}
	view := LeaderboardView{
		HighestBidder: a.HighestBidder,
		HighestBid:    new(big.Int).Set(a.HighestBid),
		LowestBid:     new(big.Int),
		TotalBidders:  len(a.bidders),
	}
	for _, bidder := range a.bidders {
		b := a.bids[bidder]
		if view.LowestBid.Sign() == 0 || b.Cmp(view.LowestBid) < 0 {
			view.LowestBidder = bidder
			view.LowestBid.Set(b)
		}
	}
	return view, nil
}

// UserActiveAuction 查询地址当前持有托管的拍卖
// finished 表示该拍卖已到期或已终止但托管尚未释放
func (l *Ledger) UserActiveAuction(addr common.Address) (has bool, auctionID uint64, finished bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.activeIn[addr]
	if !ok {
		return false, 0, false
	}
	a := l.auctions[id]
	finished = !a.Active || l.now().Unix() >= a.EndTime
	return true, id, finished
}

// BiddersWithDeposits 返回某拍卖中仍持有非零托管的地址及金额, 诊断用
func (l *Ledger) BiddersWithDeposits(auctionID uint64) (map[common.Address]*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[auctionID]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	out := make(map[common.Address]*big.Int)
	for _, bidder := range a.bidders {
		d := a.deposit(bidder)
		if d.Sign() > 0 {
			out[bidder] = new(big.Int).Set(d)
		}
	}
	return out, nil
}

// Withdrawable 查询地址的可提取余额
func (l *Ledger) Withdrawable(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount, ok := l.withdrawable[addr]; ok {
		return new(big.Int).Set(amount)
	}
	return new(big.Int)
}

// Balance 账本持有的总余额 (托管 + 可提取)
func (l *Ledger) Balance() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance)
}

// PullEvents 取走并清空事件队列
func (l *Ledger) PullEvents() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.events
	l.events = nil
	return out
}

// Transfers 返回全部出账记录, 测试用
func (l *Ledger) Transfers() []Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Transfer, len(l.transfers))
	copy(out, l.transfers)
	return out
}

func (l *Ledger) creditWithdrawable(addr common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	cur, ok := l.withdrawable[addr]
	if !ok {
		cur = new(big.Int)
		l.withdrawable[addr] = cur
	}
	cur.Add(cur, amount)
}

func (l *Ledger) payOut(to common.Address, amount *big.Int, reason TransferReason, auctionID uint64) {
	l.balance.Sub(l.balance, amount)
	l.transfers = append(l.transfers, Transfer{
		To:        to,
		Amount:    new(big.Int).Set(amount),
		Reason:    reason,
		AuctionID: auctionID,
	})
}

func (l *Ledger) appendEvent(e Event) {
	e.At = l.now()
	l.events = append(l.events, e)
}

func (a *Auction) deposit(addr common.Address) *big.Int {
	if d, ok := a.deposits[addr]; ok {
		return d
	}
	return new(big.Int)
}

func (a *Auction) setDeposit(addr common.Address, amount *big.Int) {
	a.deposits[addr] = new(big.Int).Set(amount)
}

// takeDeposit 取出并清零托管
func (a *Auction) takeDeposit(addr common.Address) *big.Int {
	d, ok := a.deposits[addr]
	if !ok {
		return new(big.Int)
	}
	delete(a.deposits, addr)
	return d
}

func (a *Auction) recordBid(addr common.Address, amount *big.Int) {
	if _, seen := a.bids[addr]; !seen {
		a.bidders = append(a.bidders, addr)
	}
	a.bids[addr] = new(big.Int).Set(amount)
}

func (a *Auction) snapshot() Auction {
	return Auction{
		ID:            a.ID,
		Owner:         a.Owner,
		StartingBid:   new(big.Int).Set(a.StartingBid),
		MinIncrement:  new(big.Int).Set(a.MinIncrement),
		EndTime:       a.EndTime,
		HighestBidder: a.HighestBidder,
		HighestBid:    new(big.Int).Set(a.HighestBid),
		Active:        a.Active,
		Finalized:     a.Finalized,
		Stopped:       a.Stopped,
	}
}
