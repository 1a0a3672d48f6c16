package purchasing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/epi"
	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/core/stock"
	"github.com/ogurasousui/stockly/internal/core/supplier"
)

// Dependencies は発注ユースケースが利用するポートです。
type Dependencies struct {
	Orders       Repository
	Suppliers    SupplierReader
	Stock        StockRecorder
	EPIStock     EPIStockAdjuster
	Performances PerformanceRecorder
}

// Service は発注と入荷のユースケースをまとめます。
type Service struct {
	orders       Repository
	suppliers    SupplierReader
	stock        StockRecorder
	epiStock     EPIStockAdjuster
	performances PerformanceRecorder
	clock        shared.Clock
	tx           shared.TransactionManager
	numberSuffix func() string
}

// UseCase は発注ユースケースの公開インターフェースです。
type UseCase interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error)
	GetOrder(ctx context.Context, in GetOrderInput) (*Order, error)
	ListOrders(ctx context.Context, in ListOrdersInput) (*ListOrdersResult, error)
	SendOrder(ctx context.Context, in GetOrderInput) (*Order, error)
	CancelOrder(ctx context.Context, in GetOrderInput) (*Order, error)
	ReceiveOrder(ctx context.Context, in ReceiveOrderInput) (*Order, error)
}

// NewService は Service を生成します。
func NewService(deps Dependencies, clock shared.Clock, tx shared.TransactionManager) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	return &Service{
		orders:       deps.Orders,
		suppliers:    deps.Suppliers,
		stock:        deps.Stock,
		epiStock:     deps.EPIStock,
		performances: deps.Performances,
		clock:        clock,
		tx:           tx,
		numberSuffix: randomNumberSuffix,
	}
}

// ItemInput は発注明細の入力です。
type ItemInput struct {
	ProductID *string
	EPIID     *string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// CreateOrderInput は発注作成の入力です。
type CreateOrderInput struct {
	OrganizationID string
	SupplierID     string
	LocationID     *string
	ExpectedDate   *time.Time
	Notes          *string
	Items          []ItemInput
}

// GetOrderInput は発注を特定する入力です。
type GetOrderInput struct {
	OrganizationID string
	ID             string
}

// ListOrdersInput は発注一覧の入力です。
type ListOrdersInput struct {
	OrganizationID string
	SupplierID     *string
	Status         *Status
	PageSize       int
	PageToken      string
}

// ListOrdersResult は発注一覧の結果です。
type ListOrdersResult struct {
	Orders        []*Order
	NextPageToken string
}

// ReceiveOrderInput は入荷の入力です。
// ReceivedQuantities は明細 ID ごとの受領数で、省略した明細は発注数どおりに受領したものとします。
type ReceiveOrderInput struct {
	OrganizationID     string
	ID                 string
	ReceivedDate       *time.Time
	ReceivedQuantities map[string]decimal.Decimal
}

// CreateOrder は下書き状態の発注を作成します。
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	orgID, supplierID, err := normalizeKeys(in.OrganizationID, in.SupplierID)
	if err != nil {
		return nil, err
	}
	items, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	locationID := shared.NormalizeOptionalString(in.LocationID)
	if locationID == nil {
		for _, item := range items {
			if item.IsProduct() {
				return nil, ErrLocationRequired
			}
		}
	}

	var created *Order
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		sup, err := s.suppliers.FindByID(txCtx, orgID, supplierID)
		if err != nil {
			return err
		}
		if sup.Status != supplier.StatusActive {
			return supplier.ErrSupplierInactive
		}

		now := s.clock.Now()
		result, err := s.orders.Create(txCtx, &Order{
			OrganizationID: orgID,
			SupplierID:     supplierID,
			Number:         fmt.Sprintf("PO-%s-%s", now.Format("20060102"), s.numberSuffix()),
			Status:         StatusDraft,
			LocationID:     locationID,
			ExpectedDate:   shared.TruncateDate(in.ExpectedDate),
			Notes:          shared.NormalizeOptionalString(in.Notes),
			Items:          items,
			Total:          orderTotal(items),
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// GetOrder は明細付きで発注を取得します。
func (s *Service) GetOrder(ctx context.Context, in GetOrderInput) (*Order, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var found *Order
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.orders.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// ListOrders は発注一覧を取得します。
func (s *Service) ListOrders(ctx context.Context, in ListOrdersInput) (*ListOrdersResult, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	limit, err := shared.NormalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := shared.ParsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}

	result := &ListOrdersResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		orders, token, err := s.orders.List(txCtx, ListOrdersFilter{
			OrganizationID: orgID,
			SupplierID:     shared.NormalizeOptionalString(in.SupplierID),
			Status:         in.Status,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		result.Orders = orders
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// SendOrder は下書きを送付済みにします。
func (s *Service) SendOrder(ctx context.Context, in GetOrderInput) (*Order, error) {
	return s.transition(ctx, in, StatusSent)
}

// CancelOrder は下書きまたは送付済みの発注を取り消します。
func (s *Service) CancelOrder(ctx context.Context, in GetOrderInput) (*Order, error) {
	return s.transition(ctx, in, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, in GetOrderInput, next Status) (*Order, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var updated *Order
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%s to %s: %w", order.Status, next, ErrInvalidTransition)
		}
		order.Status = next
		order.UpdatedAt = s.clock.Now()
		result, err := s.orders.Update(txCtx, order)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// ReceiveOrder は送付済みの発注を入荷します。
// 商品明細の入庫、EPI 在庫の加算、仕入先の納入実績、状態の更新を 1 トランザクションで行い、
// いずれかが失敗した場合は何も反映しません。
func (s *Service) ReceiveOrder(ctx context.Context, in ReceiveOrderInput) (*Order, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	receivedDate := shared.TruncateDate(&now)
	if in.ReceivedDate != nil {
		receivedDate = shared.TruncateDate(in.ReceivedDate)
	}

	var received *Order
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(StatusReceived) {
			return fmt.Errorf("%s to %s: %w", order.Status, StatusReceived, ErrInvalidTransition)
		}
		if err := applyReceivedQuantities(order.Items, in.ReceivedQuantities); err != nil {
			return err
		}

		reference := order.Number
		ordered := decimal.Zero
		receivedTotal := decimal.Zero
		for _, item := range order.Items {
			ordered = ordered.Add(item.Quantity)
			receivedTotal = receivedTotal.Add(item.ReceivedQuantity)
			if !item.ReceivedQuantity.IsPositive() {
				continue
			}
			if err := s.receiveItem(txCtx, order, item, *receivedDate, &reference); err != nil {
				return err
			}
		}

		if _, err := s.performances.RecordPerformance(txCtx, supplier.RecordPerformanceInput{
			OrganizationID:   orgID,
			SupplierID:       order.SupplierID,
			PurchaseOrderID:  order.ID,
			ExpectedDate:     order.ExpectedDate,
			ReceivedDate:     *receivedDate,
			OrderedQuantity:  ordered,
			ReceivedQuantity: receivedTotal,
		}); err != nil {
			return fmt.Errorf("record performance: %w", err)
		}

		order.Status = StatusReceived
		order.ReceivedDate = receivedDate
		order.UpdatedAt = now
		result, err := s.orders.Update(txCtx, order)
		if err != nil {
			return err
		}
		received = result
		return nil
	}); err != nil {
		return nil, err
	}
	return received, nil
}

func (s *Service) receiveItem(ctx context.Context, order *Order, item *Item, receivedDate time.Time, reference *string) error {
	if item.IsProduct() {
		if order.LocationID == nil {
			return ErrLocationRequired
		}
		unitCost := item.UnitCost
		if _, err := s.stock.RegisterEntry(ctx, stock.MovementInput{
			OrganizationID: order.OrganizationID,
			ProductID:      *item.ProductID,
			LocationID:     *order.LocationID,
			Quantity:       item.ReceivedQuantity,
			UnitCost:       &unitCost,
			Reference:      reference,
			OccurredAt:     &receivedDate,
		}); err != nil {
			return fmt.Errorf("stock entry for item %s: %w", item.ID, err)
		}
		return nil
	}

	if _, err := s.epiStock.AdjustStock(ctx, epi.AdjustStockInput{
		OrganizationID: order.OrganizationID,
		ID:             *item.EPIID,
		Delta:          int(item.ReceivedQuantity.IntPart()),
	}); err != nil {
		return fmt.Errorf("epi stock for item %s: %w", item.ID, err)
	}
	return nil
}

// applyReceivedQuantities は受領数を明細に反映します。EPI 明細は整数のみ受け付けます。
func applyReceivedQuantities(items []*Item, quantities map[string]decimal.Decimal) error {
	byID := make(map[string]*Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
		item.ReceivedQuantity = item.Quantity
	}
	for id, qty := range quantities {
		item, ok := byID[id]
		if !ok {
			return fmt.Errorf("item %s: %w", id, ErrUnknownItem)
		}
		if qty.IsNegative() || (!item.IsProduct() && !qty.IsInteger()) {
			return fmt.Errorf("item %s: %w", id, ErrInvalidQuantity)
		}
		item.ReceivedQuantity = qty
	}
	return nil
}

func normalizeItems(inputs []ItemInput) ([]*Item, error) {
	if len(inputs) == 0 {
		return nil, ErrNoItems
	}
	items := make([]*Item, 0, len(inputs))
	for i, in := range inputs {
		productID := shared.NormalizeOptionalString(in.ProductID)
		epiID := shared.NormalizeOptionalString(in.EPIID)
		if (productID == nil) == (epiID == nil) {
			return nil, fmt.Errorf("item %d: %w", i+1, ErrInvalidItem)
		}
		if !in.Quantity.IsPositive() || (epiID != nil && !in.Quantity.IsInteger()) {
			return nil, fmt.Errorf("item %d: %w", i+1, ErrInvalidQuantity)
		}
		if in.UnitCost.IsNegative() {
			return nil, fmt.Errorf("item %d: %w", i+1, ErrInvalidUnitCost)
		}
		items = append(items, &Item{
			ProductID: productID,
			EPIID:     epiID,
			Quantity:  in.Quantity,
			UnitCost:  in.UnitCost,
		})
	}
	return items, nil
}

func normalizeKeys(rawOrgID, rawID string) (string, string, error) {
	orgID, err := shared.NormalizeOrganizationID(rawOrgID)
	if err != nil {
		return "", "", err
	}
	id := strings.TrimSpace(rawID)
	if id == "" {
		return "", "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	return orgID, id, nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusDraft, StatusSent, StatusReceived, StatusCancelled:
		return true
	default:
		return false
	}
}

func randomNumberSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
