package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/core/stock"
)

const (
	maxForecastPeriods = 24
	movementPageSize   = 500
)

// MovementSource は stock.MovementRepository が満たします。
type MovementSource interface {
	List(ctx context.Context, filter stock.ListMovementsFilter) ([]*stock.Movement, string, error)
}

// ProductSource は product.Repository が満たします。
type ProductSource interface {
	ListAll(ctx context.Context, organizationID string) ([]*product.Product, error)
}

// BalanceSource は stock.BalanceRepository が満たします。
type BalanceSource interface {
	List(ctx context.Context, organizationID string, productID *string) ([]*stock.Balance, error)
}

// Sources は分析に使う読み取り専用のポートです。
type Sources struct {
	Movements MovementSource
	Products  ProductSource
	Balances  BalanceSource
}

// Service は組織ごとにデータを読み込み、純粋関数で分析します。
type Service struct {
	movements MovementSource
	products  ProductSource
	balances  BalanceSource
	tx        shared.TransactionManager
}

// UseCase は分析ユースケースの公開インターフェースです。
type UseCase interface {
	ABC(ctx context.Context, in PeriodInput) (*ABCResult, error)
	Forecast(ctx context.Context, in ForecastInput) (*Forecast, error)
	Turnover(ctx context.Context, in TurnoverInput) ([]*Turnover, error)
}

// NewService は Service を生成します。
func NewService(sources Sources, tx shared.TransactionManager) *Service {
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	return &Service{
		movements: sources.Movements,
		products:  sources.Products,
		balances:  sources.Balances,
		tx:        tx,
	}
}

// PeriodInput は期間指定の入力です。To は含みます。
type PeriodInput struct {
	OrganizationID string
	From           time.Time
	To             time.Time
}

// ForecastInput は需要予測の入力です。
type ForecastInput struct {
	OrganizationID string
	ProductID      string
	From           time.Time
	To             time.Time
	Periods        int
}

// TurnoverInput は在庫回転の入力です。ProductID 省略時は全商品です。
type TurnoverInput struct {
	OrganizationID string
	ProductID      *string
	From           time.Time
	To             time.Time
}

// ABC は期間内の出庫金額で ABC 分析を行います。
func (s *Service) ABC(ctx context.Context, in PeriodInput) (*ABCResult, error) {
	orgID, err := validatePeriod(in.OrganizationID, in.From, in.To)
	if err != nil {
		return nil, err
	}

	var result *ABCResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		products, err := s.products.ListAll(txCtx, orgID)
		if err != nil {
			return err
		}
		exits, err := s.loadMovements(txCtx, stock.ListMovementsFilter{
			OrganizationID: orgID,
			Types:          []stock.MovementType{stock.MovementExit},
			From:           &in.From,
			To:             &in.To,
		})
		if err != nil {
			return err
		}

		byProduct := make(map[string]*Consumption, len(products))
		items := make([]*Consumption, 0, len(products))
		for _, p := range products {
			c := &Consumption{ProductID: p.ID, SKU: p.SKU, Name: p.Name, Quantity: decimal.Zero, Value: decimal.Zero}
			byProduct[p.ID] = c
			items = append(items, c)
		}
		for _, m := range exits {
			c, ok := byProduct[m.ProductID]
			if !ok {
				continue
			}
			c.Quantity = c.Quantity.Add(m.Quantity)
			c.Value = c.Value.Add(m.Value())
		}

		consumption := make([]Consumption, 0, len(items))
		for _, c := range items {
			consumption = append(consumption, *c)
		}
		result = ClassifyABC(consumption)
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Forecast は商品の月次出庫から次の期間を予測します。
func (s *Service) Forecast(ctx context.Context, in ForecastInput) (*Forecast, error) {
	orgID, err := validatePeriod(in.OrganizationID, in.From, in.To)
	if err != nil {
		return nil, err
	}
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, fmt.Errorf("product id: %w", ErrInvalidID)
	}
	if in.Periods < 1 || in.Periods > maxForecastPeriods {
		return nil, ErrInvalidHorizon
	}

	var result *Forecast
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		exits, err := s.loadMovements(txCtx, stock.ListMovementsFilter{
			OrganizationID: orgID,
			ProductID:      &productID,
			Types:          []stock.MovementType{stock.MovementExit},
			From:           &in.From,
			To:             &in.To,
		})
		if err != nil {
			return err
		}
		points := make([]Point, 0, len(exits))
		for _, m := range exits {
			points = append(points, Point{At: m.OccurredAt, Quantity: m.Quantity})
		}
		result = ForecastLinear(BucketMonthly(points, in.From, in.To), in.Periods)
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Turnover は期間内の在庫回転と在庫日数を商品ごとに求めます。
// 平均在庫は期首と期末の残高の平均で、期末残高は現在庫から期間後の移動を差し引いて求めます。
func (s *Service) Turnover(ctx context.Context, in TurnoverInput) ([]*Turnover, error) {
	orgID, err := validatePeriod(in.OrganizationID, in.From, in.To)
	if err != nil {
		return nil, err
	}
	productID := shared.NormalizeOptionalString(in.ProductID)
	days := int(math.Ceil(in.To.Sub(in.From).Hours() / 24))
	if days < 1 {
		days = 1
	}

	var result []*Turnover
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		balances, err := s.balances.List(txCtx, orgID, productID)
		if err != nil {
			return err
		}
		movements, err := s.loadMovements(txCtx, stock.ListMovementsFilter{
			OrganizationID: orgID,
			ProductID:      productID,
			From:           &in.From,
		})
		if err != nil {
			return err
		}

		current := make(map[string]decimal.Decimal)
		var order []string
		for _, b := range balances {
			if _, ok := current[b.ProductID]; !ok {
				order = append(order, b.ProductID)
			}
			current[b.ProductID] = current[b.ProductID].Add(b.Quantity)
		}

		netAfter := make(map[string]decimal.Decimal)
		netDuring := make(map[string]decimal.Decimal)
		consumed := make(map[string]decimal.Decimal)
		for _, m := range movements {
			if _, ok := current[m.ProductID]; !ok {
				current[m.ProductID] = decimal.Zero
				order = append(order, m.ProductID)
			}
			delta := m.Quantity.Mul(decimal.NewFromInt(int64(m.Type.Sign())))
			if m.OccurredAt.After(in.To) {
				netAfter[m.ProductID] = netAfter[m.ProductID].Add(delta)
				continue
			}
			netDuring[m.ProductID] = netDuring[m.ProductID].Add(delta)
			if m.Type == stock.MovementExit {
				consumed[m.ProductID] = consumed[m.ProductID].Add(m.Quantity)
			}
		}

		two := decimal.NewFromInt(2)
		for _, id := range order {
			closing := current[id].Sub(netAfter[id])
			opening := closing.Sub(netDuring[id])
			average := opening.Add(closing).Div(two)
			if average.IsNegative() {
				average = decimal.Zero
			}
			result = append(result, ComputeTurnover(id, consumed[id], average, current[id], days))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) loadMovements(ctx context.Context, filter stock.ListMovementsFilter) ([]*stock.Movement, error) {
	var all []*stock.Movement
	filter.Limit = movementPageSize
	for {
		page, token, err := s.movements.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if token == "" {
			return all, nil
		}
		next, err := shared.ParsePageToken(token)
		if err != nil {
			return nil, err
		}
		filter.Offset = next
	}
}

func validatePeriod(rawOrgID string, from, to time.Time) (string, error) {
	orgID, err := shared.NormalizeOrganizationID(rawOrgID)
	if err != nil {
		return "", err
	}
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return "", ErrInvalidPeriod
	}
	return orgID, nil
}
