package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/stock"
)

// StockHandler は stockly.v1.StockService の gRPC 実装です。
type StockHandler struct {
	svc stock.UseCase
}

// NewStockHandler は StockHandler を生成します。
func NewStockHandler(svc stock.UseCase) *StockHandler {
	return &StockHandler{svc: svc}
}

// Register は StockService を登録します。
func (h *StockHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("StockService", map[string]unaryMethod{
		"CreateLocation": h.createLocation,
		"ListLocations":  h.listLocations,
		"RegisterEntry":  h.registerEntry,
		"RegisterExit":   h.registerExit,
		"Transfer":       h.transfer,
		"ListMovements":  h.listMovements,
		"Balances":       h.balances,
	}), h)
}

func (h *StockHandler) createLocation(ctx context.Context, req *request) (object, error) {
	in := stock.CreateLocationInput{
		OrganizationID: req.str("organization_id"),
		Code:           req.str("code"),
		Name:           req.str("name"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateLocation(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"location": nested(locationObject(created))}, nil
}

func (h *StockHandler) listLocations(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	locations, err := h.svc.ListLocations(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return object{"locations": listValue(locations, locationObject)}, nil
}

func movementInput(req *request) stock.MovementInput {
	return stock.MovementInput{
		OrganizationID: req.str("organization_id"),
		ProductID:      req.str("product_id"),
		LocationID:     req.str("location_id"),
		Quantity:       req.dec("quantity"),
		UnitCost:       req.optDec("unit_cost"),
		Reference:      req.optStr("reference"),
		OccurredAt:     req.optTime("occurred_at"),
	}
}

func (h *StockHandler) registerEntry(ctx context.Context, req *request) (object, error) {
	in := movementInput(req)
	if err := req.validate(); err != nil {
		return nil, err
	}

	m, err := h.svc.RegisterEntry(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"movement": nested(movementObject(m))}, nil
}

func (h *StockHandler) registerExit(ctx context.Context, req *request) (object, error) {
	in := movementInput(req)
	if err := req.validate(); err != nil {
		return nil, err
	}

	m, err := h.svc.RegisterExit(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"movement": nested(movementObject(m))}, nil
}

func (h *StockHandler) transfer(ctx context.Context, req *request) (object, error) {
	in := stock.TransferInput{
		OrganizationID: req.str("organization_id"),
		ProductID:      req.str("product_id"),
		FromLocationID: req.str("from_location_id"),
		ToLocationID:   req.str("to_location_id"),
		Quantity:       req.dec("quantity"),
		Reference:      req.optStr("reference"),
		OccurredAt:     req.optTime("occurred_at"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	t, err := h.svc.Transfer(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{
		"out": nested(movementObject(t.Out)),
		"in":  nested(movementObject(t.In)),
	}, nil
}

func (h *StockHandler) listMovements(ctx context.Context, req *request) (object, error) {
	in := stock.ListMovementsInput{
		OrganizationID: req.str("organization_id"),
		ProductID:      req.optStr("product_id"),
		LocationID:     req.optStr("location_id"),
		From:           req.optTime("from"),
		To:             req.optTime("to"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
	}
	if t := req.optStr("type"); t != nil && *t != "" {
		typ := stock.MovementType(*t)
		in.Type = &typ
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListMovements(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("movements", listValue(result.Movements, movementObject), result.NextPageToken), nil
}

func (h *StockHandler) balances(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	productID := req.optStr("product_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	balances, err := h.svc.Balances(ctx, orgID, productID)
	if err != nil {
		return nil, err
	}
	return object{"balances": listValue(balances, func(b *stock.Balance) object {
		return object{
			"product_id":  b.ProductID,
			"location_id": b.LocationID,
			"quantity":    decValue(b.Quantity),
			"updated_at":  timeValue(b.UpdatedAt),
		}
	})}, nil
}

func locationObject(l *stock.Location) object {
	if l == nil {
		return nil
	}
	return object{
		"id":              l.ID,
		"organization_id": l.OrganizationID,
		"code":            l.Code,
		"name":            l.Name,
		"created_at":      timeValue(l.CreatedAt),
	}
}

func movementObject(m *stock.Movement) object {
	if m == nil {
		return nil
	}
	return object{
		"id":              m.ID,
		"organization_id": m.OrganizationID,
		"product_id":      m.ProductID,
		"location_id":     m.LocationID,
		"type":            string(m.Type),
		"quantity":        decValue(m.Quantity),
		"unit_cost":       decValue(m.UnitCost),
		"value":           decValue(m.Value()),
		"reference":       optStringValue(m.Reference),
		"occurred_at":     timeValue(m.OccurredAt),
		"created_at":      timeValue(m.CreatedAt),
	}
}
