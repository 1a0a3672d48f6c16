package handler

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/purchasing"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

// PurchasingHandler は stockly.v1.PurchasingService の gRPC 実装です。
type PurchasingHandler struct {
	svc purchasing.UseCase
}

// NewPurchasingHandler は PurchasingHandler を生成します。
func NewPurchasingHandler(svc purchasing.UseCase) *PurchasingHandler {
	return &PurchasingHandler{svc: svc}
}

// Register は PurchasingService を登録します。
func (h *PurchasingHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("PurchasingService", map[string]unaryMethod{
		"CreateOrder":  h.createOrder,
		"GetOrder":     h.getOrder,
		"ListOrders":   h.listOrders,
		"SendOrder":    h.sendOrder,
		"CancelOrder":  h.cancelOrder,
		"ReceiveOrder": h.receiveOrder,
	}), h)
}

func (h *PurchasingHandler) createOrder(ctx context.Context, req *request) (object, error) {
	in := purchasing.CreateOrderInput{
		OrganizationID: req.str("organization_id"),
		SupplierID:     req.str("supplier_id"),
		LocationID:     req.optStr("location_id"),
		ExpectedDate:   req.optTime("expected_date"),
		Notes:          req.optStr("notes"),
	}
	items := req.objects("items")
	for _, item := range items {
		in.Items = append(in.Items, purchasing.ItemInput{
			ProductID: item.optStr("product_id"),
			EPIID:     item.optStr("epi_id"),
			Quantity:  item.dec("quantity"),
			UnitCost:  item.dec("unit_cost"),
		})
	}
	req.collect(items)
	if err := req.validate(); err != nil {
		return nil, err
	}

	order, err := h.svc.CreateOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"order": nested(orderObject(order))}, nil
}

func (h *PurchasingHandler) orderInput(req *request) (purchasing.GetOrderInput, error) {
	in := purchasing.GetOrderInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	return in, req.validate()
}

func (h *PurchasingHandler) getOrder(ctx context.Context, req *request) (object, error) {
	in, err := h.orderInput(req)
	if err != nil {
		return nil, err
	}
	order, err := h.svc.GetOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"order": nested(orderObject(order))}, nil
}

func (h *PurchasingHandler) sendOrder(ctx context.Context, req *request) (object, error) {
	in, err := h.orderInput(req)
	if err != nil {
		return nil, err
	}
	order, err := h.svc.SendOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"order": nested(orderObject(order))}, nil
}

func (h *PurchasingHandler) cancelOrder(ctx context.Context, req *request) (object, error) {
	in, err := h.orderInput(req)
	if err != nil {
		return nil, err
	}
	order, err := h.svc.CancelOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"order": nested(orderObject(order))}, nil
}

func (h *PurchasingHandler) listOrders(ctx context.Context, req *request) (object, error) {
	in := purchasing.ListOrdersInput{
		OrganizationID: req.str("organization_id"),
		SupplierID:     req.optStr("supplier_id"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
	}
	if s := req.optStr("status"); s != nil && *s != "" {
		st := purchasing.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListOrders(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("orders", listValue(result.Orders, orderObject), result.NextPageToken), nil
}

// receiveOrder の received_quantities は [{"item_id": ..., "quantity": ...}] です。
// 省略した明細は発注数量どおりに受け入れます。
func (h *PurchasingHandler) receiveOrder(ctx context.Context, req *request) (object, error) {
	in := purchasing.ReceiveOrderInput{
		OrganizationID: req.str("organization_id"),
		ID:             req.str("id"),
		ReceivedDate:   req.optTime("received_date"),
	}
	quantities := req.objects("received_quantities")
	if len(quantities) > 0 {
		in.ReceivedQuantities = make(map[string]decimal.Decimal, len(quantities))
		for _, q := range quantities {
			in.ReceivedQuantities[q.str("item_id")] = q.dec("quantity")
		}
	}
	req.collect(quantities)
	if err := req.validate(); err != nil {
		return nil, err
	}

	order, err := h.svc.ReceiveOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"order": nested(orderObject(order))}, nil
}

func orderObject(o *purchasing.Order) object {
	if o == nil {
		return nil
	}
	return object{
		"id":              o.ID,
		"organization_id": o.OrganizationID,
		"supplier_id":     o.SupplierID,
		"number":          o.Number,
		"status":          string(o.Status),
		"location_id":     optStringValue(o.LocationID),
		"expected_date":   dateValue(o.ExpectedDate),
		"received_date":   dateValue(o.ReceivedDate),
		"notes":           optStringValue(o.Notes),
		"total":           decValue(o.Total),
		"total_brl":       format.FormatBRL(o.Total),
		"items": listValue(o.Items, func(i *purchasing.Item) object {
			return object{
				"id":                i.ID,
				"product_id":        optStringValue(i.ProductID),
				"epi_id":            optStringValue(i.EPIID),
				"quantity":          decValue(i.Quantity),
				"received_quantity": decValue(i.ReceivedQuantity),
				"unit_cost":         decValue(i.UnitCost),
				"total":             decValue(i.Total()),
			}
		}),
		"created_at": timeValue(o.CreatedAt),
		"updated_at": timeValue(o.UpdatedAt),
	}
}
