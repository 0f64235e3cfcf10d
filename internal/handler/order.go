package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/online-nursery/internal/domain/order"
)

type placeOrderRequest struct {
	Name          string           `json:"name"`
	Phone         string           `json:"phone"`
	Address       string           `json:"address"`
	PaymentMethod string           `json:"paymentMethod"`
	CartItems     []order.CartItem `json:"cartItems"`
}

type placeOrderResponse struct {
	Message string       `json:"message"`
	Order   *order.Order `json:"order"`
}

type outOfStockResponse struct {
	Message         string                 `json:"message"`
	OutOfStockItems []order.UnresolvedItem `json:"outOfStockItems"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		zctx.From(r.Context()).Debug("Malformed order body", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid order data")
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		CartItems:     req.CartItems,
	})
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		Message: "Order created successfully",
		Order:   o,
	})
}

// mapOrderError converts order placement errors to HTTP responses.
func (h *Handler) mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrInvalidOrderRequest) {
		zctx.From(r.Context()).Debug("Invalid order", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid order data")
		return
	}

	var oos *order.OutOfStockError
	if errors.As(err, &oos) {
		writeJSON(w, http.StatusBadRequest, outOfStockResponse{
			Message:         "Some items are out of stock",
			OutOfStockItems: oos.Items,
		})
		return
	}

	serverError(w, r, "Place order", err)
}
