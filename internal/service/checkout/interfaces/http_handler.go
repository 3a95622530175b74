// internal/service/checkout/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/retry"
	"bazaar/internal/service/checkout/application"
	"bazaar/internal/service/checkout/domain"
)

// CheckoutHandler 封装了结账核心的 HTTP 处理器。
// 归属从 X-User-ID / X-Session-ID 头解析：有用户 ID 走持久化购物车，
// 否则按匿名会话处理。
type CheckoutHandler struct {
	carts     *application.CartService
	checkout  *application.CheckoutService
	inventory *application.InventoryService
}

// NewCheckoutHandler 创建一个新的 HTTP 处理器实例
func NewCheckoutHandler(carts *application.CartService, checkout *application.CheckoutService, inventory *application.InventoryService) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, checkout: checkout, inventory: inventory}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/cart", h.getCart)
	mux.HandleFunc("/cart/add", h.addToCart)
	mux.HandleFunc("/cart/update", h.updateCart)
	mux.HandleFunc("/cart/remove", h.removeFromCart)
	mux.HandleFunc("/cart/clear", h.clearCart)
	mux.HandleFunc("/checkout/prepare", h.prepareCheckout)
	mux.HandleFunc("/checkout/place_order", h.placeOrder)
	mux.HandleFunc("/payment/callback", h.paymentCallback)
	mux.HandleFunc("/orders/restore", h.restoreOrder)
}

func ownerFromRequest(r *http.Request) domain.Owner {
	return domain.Owner{
		UserID:    r.Header.Get("X-User-ID"),
		SessionID: r.Header.Get("X-Session-ID"),
	}
}

type cartMutationRequest struct {
	VariantID uint `json:"variantId"`
	Quantity  int  `json:"quantity"`
}

func (h *CheckoutHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	lines, err := h.carts.Get(ctx, ownerFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

func (h *CheckoutHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.carts.Add(ctx, ownerFromRequest(r), req.VariantID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) updateCart(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.carts.Update(ctx, ownerFromRequest(r), req.VariantID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.carts.Remove(ctx, ownerFromRequest(r), req.VariantID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	if err := h.carts.Clear(ctx, ownerFromRequest(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type prepareCheckoutRequest struct {
	PromoCode string `json:"promoCode,omitempty"`
}

func (h *CheckoutHandler) prepareCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	var req prepareCheckoutRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	summary, err := h.checkout.PrepareCheckout(ctx, ownerFromRequest(r), req.PromoCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type placeOrderRequest struct {
	CheckoutToken string `json:"checkoutToken,omitempty"`
	PromoCode     string `json:"promoCode,omitempty"`
}

func (h *CheckoutHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	var req placeOrderRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	// 结算令牌由客户端在进入结算时生成并保持；缺省时补发一个
	if req.CheckoutToken == "" {
		req.CheckoutToken = uuid.New().String()
	}
	result, err := h.checkout.PlaceOrder(ctx, ownerFromRequest(r), req.CheckoutToken, req.PromoCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *CheckoutHandler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	var event domain.PaymentResultEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.inventory.HandlePaymentResult(ctx, &event); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type restoreOrderRequest struct {
	OrderNo string `json:"orderNo"`
}

func (h *CheckoutHandler) restoreOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	var req restoreOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.inventory.Restore(ctx, req.OrderNo); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func extractContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError 把领域错误映射为 HTTP 响应。
// 只有库存不足和重试耗尽会以可操作的信息呈现给购买者，
// 其余错误记日志后返回通用消息。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     "insufficient_stock",
			"variantId": insufficient.VariantID,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.Is(err, retry.ErrExhausted):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "busy",
			"message": "checkout is busy, please try again",
		})
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrPromotionNotApplicable):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrVariantNotFound), errors.Is(err, domain.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "cannot complete checkout, please try again", http.StatusInternalServerError)
	}
}
