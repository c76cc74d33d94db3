package controllers

import (
	"net/http"

	"github.com/eshop/storefront/api/responses"
	"github.com/eshop/storefront/api/validators"
	"github.com/eshop/storefront/internal/checkout"
	"github.com/eshop/storefront/internal/orders"
	"github.com/eshop/storefront/internal/storefront"
	"github.com/eshop/storefront/pkg/enums"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/payment"
)

type addressRequest struct {
	FullName string `json:"full_name" validate:"max=120"`
	Phone    string `json:"phone" validate:"max=20"`
	Email    string `json:"email" validate:"omitempty,email"`
	Pincode  string `json:"pincode" validate:"max=10"`
	Address  string `json:"address" validate:"max=500"`
}

type paymentRequest struct {
	PaymentMode    string `json:"payment_mode" validate:"omitempty,oneof=COD Online"`
	OnlineMethod   string `json:"online_method" validate:"omitempty,oneof=UPI NetBanking Card"`
	PaymentDetails string `json:"payment_details" validate:"max=200"`
}

type submitResponse struct {
	Order   *orders.OrderDTO       `json:"order,omitempty"`
	Payment *payment.WidgetSession `json:"payment,omitempty"`
	State   checkout.State         `json:"state"`
}

func CheckoutState(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tab.Checkout.State())
	}
}

// CheckoutNext advances one step. Leaving the payment step submits the order.
func CheckoutNext(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if tab.Checkout.State().Step == checkout.StepPayment {
			submit(w, r, tab, logg)
			return
		}
		state, err := tab.Checkout.Next(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func CheckoutBack(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := tab.Checkout.Back()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func CheckoutAddress(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body addressRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := tab.Checkout.SetAddress(checkout.AddressInput{
			FullName: validators.SanitizeString(body.FullName, 120),
			Phone:    validators.SanitizeString(body.Phone, 20),
			Email:    body.Email,
			Pincode:  body.Pincode,
			Address:  body.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

func CheckoutPayment(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := tab.Checkout.SetPayment(checkout.PaymentInput{
			Mode:    enums.PaymentMode(body.PaymentMode),
			Method:  enums.OnlineMethod(body.OnlineMethod),
			Details: body.PaymentDetails,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// CheckoutSubmit places the order. Online payments answer 202 with the
// widget session and finish through CheckoutPaymentCallback.
func CheckoutSubmit(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		submit(w, r, tab, logg)
	}
}

// CheckoutPaymentCallback delivers the hosted widget's result.
func CheckoutPaymentCallback(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := currentTab(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body payment.Callback
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := tab.ResolvePayment(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submitResponse{Order: res.Order, State: tab.Checkout.State()})
	}
}

func submit(w http.ResponseWriter, r *http.Request, tab *storefront.Tab, logg *logger.Logger) {
	res, err := tab.Submit(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	resp := submitResponse{Order: res.Order, Payment: res.Payment, State: tab.Checkout.State()}
	if res.Payment != nil {
		responses.WriteSuccessStatus(w, http.StatusAccepted, resp)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, resp)
}
