package helpers

import (
	"strings"

	"github.com/eshop/storefront/pkg/enums"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
)

const (
	MsgEmptyCart     = "Your cart is empty!"
	MsgMissingAddr   = "Please enter your address!"
	MsgMissingMode   = "Please select a payment method!"
	MsgMissingMethod = "Please select an online payment method!"
)

// ValidateCart rejects leaving the cart step with nothing in it.
func ValidateCart(itemCount int) error {
	if itemCount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, MsgEmptyCart)
	}
	return nil
}

// ValidateAddress requires a non-blank shipping address.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, MsgMissingAddr)
	}
	return nil
}

// ValidatePayment requires a payment mode and, for online payments, a
// sub-method.
func ValidatePayment(mode enums.PaymentMode, method enums.OnlineMethod) error {
	if !mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, MsgMissingMode)
	}
	if mode == enums.PaymentModeOnline && !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, MsgMissingMethod)
	}
	return nil
}

// NormalizePincode strips spaces so "560 001" and "560001" compare equal.
func NormalizePincode(value string) string {
	return strings.Join(strings.Fields(value), "")
}
