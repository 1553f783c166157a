package handlers

import (
	"errors"

	gateway "novac/kit/external_payment_gateway"
)

// verificationMessage is the provider's own message when it gave one.
func verificationMessage(err error) string {
	var ge *gateway.Error
	if errors.As(err, &ge) && ge.Message != "" && !errors.Is(ge, gateway.ErrTransport) {
		return ge.Message
	}
	return "Failed to verify transaction"
}

func gatewayBody(err error) string {
	var ge *gateway.Error
	if errors.As(err, &ge) {
		return string(ge.Body)
	}
	return ""
}
