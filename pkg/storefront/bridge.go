package storefront

import (
	"context"
	"fmt"
)

// HostBridge is the host platform capability injected into a Session.
type HostBridge interface {
	Ready()
	Expand()
	InitData() string
	// ShowPopup presents the options and blocks until a button resolves the
	// popup. An empty id means the popup was dismissed.
	ShowPopup(ctx context.Context, options PopupOptions) (string, error)
}

// PopupOptions describes a confirm-with-choice popup.
type PopupOptions struct {
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Buttons []PopupButton `json:"buttons"`
}

// PopupButton is a single popup choice.
type PopupButton struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func paymentPopup(product Product) PopupOptions {
	buttons := make([]PopupButton, 0, len(PaymentMethods())+1)
	for _, method := range PaymentMethods() {
		buttons = append(buttons, PopupButton{ID: method.String(), Type: popupButtonTypeNormal, Text: method.Label()})
	}
	buttons = append(buttons, PopupButton{ID: popupButtonIDCancel, Type: popupButtonTypeCancel})
	return PopupOptions{
		Title:   popupTitle,
		Message: fmt.Sprintf(popupMessageFormat, product.Name, product.Price.StringFixed(2)),
		Buttons: buttons,
	}
}

// resolveChoice maps the popup result to a payment method; ok is false on cancel.
func resolveChoice(buttonID string) (PaymentMethod, bool, error) {
	if buttonID == "" || buttonID == popupButtonIDCancel {
		return "", false, nil
	}
	method, err := ParsePaymentMethod(buttonID)
	if err != nil {
		return "", false, err
	}
	return method, true, nil
}
