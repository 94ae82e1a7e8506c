package storefront

const (
	operationMount    = "mount"
	operationLoad     = "load_catalog"
	operationPurchase = "purchase"

	operationStatusOK        = "ok"
	operationStatusError     = "error"
	operationStatusCancelled = "cancelled"

	initDataUserField = "user"
	emptyUserJSON     = "{}"

	authorizationScheme = "Bearer"
	redactedCredential  = "[redacted]"

	popupTitle            = "Выберите способ оплаты"
	popupMessageFormat    = "Товар: %s\nЦена: %s"
	popupButtonTypeNormal = "default"
	popupButtonTypeCancel = "cancel"
	popupButtonIDCancel   = "cancel"
	popupButtonTextUSDT   = "USDT"
	popupButtonTextTON    = "TON"
	popupButtonTextFiat   = "Рубли"
)
