package checkout

// WidgetOptions configures the processor's hosted payment widget.
type WidgetOptions struct {
	KeyID            string
	Amount           int64
	Currency         string
	Name             string
	Description      string
	ProcessorOrderID string
	PrefillEmail     string
	ThemeColor       string
}

// WidgetResult is what the processor hands back after a completed payment.
type WidgetResult struct {
	ProcessorOrderID string
	PaymentID        string
	Signature        string
}

// WidgetCallbacks receive the end of a widget session. Exactly one of them
// is expected to fire; later calls are ignored.
type WidgetCallbacks struct {
	OnSuccess func(WidgetResult)
	OnDismiss func()
}

// PaymentWidget is the processor's checkout UI. Open returns once the widget
// is shown; the outcome arrives through the callbacks.
type PaymentWidget interface {
	Open(opts WidgetOptions, cb WidgetCallbacks) error
}
