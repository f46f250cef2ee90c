package ports

import "context"

// Invoice is the billing collaborator's answer to an invoice request: an
// opaque Lightning payment request plus a reference used to verify
// settlement.
type Invoice struct {
	PaymentRequest string
	VerifyRef      string
}

// Settlement reports whether an invoice has been paid, with the payment
// proof once it has.
type Settlement struct {
	Settled  bool
	Preimage string
}

type BillingClient interface {
	RequestInvoice(ctx context.Context, amountMsat int64, payee string) (Invoice, error)
	Verify(ctx context.Context, verifyRef string) (Settlement, error)
}

// Wallet is the optional automatic-payment capability. Absence of a wallet
// routes sends through the manual QR/poll path.
type Wallet interface {
	PayInvoice(ctx context.Context, paymentRequest string) (preimage string, err error)
}

// ProofChecker confirms that a payment proof settles a given invoice.
type ProofChecker interface {
	IsSettled(ctx context.Context, invoice Invoice, preimage string) (bool, error)
}
