package domain

// Transaction statuses. Stored lowercase.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Transaction purposes.
const (
	PurposeVIP      = "vip"
	PurposeRoulette = "roulette"
)

const (
	RouletteWin  = "win"
	RouletteLose = "lose"
)

const (
	NotifVIPActivated   = "VIP_ACTIVATED"
	NotifRouletteWin    = "ROULETTE_WIN"
	NotifPaymentPending = "PAYMENT_RECONCILIATION"
)

const (
	AuditPaymentApproved    = "payment_approved"
	AuditSettled            = "payment_settled"
	AuditTokenPoolExhausted = "token_pool_exhausted"
	AuditTokenRedeemed      = "token_redeemed"
	AuditRouletteSpin       = "roulette_spin"
	AuditAdminGrant         = "admin_vip_grant"
	AuditAdminRevoke        = "admin_vip_revoke"
	AuditTokensGenerated    = "tokens_generated"
	AuditReconcileRequested = "reconcile_requested"
)

// DefaultVIPDays is the entitlement window bought by one payment or token.
const DefaultVIPDays = 30
