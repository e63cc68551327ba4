package models

// ProjectStatus константы статусов проектов
const (
	ProjectStatusOpen          = "open"
	ProjectStatusInProgress    = "in_progress"
	ProjectStatusWorkSubmitted = "work_submitted"
	ProjectStatusCompleted     = "completed"
	ProjectStatusCancelled     = "cancelled"
)

// BidStatus константы статусов откликов
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// ContractStatus константы статусов контрактов
const (
	ContractStatusActive        = "active"
	ContractStatusWorkSubmitted = "work_submitted"
	ContractStatusCompleted     = "completed"
	ContractStatusDisputed      = "disputed"
	ContractStatusTerminated    = "terminated"
	ContractStatusCancelled     = "cancelled"
)

// EscrowStatus константы статусов escrow
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// DisputeStatus константы статусов споров
const (
	DisputeStatusOpen           = "open"
	DisputeStatusUnderReview    = "under_review"
	DisputeStatusResolvedRefund = "resolved_refund"
	DisputeStatusResolvedPayout = "resolved_payout"
)

// DisputeReason причины открытия спора
const (
	DisputeReasonMissedDeadline = "missed_deadline"
	DisputeReasonPoorQuality    = "poor_quality"
	DisputeReasonPaymentIssue   = "payment_issue"
	DisputeReasonScopeCreep     = "scope_creep"
	DisputeReasonOther          = "other"
)

// DisputeAction решения арбитра по спору
const (
	DisputeActionRefundClient  = "refund_client"
	DisputeActionPayContractor = "pay_contractor"
)

// Role роли пользователей
const (
	RoleClient     = "client"
	RoleContractor = "contractor"
	RoleAdmin      = "admin"
)

// NotificationEvent типы событий уведомлений
const (
	EventBidReceived     = "bid_received"
	EventBidAccepted     = "bid_accepted"
	EventWorkSubmitted   = "work_submitted"
	EventPaymentReleased = "payment_released"
	EventDisputeOpened   = "dispute_opened"
	EventDisputeResolved = "dispute_resolved"
)

// Типы транзакций кошелька
const (
	TransactionTypeDeposit      = "deposit"
	TransactionTypeEscrowDebit  = "escrow_debit"
	TransactionTypeEscrowCredit = "escrow_credit"
)

// ValidDisputeReasons список валидных причин спора
var ValidDisputeReasons = map[string]struct{}{
	DisputeReasonMissedDeadline: {},
	DisputeReasonPoorQuality:    {},
	DisputeReasonPaymentIssue:   {},
	DisputeReasonScopeCreep:     {},
	DisputeReasonOther:          {},
}

// ValidDisputeActions список валидных решений по спору
var ValidDisputeActions = map[string]struct{}{
	DisputeActionRefundClient:  {},
	DisputeActionPayContractor: {},
}

// ValidRoles список валидных ролей
var ValidRoles = map[string]struct{}{
	RoleClient:     {},
	RoleContractor: {},
	RoleAdmin:      {},
}

// TerminalContractStatuses статусы, после которых контракт неизменяем
var TerminalContractStatuses = map[string]struct{}{
	ContractStatusCompleted:  {},
	ContractStatusTerminated: {},
	ContractStatusCancelled:  {},
}

// IsTerminalContractStatus сообщает, является ли статус контракта терминальным.
func IsTerminalContractStatus(status string) bool {
	_, ok := TerminalContractStatuses[status]
	return ok
}
