package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type enum in Postgres.
// Every balance mutation writes exactly one entry of one of these types.
type LedgerEntryType string

const (
	LedgerEntryTypeEarningsAccrued     LedgerEntryType = "earnings_accrued"
	LedgerEntryTypeWithdrawalRequested LedgerEntryType = "withdrawal_requested"
	LedgerEntryTypeWithdrawalApproved  LedgerEntryType = "withdrawal_approved"
	LedgerEntryTypeWithdrawalRejected  LedgerEntryType = "withdrawal_rejected"
	LedgerEntryTypeAdminAdjustment     LedgerEntryType = "admin_adjustment"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeEarningsAccrued,
	LedgerEntryTypeWithdrawalRequested,
	LedgerEntryTypeWithdrawalApproved,
	LedgerEntryTypeWithdrawalRejected,
	LedgerEntryTypeAdminAdjustment,
}

// IsValid reports whether the value matches the canonical ledger_entry_type enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
