package circulation

import "errors"

// Loan policy defaults.
const (
	DefaultLoanPeriodDays      = 14
	DefaultRenewalPeriodDays   = 14
	DefaultMaxRenewals         = 2
	DefaultBorrowingLimit      = 3
	DefaultAllowOverdueRenewal = true
)

// Policy holds the tunable lending rules.
type Policy struct {
	LoanPeriodDays    int
	RenewalPeriodDays int
	MaxRenewals       int

	// DefaultBorrowingLimit applies to patrons without an active plan.
	DefaultBorrowingLimit int

	// AllowOverdueRenewal permits renewing a loan that is already past due.
	AllowOverdueRenewal bool
}

// DefaultPolicy returns the standard lending rules.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:        DefaultLoanPeriodDays,
		RenewalPeriodDays:     DefaultRenewalPeriodDays,
		MaxRenewals:           DefaultMaxRenewals,
		DefaultBorrowingLimit: DefaultBorrowingLimit,
		AllowOverdueRenewal:   DefaultAllowOverdueRenewal,
	}
}

// Validate rejects policies that could never lend a book.
func (p Policy) Validate() error {
	var errs []error
	if p.LoanPeriodDays <= 0 {
		errs = append(errs, errors.New("loan period must be at least one day"))
	}
	if p.RenewalPeriodDays <= 0 {
		errs = append(errs, errors.New("renewal period must be at least one day"))
	}
	if p.MaxRenewals < 0 {
		errs = append(errs, errors.New("max renewals must not be negative"))
	}
	if p.DefaultBorrowingLimit <= 0 {
		errs = append(errs, errors.New("default borrowing limit must be positive"))
	}
	return errors.Join(errs...)
}
