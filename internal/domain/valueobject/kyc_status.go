package valueobject

import "fmt"

// KYCStatus is the identity-verification outcome for a borrower.
type KYCStatus struct {
	value string
}

const (
	kycStatusPending  = "pending"
	kycStatusApproved = "approved"
	kycStatusRejected = "rejected"
)

var (
	KYCStatusPending  = KYCStatus{value: kycStatusPending}
	KYCStatusApproved = KYCStatus{value: kycStatusApproved}
	KYCStatusRejected = KYCStatus{value: kycStatusRejected}
)

func NewKYCStatus(s string) (KYCStatus, error) {
	switch s {
	case kycStatusPending:
		return KYCStatusPending, nil
	case kycStatusApproved:
		return KYCStatusApproved, nil
	case kycStatusRejected:
		return KYCStatusRejected, nil
	default:
		return KYCStatus{}, fmt.Errorf("invalid kyc status: %q", s)
	}
}

func (s KYCStatus) String() string { return s.value }

func (s KYCStatus) IsApproved() bool { return s.value == kycStatusApproved }
