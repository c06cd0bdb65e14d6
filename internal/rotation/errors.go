package rotation

import (
	"errors"
	"fmt"
)

// Code identifies a business-rule violation. The set is closed; every
// engine failure that isn't a storage or transfer fault carries one.
type Code uint32

const (
	CodeGroupNotFound              Code = 2
	CodeMaxMembersExceeded         Code = 3
	CodeAlreadyMember              Code = 4
	CodeNotMember                  Code = 5
	CodeAlreadyContributed         Code = 6
	CodeIncompleteContributions    Code = 7
	CodeAlreadyReceivedPayout      Code = 8
	CodeGroupComplete              Code = 9
	CodeContributionAmountZero     Code = 10
	CodeCycleDurationZero          Code = 11
	CodeMaxMembersBelowMinimum     Code = 12
	CodeMaxMembersAboveLimit       Code = 13
	CodeTransferFailed             Code = 15
	CodeUnauthorized               Code = 17
	CodeOutsideCycleWindow         Code = 18
	CodeContributionAmountNegative Code = 19
	CodeMetadataNameTooLong        Code = 20
	CodeMetadataDescriptionTooLong Code = 21
	CodeMetadataRulesTooLong       Code = 22
	CodeNotEligibleForWithdrawal   Code = 23
	CodeAlreadyWithdrawn           Code = 24
	CodeWithdrawalAfterPayout      Code = 25
	CodeContributionAmountTooLarge Code = 26
	CodeCycleDurationTooLarge      Code = 27
)

// Error is a rotation rule violation. Compare with errors.Is against the
// Err* sentinels; the wrapped detail doesn't affect matching.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrGroupNotFound              = &Error{CodeGroupNotFound, "group not found"}
	ErrMaxMembersExceeded         = &Error{CodeMaxMembersExceeded, "group is full"}
	ErrAlreadyMember              = &Error{CodeAlreadyMember, "already a member of this group"}
	ErrNotMember                  = &Error{CodeNotMember, "not a member of this group"}
	ErrAlreadyContributed         = &Error{CodeAlreadyContributed, "already contributed this cycle"}
	ErrIncompleteContributions    = &Error{CodeIncompleteContributions, "not every member has contributed this cycle"}
	ErrAlreadyReceivedPayout      = &Error{CodeAlreadyReceivedPayout, "member has already been paid out"}
	ErrGroupComplete              = &Error{CodeGroupComplete, "group is complete"}
	ErrContributionAmountZero     = &Error{CodeContributionAmountZero, "contribution amount must not be zero"}
	ErrContributionAmountNegative = &Error{CodeContributionAmountNegative, "contribution amount must not be negative"}
	ErrContributionAmountTooLarge = &Error{CodeContributionAmountTooLarge, "contribution amount times max members overflows"}
	ErrCycleDurationZero          = &Error{CodeCycleDurationZero, "cycle duration must be greater than zero"}
	ErrCycleDurationTooLarge      = &Error{CodeCycleDurationTooLarge, "cycle duration too large"}
	ErrMaxMembersBelowMinimum     = &Error{CodeMaxMembersBelowMinimum, "a group needs at least 2 members"}
	ErrMaxMembersAboveLimit       = &Error{CodeMaxMembersAboveLimit, "max members exceeds limit"}
	ErrTransferFailed             = &Error{CodeTransferFailed, "transfer failed"}
	ErrUnauthorized               = &Error{CodeUnauthorized, "unauthorized"}
	ErrOutsideCycleWindow         = &Error{CodeOutsideCycleWindow, "contribution outside the active cycle window"}
	ErrMetadataNameTooLong        = &Error{CodeMetadataNameTooLong, "metadata name too long"}
	ErrMetadataDescriptionTooLong = &Error{CodeMetadataDescriptionTooLong, "metadata description too long"}
	ErrMetadataRulesTooLong       = &Error{CodeMetadataRulesTooLong, "metadata rules too long"}
	ErrNotEligibleForWithdrawal   = &Error{CodeNotEligibleForWithdrawal, "cycle window has not elapsed"}
	ErrAlreadyWithdrawn           = &Error{CodeAlreadyWithdrawn, "already withdrawn from this group"}
	ErrWithdrawalAfterPayout      = &Error{CodeWithdrawalAfterPayout, "cannot withdraw after receiving a payout"}
)

// Category groups codes by the kind of rule they protect.
type Category int

const (
	CategoryNone Category = iota
	CategoryNotFound
	CategoryAuthorization
	CategoryMembership
	CategoryCycleProgress
	CategoryTerminal
	CategoryValidation
	CategoryWithdrawal
	CategoryTransfer
)

// Category returns the class the code belongs to.
func (c Code) Category() Category {
	switch c {
	case CodeGroupNotFound:
		return CategoryNotFound
	case CodeUnauthorized:
		return CategoryAuthorization
	case CodeAlreadyMember, CodeNotMember, CodeMaxMembersExceeded:
		return CategoryMembership
	case CodeAlreadyContributed, CodeIncompleteContributions, CodeOutsideCycleWindow, CodeAlreadyReceivedPayout:
		return CategoryCycleProgress
	case CodeGroupComplete:
		return CategoryTerminal
	case CodeContributionAmountZero, CodeContributionAmountNegative, CodeContributionAmountTooLarge,
		CodeCycleDurationZero, CodeCycleDurationTooLarge,
		CodeMaxMembersBelowMinimum, CodeMaxMembersAboveLimit,
		CodeMetadataNameTooLong, CodeMetadataDescriptionTooLong, CodeMetadataRulesTooLong:
		return CategoryValidation
	case CodeNotEligibleForWithdrawal, CodeAlreadyWithdrawn, CodeWithdrawalAfterPayout:
		return CategoryWithdrawal
	case CodeTransferFailed:
		return CategoryTransfer
	}
	return CategoryNone
}

// CodeOf extracts the rule code from err, or 0 if err isn't a rule violation.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// groupErr attaches the group ID to a sentinel while keeping errors.Is working.
func groupErr(sentinel *Error, groupID uint64) error {
	return fmt.Errorf("group %d: %w", groupID, sentinel)
}
