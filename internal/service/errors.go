package service

import (
	"errors"
	"strconv"

	"connectrpc.com/connect"

	"github.com/mmynk/ajo/internal/rotation"
)

// errorCodeHeader carries the exact rotation code next to the coarser
// Connect code.
const errorCodeHeader = "Ajo-Error-Code"

// toConnectError maps rotation rule violations to Connect codes. Anything
// that isn't a rule violation is internal.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	code := rotation.CodeOf(err)
	ce := connect.NewError(connectCode(code), err)
	if code != 0 {
		ce.Meta().Set(errorCodeHeader, strconv.FormatUint(uint64(code), 10))
	}
	return ce
}

func connectCode(code rotation.Code) connect.Code {
	switch code {
	case rotation.CodeAlreadyMember, rotation.CodeAlreadyContributed, rotation.CodeAlreadyWithdrawn:
		return connect.CodeAlreadyExists
	}

	switch code.Category() {
	case rotation.CategoryNotFound:
		return connect.CodeNotFound
	case rotation.CategoryAuthorization:
		return connect.CodePermissionDenied
	case rotation.CategoryValidation:
		return connect.CodeInvalidArgument
	case rotation.CategoryMembership, rotation.CategoryCycleProgress,
		rotation.CategoryTerminal, rotation.CategoryWithdrawal:
		return connect.CodeFailedPrecondition
	case rotation.CategoryTransfer:
		return connect.CodeAborted
	}
	return connect.CodeInternal
}

// RotationCode recovers the rotation code from an error returned by a
// Connect client, or 0 if there is none.
func RotationCode(err error) rotation.Code {
	var ce *connect.Error
	if !errors.As(err, &ce) {
		return 0
	}
	n, perr := strconv.ParseUint(ce.Meta().Get(errorCodeHeader), 10, 32)
	if perr != nil {
		return 0
	}
	return rotation.Code(n)
}
