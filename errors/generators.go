package errors

import (
	"fmt"
)

// NewNotOwnerError creates a new ErrBadRequest error with kind KindNotOwner.
func NewNotOwnerError(details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindNotOwner,
		Message: "you are not the owner of the team",
		Details: details,
	}
}

// NewSelfTargetError creates a new ErrBadRequest error with kind
// KindSelfTarget and the given message.
func NewSelfTargetError(message string) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindSelfTarget,
		Message: message,
	}
}

// NewCrossTeamTargetError creates a new ErrBadRequest error with kind
// KindCrossTeamTarget and the given message.
func NewCrossTeamTargetError(message string, details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindCrossTeamTarget,
		Message: message,
		Details: details,
	}
}

// NewTeamLockedError creates a new ErrBadRequest error with kind
// KindTeamLocked.
func NewTeamLockedError(details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindTeamLocked,
		Message: "the team is locked by its owner",
		Details: details,
	}
}

// NewBlacklistedError creates a new ErrBadRequest error with kind
// KindBlacklisted.
func NewBlacklistedError(details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindBlacklisted,
		Message: "you are blacklisted from joining the team because you were kicked by the team owner",
		Details: details,
	}
}

// NewNoCapacityError creates a new ErrBadRequest error with kind
// KindNoCapacity.
func NewNoCapacityError() error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindNoCapacity,
		Message: "no available team",
	}
}

// NewNoTeamDataError creates a new ErrInternal error with kind KindNoTeamData.
// The operation that ran into this must abort with state left unchanged.
func NewNoTeamDataError(details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindNoTeamData,
		Message: "survivor team data is missing",
		Details: details,
	}
}

// NewNotOnTeamError creates a new ErrBadRequest error with kind KindNotOnTeam.
func NewNotOnTeamError() error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindNotOnTeam,
		Message: "you are not in any team",
	}
}

// NewUnknownPlayerError creates a new ErrNotFound error with kind
// KindUnknownPlayer for the given player name.
func NewUnknownPlayerError(name string) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    KindUnknownPlayer,
		Message: fmt.Sprintf("unknown player: %s", name),
		Details: Details{"name": name},
	}
}

// NewInternalError creates a new ErrInternal error with the given message.
func NewInternalError(message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Message: message,
		Details: details,
	}
}

// NewInternalErrorFromErr creates a new ErrInternal error with the given
// message and wrapped error.
func NewInternalErrorFromErr(err error, message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewResourceNotFoundError returns a new ErrNotFound error with kind
// KindResourceNotFound and the given message.
func NewResourceNotFoundError(message string, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    KindResourceNotFound,
		Message: message,
		Details: details,
	}
}

// NewQueryToSQLError creates a new ErrInternal error with kind KindDB for
// failed SQL query building.
func NewQueryToSQLError(err error, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "query to sql",
		Details: details,
	}
}

// NewExecQueryError creates a new ErrInternal error with kind KindDB for a
// failed query execution. The query is added to the details.
func NewExecQueryError(err error, q string, details Details) error {
	if details == nil {
		details = Details{}
	}
	details["query"] = q
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "exec query",
		Details: details,
	}
}

// NewScanDBRowError creates a new ErrInternal error with kind KindDB for a
// failed row scan.
func NewScanDBRowError(err error, q string) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "scan db row",
		Details: Details{"query": q},
	}
}

// NewScanSingleDBRowError creates a new ErrInternal error with kind KindDB for
// a failed single-row scan with the given message.
func NewScanSingleDBRowError(message string, err error, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewDBTxBeginError creates a new ErrInternal error with kind KindDBTxBegin.
func NewDBTxBeginError(err error) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBTxBegin,
		Err:     err,
		Message: "begin tx",
	}
}

// NewDBTxCommitError creates a new ErrInternal error with kind KindDBTxCommit.
func NewDBTxCommitError(err error) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBTxCommit,
		Err:     err,
		Message: "commit tx",
	}
}

// NewContextAbortedError creates a new ErrAborted error with kind
// KindContextAborted for the operation with the given name.
func NewContextAbortedError(operationName string) error {
	return Error{
		Code:    ErrAborted,
		Kind:    KindContextAborted,
		Message: fmt.Sprintf("%s: context aborted", operationName),
	}
}
