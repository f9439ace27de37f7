package errors

// Code is the general severity class of an Error. It decides how an error is
// logged and whether it is surfaced to the initiating player.
type Code string

const (
	ErrAborted           Code = "aborted"
	ErrBadRequest        Code = "bad-request"
	ErrCommunication     Code = "communication"
	ErrProtocolViolation Code = "protocol-violation"
	ErrFatal             Code = "fatal"
	ErrNotFound          Code = "not-found"
	ErrInternal          Code = "internal"
	ErrUnexpected        Code = "unexpected"
)

// Kind describes the specific failure of an Error.
type Kind string

const (
	// KindNotOwner is used when a team operation that requires ownership is
	// requested by a regular member.
	KindNotOwner Kind = "not-owner"
	// KindSelfTarget is used when a player targets themselves with a team
	// operation that forbids it, like kicking or ownership transfer.
	KindSelfTarget Kind = "self-target"
	// KindCrossTeamTarget is used when the target of a team operation is not a
	// member of the requester's team.
	KindCrossTeamTarget Kind = "cross-team-target"
	// KindTeamLocked is used when a join is attempted on a team whose owner has
	// locked it.
	KindTeamLocked Kind = "team-locked"
	// KindBlacklisted is used when a join is attempted by a player the team owner
	// has kicked before.
	KindBlacklisted Kind = "blacklisted"
	// KindNoCapacity is used when the survivor team identifier pool is exhausted.
	KindNoCapacity Kind = "no-capacity"
	// KindNoTeamData is used when team data for an expected survivor team is
	// missing. This is an internal consistency violation; the operation is
	// aborted with state left unchanged.
	KindNoTeamData Kind = "no-team-data"
	// KindNotOnTeam is used when a team operation is requested by a player that
	// is not on any survivor team.
	KindNotOnTeam Kind = "not-on-team"
	// KindMapUnavailable is used when no next map could be selected on restart.
	// This ends the hosting session.
	KindMapUnavailable Kind = "map-unavailable"
	// KindMapLoadFailure is used when loading the selected next map failed. This
	// closes networking without retry.
	KindMapLoadFailure Kind = "map-load-failure"
	// KindRateLimited is used when a rate-limited command is invoked too often.
	KindRateLimited Kind = "rate-limited"
	// KindContextAborted is used when we were currently performing an operation
	// but the context got aborted.
	KindContextAborted Kind = "context-aborted"
	// KindCommandAlreadyRegistered is used when a command name is registered
	// twice in the command table.
	KindCommandAlreadyRegistered Kind = "command-already-registered"
	// KindUnknownCommand is used when an unknown command is dispatched.
	KindUnknownCommand Kind = "unknown-command"
	// KindUnknownPlayer is used when a command targets a player that is not
	// online.
	KindUnknownPlayer Kind = "unknown-player"
	// KindWrongCommandScope is used when a server-scope command is invoked by a
	// player or the other way around.
	KindWrongCommandScope Kind = "wrong-command-scope"
	// KindResourceNotFound is used when a requested stored resource does not
	// exist.
	KindResourceNotFound Kind = "resource-not-found"
	KindDecodeJSON       Kind = "parse-request-body-as-json"
	KindEncodeJSON       Kind = "encode-json"
	KindDB               Kind = "db"
	KindDBRollback       Kind = "db-rollback"
	KindDBTxBegin        Kind = "db-tx-begin"
	KindDBTxCommit       Kind = "db-tx-commit"
	// KindShouldNotHappen is used for different failures the application cannot
	// recover from.
	KindShouldNotHappen Kind = "should-not-happen"
	// KindUnknown is used for different unknown type values that are too special
	// for creating separate error kinds.
	KindUnknown Kind = "unknown"
)
