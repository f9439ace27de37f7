package stores

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/plague-server/errors"
)

// PlayerRecord holds information regarding a player that has been seen on the
// server.
type PlayerRecord struct {
	// ID is the player's engine identity.
	ID string
	// Name is the last known display name.
	Name string
	// FirstSeen is when the player connected for the first time.
	FirstSeen time.Time
	// LastSeen is the last time the player connected.
	LastSeen time.Time
}

// KickRecord holds an audit entry for an owner-initiated team kick.
type KickRecord struct {
	// ID identifies the entry.
	ID string
	// Team is the survivor team identifier at the time of the kick.
	Team int
	// Target is the kicked player's identity.
	Target string
	// KickedBy is the owner's identity.
	KickedBy string
	// Reason is an optional free-text reason.
	Reason nulls.String
	// OccurredAt is when the kick happened.
	OccurredAt time.Time
}

// UpsertPlayer records the player as seen now, creating the record on first
// contact and refreshing name and last-seen otherwise.
func (m *Mall) UpsertPlayer(id string, name string, seen time.Time) error {
	errDetails := errors.Details{"player": id}
	q, _, err := m.dialect.Insert(goqu.T("players")).Rows(goqu.Record{
		"id":         id,
		"name":       name,
		"first_seen": seen,
		"last_seen":  seen,
	}).OnConflict(goqu.DoUpdate("id", goqu.Record{
		"name":      name,
		"last_seen": seen,
	})).ToSQL()
	if err != nil {
		return errors.NewQueryToSQLError(err, errDetails)
	}
	_, err = m.db.Exec(q)
	if err != nil {
		return errors.NewExecQueryError(err, q, errDetails)
	}
	return nil
}

// GetPlayers retrieves all known players, most recently seen first.
func (m *Mall) GetPlayers() ([]PlayerRecord, error) {
	q, _, err := m.dialect.From(goqu.T("players")).
		Select(goqu.C("id"), goqu.C("name"), goqu.C("first_seen"), goqu.C("last_seen")).
		Order(goqu.C("last_seen").Desc()).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	rows, err := m.db.Query(q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, q, nil)
	}
	defer closeRows(rows)
	players := make([]PlayerRecord, 0)
	for rows.Next() {
		var player PlayerRecord
		err = rows.Scan(&player.ID, &player.Name, &player.FirstSeen, &player.LastSeen)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, q)
		}
		players = append(players, player)
	}
	return players, nil
}

// RecordKick inserts an audit entry for a team kick.
func (m *Mall) RecordKick(team int, target string, kickedBy string, reason nulls.String, occurredAt time.Time) error {
	errDetails := errors.Details{
		"team":   team,
		"target": target,
	}
	q, _, err := m.dialect.Insert(goqu.T("team_kicks")).Rows(goqu.Record{
		"id":          uuid.New().String(),
		"team":        team,
		"target":      target,
		"kicked_by":   kickedBy,
		"reason":      reason,
		"occurred_at": occurredAt,
	}).ToSQL()
	if err != nil {
		return errors.NewQueryToSQLError(err, errDetails)
	}
	_, err = m.db.Exec(q)
	if err != nil {
		return errors.NewExecQueryError(err, q, errDetails)
	}
	return nil
}

// GetRecentKicks retrieves the latest kick audit entries up to the given
// limit.
func (m *Mall) GetRecentKicks(limit uint) ([]KickRecord, error) {
	q, _, err := m.dialect.From(goqu.T("team_kicks")).
		Select(goqu.C("id"), goqu.C("team"), goqu.C("target"), goqu.C("kicked_by"),
			goqu.C("reason"), goqu.C("occurred_at")).
		Order(goqu.C("occurred_at").Desc()).
		Limit(limit).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	rows, err := m.db.Query(q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, q, nil)
	}
	defer closeRows(rows)
	kicks := make([]KickRecord, 0)
	for rows.Next() {
		var kick KickRecord
		err = rows.Scan(&kick.ID, &kick.Team, &kick.Target, &kick.KickedBy, &kick.Reason, &kick.OccurredAt)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, q)
		}
		kicks = append(kicks, kick)
	}
	return kicks, nil
}
