package plague

import (
	"sort"
	"sync"

	"github.com/lefinal/plague-server/engine"
	"github.com/lefinal/plague-server/errors"
)

// SurvivorTeamData is a snapshot of a survivor team's metadata.
type SurvivorTeamData struct {
	// Owner is the player identity of the current owner. Exactly one owner at any
	// time, and the owner is always a member.
	Owner engine.PlayerID
	// Members are all player identities on the team, sorted. Never empty while
	// the team exists.
	Members []engine.PlayerID
	// Locked is true when the team refuses new joins via the core placement path.
	Locked bool
}

// survivorTeam is the mutable team entity inside TeamRegistry.
type survivorTeam struct {
	owner   engine.PlayerID
	members map[engine.PlayerID]struct{}
	locked  bool
	// blacklist holds player identities barred from rejoining. It lives and dies
	// with the team entity, so a freed identifier never inherits stale entries.
	blacklist map[engine.PlayerID]struct{}
}

// LeaveResult describes what a leave operation did beyond removing the member.
type LeaveResult struct {
	// Destroyed is true when the leave emptied the team and the entity was
	// removed. The caller must run the destruction cascade.
	Destroyed bool
	// NewOwner is set when the departing member was the owner and ownership was
	// transferred to a remaining member.
	NewOwner engine.PlayerID
	// Members are the remaining member identities, for notification purposes.
	Members []engine.PlayerID
}

// KickResult describes the outcome of a kick.
type KickResult struct {
	// Members are the remaining member identities, for notification purposes.
	Members []engine.PlayerID
}

// TeamRegistry owns the mapping from allocated survivor team identifiers to
// team metadata and per-team join blacklists. All operations are serialized by
// a single registry lock and only take decisions: engine side effects such as
// player reassignment are performed by the caller from the returned values.
type TeamRegistry struct {
	m sync.Mutex
	// teams holds all active survivor teams by identifier.
	teams map[engine.TeamID]*survivorTeam
}

// NewTeamRegistry creates an empty TeamRegistry.
func NewTeamRegistry() *TeamRegistry {
	return &TeamRegistry{
		teams: make(map[engine.TeamID]*survivorTeam),
	}
}

// Allocate reserves the lowest unused survivor team identifier and creates the
// team with the given player as sole member and owner. It fails with
// errors.KindNoCapacity when the identifier pool is exhausted.
func (r *TeamRegistry) Allocate(p engine.PlayerID) (engine.TeamID, error) {
	r.m.Lock()
	defer r.m.Unlock()
	for id := FirstSurvivorTeam; id <= LastSurvivorTeam; id++ {
		if _, used := r.teams[id]; used {
			continue
		}
		r.teams[id] = &survivorTeam{
			owner:     p,
			members:   map[engine.PlayerID]struct{}{p: {}},
			blacklist: make(map[engine.PlayerID]struct{}),
		}
		return id, nil
	}
	return 0, errors.NewNoCapacityError()
}

// Join adds the player to the team. It fails with errors.KindTeamLocked or
// errors.KindBlacklisted under the same checks as the auto-join branch of core
// placement.
func (r *TeamRegistry) Join(team engine.TeamID, p engine.PlayerID) error {
	r.m.Lock()
	defer r.m.Unlock()
	t, ok := r.teams[team]
	if !ok {
		return errors.NewNoTeamDataError(errors.Details{"team": team})
	}
	if _, ok := t.blacklist[p]; ok {
		return errors.NewBlacklistedError(errors.Details{"team": team})
	}
	if t.locked {
		return errors.NewTeamLockedError(errors.Details{"team": team})
	}
	t.members[p] = struct{}{}
	return nil
}

// Leave removes the player from the team. If this empties the team, the team
// is destroyed in the same operation and the result says so. If the departing
// member owned the team and members remain, ownership transfers to the lowest
// remaining identity.
func (r *TeamRegistry) Leave(team engine.TeamID, p engine.PlayerID) (LeaveResult, error) {
	r.m.Lock()
	defer r.m.Unlock()
	t, ok := r.teams[team]
	if !ok {
		return LeaveResult{}, errors.NewNoTeamDataError(errors.Details{"team": team})
	}
	if _, ok := t.members[p]; !ok {
		return LeaveResult{}, errors.NewCrossTeamTargetError("player is not a member of the team",
			errors.Details{"team": team, "player": p})
	}
	delete(t.members, p)
	if len(t.members) == 0 {
		// Destroy the team together with its blacklist.
		delete(r.teams, team)
		return LeaveResult{Destroyed: true}, nil
	}
	result := LeaveResult{Members: t.memberList()}
	if t.owner == p {
		t.owner = result.Members[0]
		result.NewOwner = t.owner
	}
	return result, nil
}

// Kick evicts the target from the team and bars them from rejoining. It fails
// with errors.KindNotOwner when the requester does not own the team, with
// errors.KindSelfTarget when requester and target are the same and with
// errors.KindCrossTeamTarget when the target is not a member.
func (r *TeamRegistry) Kick(team engine.TeamID, requester, target engine.PlayerID) (KickResult, error) {
	r.m.Lock()
	defer r.m.Unlock()
	t, ok := r.teams[team]
	if !ok {
		return KickResult{}, errors.NewNoTeamDataError(errors.Details{"team": team})
	}
	if t.owner != requester {
		return KickResult{}, errors.NewNotOwnerError(errors.Details{"team": team})
	}
	if requester == target {
		return KickResult{}, errors.NewSelfTargetError("cannot kick yourself")
	}
	if _, ok := t.members[target]; !ok {
		return KickResult{}, errors.NewCrossTeamTargetError("cannot kick other team's member",
			errors.Details{"team": team, "target": target})
	}
	t.blacklist[target] = struct{}{}
	// The requester stays behind, so the team cannot be emptied here, and the
	// target cannot be the owner.
	delete(t.members, target)
	return KickResult{Members: t.memberList()}, nil
}

// TransferOwnership reassigns the owner field to the target. The same
// not-owner, self-target and cross-team checks as for Kick apply.
func (r *TeamRegistry) TransferOwnership(team engine.TeamID, requester, target engine.PlayerID) ([]engine.PlayerID, error) {
	r.m.Lock()
	defer r.m.Unlock()
	t, ok := r.teams[team]
	if !ok {
		return nil, errors.NewNoTeamDataError(errors.Details{"team": team})
	}
	if t.owner != requester {
		return nil, errors.NewNotOwnerError(errors.Details{"team": team})
	}
	if requester == target {
		return nil, errors.NewSelfTargetError("cannot transfer ownership to yourself")
	}
	if _, ok := t.members[target]; !ok {
		return nil, errors.NewCrossTeamTargetError("cannot transfer ownership to other team's member",
			errors.Details{"team": team, "target": target})
	}
	t.owner = target
	return t.memberList(), nil
}

// ToggleLock flips the team's lock flag. It fails with errors.KindNotOwner for
// non-owners. The new lock state is returned along with the members to notify.
func (r *TeamRegistry) ToggleLock(team engine.TeamID, requester engine.PlayerID) (bool, []engine.PlayerID, error) {
	r.m.Lock()
	defer r.m.Unlock()
	t, ok := r.teams[team]
	if !ok {
		return false, nil, errors.NewNoTeamDataError(errors.Details{"team": team})
	}
	if t.owner != requester {
		return false, nil, errors.NewNotOwnerError(errors.Details{"team": team})
	}
	t.locked = !t.locked
	return t.locked, t.memberList(), nil
}

// TeamOf returns the survivor team the player is a member of.
func (r *TeamRegistry) TeamOf(p engine.PlayerID) (engine.TeamID, bool) {
	r.m.Lock()
	defer r.m.Unlock()
	for id, t := range r.teams {
		if _, ok := t.members[p]; ok {
			return id, true
		}
	}
	return 0, false
}

// OwnedBy returns the survivor team the player owns.
func (r *TeamRegistry) OwnedBy(p engine.PlayerID) (engine.TeamID, bool) {
	r.m.Lock()
	defer r.m.Unlock()
	for id, t := range r.teams {
		if t.owner == p {
			return id, true
		}
	}
	return 0, false
}

// Data returns a snapshot of the team's metadata.
func (r *TeamRegistry) Data(team engine.TeamID) (SurvivorTeamData, bool) {
	r.m.Lock()
	defer r.m.Unlock()
	t, ok := r.teams[team]
	if !ok {
		return SurvivorTeamData{}, false
	}
	return SurvivorTeamData{
		Owner:   t.owner,
		Members: t.memberList(),
		Locked:  t.locked,
	}, true
}

// IsBlacklisted reports whether the player is barred from joining the team.
func (r *TeamRegistry) IsBlacklisted(team engine.TeamID, p engine.PlayerID) bool {
	r.m.Lock()
	defer r.m.Unlock()
	t, ok := r.teams[team]
	if !ok {
		return false
	}
	_, ok = t.blacklist[p]
	return ok
}

// ActiveCount returns the number of allocated survivor teams.
func (r *TeamRegistry) ActiveCount() int {
	r.m.Lock()
	defer r.m.Unlock()
	return len(r.teams)
}

// Remove destroys the team without a leave, freeing the identifier and
// discarding the blacklist. Used by the core destruction cascade. Removing an
// unknown identifier is a no-op.
func (r *TeamRegistry) Remove(team engine.TeamID) {
	r.m.Lock()
	defer r.m.Unlock()
	delete(r.teams, team)
}

// Clear removes all teams. Used on match reset.
func (r *TeamRegistry) Clear() {
	r.m.Lock()
	defer r.m.Unlock()
	r.teams = make(map[engine.TeamID]*survivorTeam)
}

// memberList returns the member identities sorted ascending. The order makes
// ownership transfer deterministic.
func (t *survivorTeam) memberList() []engine.PlayerID {
	members := make([]engine.PlayerID, 0, len(t.members))
	for p := range t.members {
		members = append(members, p)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}
