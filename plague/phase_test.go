package plague

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// PhaseControllerSuite tests PhaseController.
type PhaseControllerSuite struct {
	suite.Suite
	pc *PhaseController
}

func (suite *PhaseControllerSuite) SetupTest() {
	suite.pc = NewPhaseController(DefaultConfig())
}

func (suite *PhaseControllerSuite) TestInitialPhase() {
	suite.Equal(PhasePrepare, suite.pc.Current(), "should start in prepare phase")
}

func (suite *PhaseControllerSuite) TestNotDue() {
	_, due := suite.pc.AdvanceIfDue(time.Minute)
	suite.False(due, "should not transition before the threshold")
	suite.Equal(PhasePrepare, suite.pc.Current(), "phase should stay unchanged")
}

func (suite *PhaseControllerSuite) TestAdvance() {
	tr, due := suite.pc.AdvanceIfDue(2 * time.Minute)
	suite.Require().True(due, "should transition at the threshold")
	suite.Equal(PhaseTransition{From: PhasePrepare, To: PhaseFirst}, tr, "should transition to first phase")
	suite.Equal(PhaseFirst, suite.pc.Current(), "phase should have advanced")
}

func (suite *PhaseControllerSuite) TestAdvanceAtMostOnce() {
	_, due := suite.pc.AdvanceIfDue(3 * time.Minute)
	suite.Require().True(due, "first check should transition")
	_, due = suite.pc.AdvanceIfDue(3 * time.Minute)
	suite.False(due, "repeated check within the same window should not transition again")
}

func (suite *PhaseControllerSuite) TestOrderedProgression() {
	// A check far past all thresholds still only advances a single step.
	tr, due := suite.pc.AdvanceIfDue(2 * time.Hour)
	suite.Require().True(due, "should transition")
	suite.Equal(PhaseFirst, tr.To, "first transition should lead to first phase")
	tr, due = suite.pc.AdvanceIfDue(2 * time.Hour)
	suite.Require().True(due, "should transition")
	suite.Equal(PhaseSecond, tr.To, "second transition should lead to second phase")
	tr, due = suite.pc.AdvanceIfDue(2 * time.Hour)
	suite.Require().True(due, "should transition")
	suite.Equal(PhaseEnded, tr.To, "third transition should lead to ended phase")
	_, due = suite.pc.AdvanceIfDue(3 * time.Hour)
	suite.False(due, "ended phase should be terminal")
}

func (suite *PhaseControllerSuite) TestScheduleThresholds() {
	_, due := suite.pc.AdvanceIfDue(47*time.Minute - time.Second)
	suite.Require().True(due, "should enter first phase")
	_, due = suite.pc.AdvanceIfDue(47*time.Minute - time.Second)
	suite.False(due, "should not enter second phase before its threshold")
	_, due = suite.pc.AdvanceIfDue(47 * time.Minute)
	suite.True(due, "should enter second phase at its threshold")
	_, due = suite.pc.AdvanceIfDue(62 * time.Minute)
	suite.True(due, "should enter ended phase at its threshold")
}

func (suite *PhaseControllerSuite) TestMarkOver() {
	suite.pc.MarkOver()
	suite.True(suite.pc.IsOver(), "should report over")
	_, due := suite.pc.AdvanceIfDue(2 * time.Hour)
	suite.False(due, "checks should be no-ops while over")
}

func (suite *PhaseControllerSuite) TestReset() {
	suite.pc.AdvanceIfDue(2 * time.Hour)
	suite.pc.MarkOver()
	suite.pc.Reset()
	suite.Equal(PhasePrepare, suite.pc.Current(), "reset should return to prepare phase")
	suite.False(suite.pc.IsOver(), "reset should clear the over flag")
	_, due := suite.pc.AdvanceIfDue(2 * time.Minute)
	suite.True(due, "transitions should fire again after reset")
}

func (suite *PhaseControllerSuite) TestView() {
	var seen Phase
	suite.pc.View(func(phase Phase) {
		seen = phase
	})
	suite.Equal(PhasePrepare, seen, "view should pass the current phase")
}

func TestPhaseController(t *testing.T) {
	suite.Run(t, new(PhaseControllerSuite))
}
