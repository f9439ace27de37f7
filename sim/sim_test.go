package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const waitTimeout = 5 * time.Second

type ExecutorTestSuite struct {
	suite.Suite
	exec   *Executor
	cancel context.CancelFunc
}

func (suite *ExecutorTestSuite) SetupTest() {
	suite.exec = NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	go suite.exec.Run(ctx)
}

func (suite *ExecutorTestSuite) TearDownTest() {
	suite.cancel()
}

func (suite *ExecutorTestSuite) TestDoRunsTask() {
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	ran := false
	err := suite.exec.Do(ctx, func() {
		ran = true
	})
	suite.Require().Nil(err, "do should not fail")
	suite.Assert().True(ran, "task should have run")
}

func (suite *ExecutorTestSuite) TestSubmissionOrder() {
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	var m sync.Mutex
	order := make([]int, 0, 8)
	for i := 0; i < 8; i++ {
		n := i
		suite.exec.Submit(func() {
			m.Lock()
			defer m.Unlock()
			order = append(order, n)
		})
	}
	// Do waits for everything queued before it.
	err := suite.exec.Do(ctx, func() {})
	suite.Require().Nil(err, "do should not fail")
	m.Lock()
	defer m.Unlock()
	suite.Require().Len(order, 8, "all tasks should have run")
	for i, n := range order {
		suite.Assert().Equal(i, n, "tasks should run in submission order")
	}
}

func (suite *ExecutorTestSuite) TestDoWithCancelledContext() {
	// Use an executor that is not running so the task can never complete.
	idle := NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := idle.Do(ctx, func() {})
	suite.Assert().NotNil(err, "should fail with aborted context")
}

func TestExecutor(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}
