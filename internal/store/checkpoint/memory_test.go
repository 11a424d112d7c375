package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"conduit/pkg/platform/sentinel"
)

type CheckpointSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestCheckpointSuite(t *testing.T) {
	suite.Run(t, new(CheckpointSuite))
}

func (s *CheckpointSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *CheckpointSuite) TestDefaultsToZero() {
	value, err := s.store.GetCheckpoint(s.ctx, "sent_transfers_1337")
	s.Require().NoError(err)
	s.Equal(uint64(0), value)
}

func (s *CheckpointSuite) TestSaveThenGet() {
	s.Require().NoError(s.store.SaveCheckpoint(s.ctx, "sent_transfers_1337", 4240))
	value, err := s.store.GetCheckpoint(s.ctx, "sent_transfers_1337")
	s.Require().NoError(err)
	s.Equal(uint64(4240), value)
}

// Saves are plain overwrites; the driver owns monotonicity.
func (s *CheckpointSuite) TestOverwriteAllowsRegression() {
	s.Require().NoError(s.store.SaveCheckpoint(s.ctx, "cursor", 100))
	s.Require().NoError(s.store.SaveCheckpoint(s.ctx, "cursor", 50))
	value, err := s.store.GetCheckpoint(s.ctx, "cursor")
	s.Require().NoError(err)
	s.Equal(uint64(50), value)
}

func (s *CheckpointSuite) TestInvalidName() {
	_, err := s.store.GetCheckpoint(s.ctx, "")
	s.Require().ErrorIs(err, sentinel.ErrInvalidArgument)

	err = s.store.SaveCheckpoint(s.ctx, "   ", 1)
	s.Require().ErrorIs(err, sentinel.ErrInvalidArgument)
}

func (s *CheckpointSuite) TestNamesAreIndependent() {
	s.Require().NoError(s.store.SaveCheckpoint(s.ctx, "a", 1))
	s.Require().NoError(s.store.SaveCheckpoint(s.ctx, "b", 2))
	a, err := s.store.GetCheckpoint(s.ctx, "a")
	s.Require().NoError(err)
	b, err := s.store.GetCheckpoint(s.ctx, "b")
	s.Require().NoError(err)
	s.Equal(uint64(1), a)
	s.Equal(uint64(2), b)
}
