//go:build integration

package message_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"conduit/internal/models"
	"conduit/internal/store/message"
	"conduit/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *message.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = message.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "messages"))
}

func uintPtr(v uint64) *uint64 { return &v }
func strPtr(v string) *string  { return &v }

func (s *PostgresStoreSuite) TestMergePreservesEarlierFields() {
	ctx := context.Background()

	s.Require().NoError(s.store.SaveMessages(ctx, []*models.Message{{
		ID:           "0xmsg1",
		OriginDomain: "1337",
		Index:        uintPtr(4),
		Body:         strPtr("payload"),
	}}))
	s.Require().NoError(s.store.SaveMessages(ctx, []*models.Message{{
		ID:                "0xmsg1",
		DestinationDomain: "1338",
		Root:              strPtr("0xroot"),
	}}))

	got, err := s.store.GetMessageByID(ctx, "0xmsg1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("1337", got.OriginDomain)
	s.Equal("1338", got.DestinationDomain)
	s.Require().NotNil(got.Index)
	s.Equal(uint64(4), *got.Index)
	s.Require().NotNil(got.Root)
	s.Equal("0xroot", *got.Root)
	s.Require().NotNil(got.Body)
	s.Equal("payload", *got.Body)
}

func (s *PostgresStoreSuite) TestProcessedIsMonotone() {
	ctx := context.Background()

	s.Require().NoError(s.store.SaveMessages(ctx, []*models.Message{{
		ID: "0xmsg1", OriginDomain: "1337", Processed: true,
	}}))
	s.Require().NoError(s.store.SaveMessages(ctx, []*models.Message{{
		ID: "0xmsg1", OriginDomain: "1337", Processed: false,
	}}))

	got, err := s.store.GetMessageByID(ctx, "0xmsg1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.True(got.Processed)
}

func (s *PostgresStoreSuite) TestGetMissingReturnsNil() {
	ctx := context.Background()

	got, err := s.store.GetMessageByID(ctx, "0xunknown")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *PostgresStoreSuite) TestPendingOrderingPutsUnindexedLast() {
	ctx := context.Background()

	s.Require().NoError(s.store.SaveMessages(ctx, []*models.Message{
		{ID: "0xc", OriginDomain: "1337"},
		{ID: "0xa", OriginDomain: "1337", Index: uintPtr(9)},
		{ID: "0xb", OriginDomain: "1337", Index: uintPtr(2)},
		{ID: "0xd", OriginDomain: "1337", Index: uintPtr(5), Processed: true},
	}))

	pending, err := s.store.GetPendingMessages(ctx, "1337", 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 3)
	s.Equal("0xb", pending[0].ID)
	s.Equal("0xa", pending[1].ID)
	s.Equal("0xc", pending[2].ID)
}

func (s *PostgresStoreSuite) TestPendingFiltersByOriginDomain() {
	ctx := context.Background()

	s.Require().NoError(s.store.SaveMessages(ctx, []*models.Message{
		{ID: "0xa", OriginDomain: "1337", Index: uintPtr(1)},
		{ID: "0xb", OriginDomain: "1338", Index: uintPtr(2)},
	}))

	pending, err := s.store.GetPendingMessages(ctx, "1338", 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("0xb", pending[0].ID)

	all, err := s.store.GetPendingMessages(ctx, "", 0)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PostgresStoreSuite) TestPendingHonorsLimit() {
	ctx := context.Background()

	s.Require().NoError(s.store.SaveMessages(ctx, []*models.Message{
		{ID: "0xa", OriginDomain: "1337", Index: uintPtr(1)},
		{ID: "0xb", OriginDomain: "1337", Index: uintPtr(2)},
		{ID: "0xc", OriginDomain: "1337", Index: uintPtr(3)},
	}))

	pending, err := s.store.GetPendingMessages(ctx, "1337", 2)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal("0xa", pending[0].ID)
	s.Equal("0xb", pending[1].ID)
}
