//go:build integration

package outbox_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"conduit/internal/models"
	"conduit/internal/outbox"
	"conduit/internal/store/transfer"
	"conduit/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	events    *outbox.PostgresStore
	transfers *transfer.PostgresStore
}

func TestPostgresOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.events = outbox.NewPostgres(s.postgres.DB)
	s.transfers = transfer.NewPostgres(s.postgres.DB, s.events)
}

func (s *PostgresOutboxSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "transfers", "transfer_events"))
}

func originObservation(id string) *models.Transfer {
	nonce := uint64(1)
	return &models.Transfer{
		TransferID: id,
		Params:     models.CallParams{OriginDomain: "1337", DestinationDomain: "1338", Nonce: &nonce},
		Origin:     &models.OriginTransfer{Caller: "0xcaller", Asset: "0xasset", Amount: big.NewInt(1000), TxHash: "0xtx"},
	}
}

func reconcileObservation(id string) *models.Transfer {
	return &models.Transfer{
		TransferID: id,
		Params:     models.CallParams{OriginDomain: "1337", DestinationDomain: "1338"},
		Destination: &models.DestinationTransfer{
			Reconcile: &models.ReconcileRecord{Caller: "0xrelayer", TxHash: "0xrecon", Amount: big.NewInt(1000)},
		},
	}
}

func (s *PostgresOutboxSuite) TestSaveEmitsEventsInSameTransaction() {
	ctx := context.Background()

	s.Require().NoError(s.transfers.SaveTransfers(ctx, []*models.Transfer{originObservation("0xa")}))
	s.Require().NoError(s.transfers.SaveTransfers(ctx, []*models.Transfer{reconcileObservation("0xa")}))

	events, err := s.events.ListUnpublished(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("0xa", events[0].TransferID)
	s.Equal(models.StatusXCalled, events[0].Status)
	s.Equal(models.StatusReconciled, events[1].Status)
}

func (s *PostgresOutboxSuite) TestRedundantSaveEmitsNothing() {
	ctx := context.Background()

	s.Require().NoError(s.transfers.SaveTransfers(ctx, []*models.Transfer{originObservation("0xa")}))
	s.Require().NoError(s.transfers.SaveTransfers(ctx, []*models.Transfer{originObservation("0xa")}))

	events, err := s.events.ListUnpublished(ctx, 0)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresOutboxSuite) TestMarkPublishedRemovesFromBacklog() {
	ctx := context.Background()

	s.Require().NoError(s.transfers.SaveTransfers(ctx, []*models.Transfer{
		originObservation("0xa"), originObservation("0xb"),
	}))

	events, err := s.events.ListUnpublished(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Require().NoError(s.events.MarkPublished(ctx, []uuid.UUID{events[0].ID}))

	remaining, err := s.events.ListUnpublished(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(events[1].ID, remaining[0].ID)
}

func (s *PostgresOutboxSuite) TestListHonorsLimit() {
	ctx := context.Background()

	s.Require().NoError(s.transfers.SaveTransfers(ctx, []*models.Transfer{
		originObservation("0xa"), originObservation("0xb"), originObservation("0xc"),
	}))

	events, err := s.events.ListUnpublished(ctx, 2)
	s.Require().NoError(err)
	s.Len(events, 2)
}
