//go:build integration

package transfer_test

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"conduit/internal/models"
	"conduit/internal/store/transfer"
	"conduit/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *transfer.PostgresStore
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
	s.store = transfer.NewPostgres(s.postgres.DB, nil)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "transfers"))
}

func originWrite(id string, nonce uint64) *models.Transfer {
	return &models.Transfer{
		TransferID: id,
		Params: models.CallParams{
			OriginDomain:      "1337",
			DestinationDomain: "1338",
			Nonce:             &nonce,
		},
		Origin: &models.OriginTransfer{
			Caller:    "0xcaller",
			Asset:     "0xasset",
			Amount:    big.NewInt(1000),
			Timestamp: nonce * 12,
			TxHash:    "0xorigin" + id,
		},
	}
}

func destinationWrite(id string, withExecute, withReconcile bool, routers ...string) *models.Transfer {
	d := &models.DestinationTransfer{Routers: routers}
	if withExecute {
		d.Execute = &models.ExecuteRecord{Caller: "0xrelayer", TxHash: "0xexec" + id, Amount: big.NewInt(995)}
	}
	if withReconcile {
		d.Reconcile = &models.ReconcileRecord{Caller: "0xrelayer", TxHash: "0xrecon" + id, Amount: big.NewInt(1000)}
	}
	return &models.Transfer{
		TransferID:  id,
		Params:      models.CallParams{OriginDomain: "1337", DestinationDomain: "1338"},
		Destination: d,
	}
}

func (s *PostgresStoreSuite) save(ts ...*models.Transfer) {
	s.Require().NoError(s.store.SaveTransfers(context.Background(), ts))
}

func (s *PostgresStoreSuite) TestMergeAcrossSaves() {
	ctx := context.Background()

	s.save(destinationWrite("0xa", true, false, "0xrouter"))
	s.save(originWrite("0xa", 7))

	got, err := s.store.GetTransferByID(ctx, "0xa")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Require().NotNil(got.Origin)
	s.Equal("0xorigin0xa", got.Origin.TxHash)
	s.Require().NotNil(got.Params.Nonce)
	s.Equal(uint64(7), *got.Params.Nonce)
	s.Require().NotNil(got.Destination)
	s.Equal([]string{"0xrouter"}, got.Destination.Routers)
	s.Require().NotNil(got.Destination.Execute)
	s.Equal("0xexec0xa", got.Destination.Execute.TxHash)
	s.Nil(got.Destination.Reconcile)
}

func (s *PostgresStoreSuite) TestGetMissingReturnsNil() {
	got, err := s.store.GetTransferByID(context.Background(), "0xunknown")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *PostgresStoreSuite) TestAmountsRoundTripArbitraryPrecision() {
	ctx := context.Background()

	huge, ok := new(big.Int).SetString("340282366920938463463374607431768211456", 10) // 2^128
	s.Require().True(ok)

	t := originWrite("0xa", 1)
	t.Origin.Amount = huge
	s.save(t)

	got, err := s.store.GetTransferByID(ctx, "0xa")
	s.Require().NoError(err)
	s.Require().NotNil(got.Origin)
	s.Zero(huge.Cmp(got.Origin.Amount))
}

func (s *PostgresStoreSuite) TestStatusQueryPagination() {
	ctx := context.Background()

	for i := uint64(0); i < 5; i++ {
		s.save(originWrite(fmt.Sprintf("0x%02d", i), i))
	}

	page, err := s.store.GetTransfersByStatus(ctx, models.StatusXCalled, 2, 0, models.OrderAsc)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal("0x00", page[0].TransferID)
	s.Equal("0x01", page[1].TransferID)

	page, err = s.store.GetTransfersByStatus(ctx, models.StatusXCalled, 2, 4, models.OrderAsc)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("0x04", page[0].TransferID)

	page, err = s.store.GetTransfersByStatus(ctx, models.StatusXCalled, 1, 0, models.OrderDesc)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("0x04", page[0].TransferID)
}

func (s *PostgresStoreSuite) TestStatusAdvancesWithObservations() {
	ctx := context.Background()

	s.save(originWrite("0xa", 1))
	s.save(destinationWrite("0xa", true, false, "0xrouter"))

	fast, err := s.store.GetTransfersByStatus(ctx, models.StatusCompletedFast, 0, 0, models.OrderAsc)
	s.Require().NoError(err)
	s.Require().Len(fast, 1)

	s.save(destinationWrite("0xa", false, true))

	executed, err := s.store.GetTransfersByStatus(ctx, models.StatusExecuted, 0, 0, models.OrderAsc)
	s.Require().NoError(err)
	s.Require().Len(executed, 1)

	fast, err = s.store.GetTransfersByStatus(ctx, models.StatusCompletedFast, 0, 0, models.OrderAsc)
	s.Require().NoError(err)
	s.Empty(fast)
}

func (s *PostgresStoreSuite) TestPendingQueries() {
	ctx := context.Background()

	s.save(destinationWrite("0xdest-only", true, false))
	s.save(originWrite("0xorigin-only", 1))
	s.save(originWrite("0xboth", 2))
	s.save(destinationWrite("0xboth", true, false))

	originPending, err := s.store.GetTransfersWithOriginPending(ctx, "1337", 0, models.OrderAsc)
	s.Require().NoError(err)
	s.Equal([]string{"0xdest-only"}, originPending)

	destPending, err := s.store.GetTransfersWithDestinationPending(ctx, "1338", 0, models.OrderAsc)
	s.Require().NoError(err)
	s.Equal([]string{"0xorigin-only"}, destPending)

	none, err := s.store.GetTransfersWithOriginPending(ctx, "", 0, models.OrderAsc)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *PostgresStoreSuite) TestConcurrentSavesSameTransfer() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			var t *models.Transfer
			if idx%2 == 0 {
				t = originWrite("0xrace", uint64(idx))
			} else {
				t = destinationWrite("0xrace", true, false, "0xrouter")
			}
			if err := s.store.SaveTransfers(ctx, []*models.Transfer{t}); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(0), failures.Load(), "no save errors expected")

	got, err := s.store.GetTransferByID(ctx, "0xrace")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.NotNil(got.Origin, "origin observation must survive racing writers")
	s.Require().NotNil(got.Destination)
	s.NotNil(got.Destination.Execute, "execute observation must survive racing writers")
}
