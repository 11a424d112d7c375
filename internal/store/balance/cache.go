package balance

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"conduit/internal/models"
)

const (
	liquidityCacheKey = "conduit:router_liquidity"
	liquidityCacheTTL = 30 * time.Second
)

// CachedView decorates a Store with a Redis-backed copy of the aggregated
// liquidity view, rebuilt lazily on the first read after any write. A nil
// Redis client degrades to direct reads, so embedded and test setups need no
// cache at all.
//
// Cache misses and Redis failures fall through to the underlying store; the
// cache can only make reads cheaper, never wrong, because every write path
// invalidates before returning.
type CachedView struct {
	Store
	rdb *redis.Client
}

func NewCachedView(store Store, rdb *redis.Client) *CachedView {
	return &CachedView{Store: store, rdb: rdb}
}

// cachedBalance is the wire form: amounts travel as decimal strings.
type cachedBalance struct {
	Router      string `json:"router"`
	Domain      string `json:"domain"`
	CanonicalID string `json:"canonical_id"`
	Balance     string `json:"balance"`
}

func (v *CachedView) SaveRouterBalances(ctx context.Context, balances []*models.RouterBalance) error {
	if err := v.Store.SaveRouterBalances(ctx, balances); err != nil {
		return err
	}
	v.invalidate(ctx)
	return nil
}

func (v *CachedView) AddLiquidity(ctx context.Context, router, domain, canonicalID string, amount *big.Int) error {
	if err := v.Store.AddLiquidity(ctx, router, domain, canonicalID, amount); err != nil {
		return err
	}
	v.invalidate(ctx)
	return nil
}

func (v *CachedView) RemoveLiquidity(ctx context.Context, router, domain, canonicalID string, amount *big.Int) error {
	if err := v.Store.RemoveLiquidity(ctx, router, domain, canonicalID, amount); err != nil {
		return err
	}
	v.invalidate(ctx)
	return nil
}

func (v *CachedView) GetRouterLiquidity(ctx context.Context) ([]*models.RouterLiquidity, error) {
	if v.rdb == nil {
		return v.Store.GetRouterLiquidity(ctx)
	}
	if payload, err := v.rdb.Get(ctx, liquidityCacheKey).Bytes(); err == nil {
		if cached, ok := decodeLiquidity(payload); ok {
			return cached, nil
		}
	}
	fresh, err := v.Store.GetRouterLiquidity(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(flattenLiquidity(fresh)); err == nil {
		v.rdb.Set(ctx, liquidityCacheKey, payload, liquidityCacheTTL)
	}
	return fresh, nil
}

func (v *CachedView) invalidate(ctx context.Context) {
	if v.rdb != nil {
		v.rdb.Del(ctx, liquidityCacheKey)
	}
}

func flattenLiquidity(groups []*models.RouterLiquidity) []cachedBalance {
	flat := []cachedBalance{}
	for _, g := range groups {
		for _, b := range g.Balances {
			flat = append(flat, cachedBalance{
				Router:      b.Router,
				Domain:      b.Domain,
				CanonicalID: b.CanonicalID,
				Balance:     b.Balance.String(),
			})
		}
	}
	return flat
}

// decodeLiquidity rebuilds the grouped view; the flat form is stored already
// sorted by (router, domain, canonical id).
func decodeLiquidity(payload []byte) ([]*models.RouterLiquidity, bool) {
	var flat []cachedBalance
	if err := json.Unmarshal(payload, &flat); err != nil {
		return nil, false
	}
	var out []*models.RouterLiquidity
	for _, c := range flat {
		balance, ok := new(big.Int).SetString(c.Balance, 10)
		if !ok {
			return nil, false
		}
		if len(out) == 0 || out[len(out)-1].Router != c.Router {
			out = append(out, &models.RouterLiquidity{Router: c.Router})
		}
		group := out[len(out)-1]
		group.Balances = append(group.Balances, models.RouterBalance{
			Router:      c.Router,
			Domain:      c.Domain,
			CanonicalID: c.CanonicalID,
			Balance:     balance,
		})
	}
	return out, true
}
