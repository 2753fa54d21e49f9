package prodrepo

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/inventory-allocation/core/allocation"
)

// CachedRepo keeps recently read product skus in memory. Pre/back-order counters change with every allocation
// and are always read through.
type CachedRepo struct {
	allocation.ProductRepository
	cache *lru.ARCCache
}

func NewCachedRepo(repo allocation.ProductRepository, size int) (*CachedRepo, error) {
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create product cache")
	}
	return &CachedRepo{ProductRepository: repo, cache: cache}, nil
}

func (r *CachedRepo) GetProductSku(ctx context.Context, skuCode string) (allocation.ProductSku, error) {
	if v, ok := r.cache.Get(skuCode); ok {
		return v.(allocation.ProductSku), nil
	}

	product, err := r.ProductRepository.GetProductSku(ctx, skuCode)
	if err != nil {
		return product, err
	}

	r.cache.Add(skuCode, product)
	log.Trace().Str("sku", skuCode).Msg("cached product sku")
	return product, nil
}

func (r *CachedRepo) SaveProductSku(ctx context.Context, product allocation.ProductSku) error {
	r.cache.Remove(product.SkuCode)
	if err := r.ProductRepository.SaveProductSku(ctx, product); err != nil {
		return err
	}
	r.cache.Add(product.SkuCode, product)
	return nil
}
