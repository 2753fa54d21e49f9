// Package cartorder creates the order record that belongs to a shopping cart. Two checkout requests for the
// same cart may race to create it; the loser adopts the winner's row.
package cartorder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrDuplicate = errors.New("cartorder: cart order already exists")

type CartOrder struct {
	ID        string    `json:"id"`
	CartGUID  string    `json:"cartGuid"`
	StoreCode string    `json:"storeCode"`
	Created   time.Time `json:"created"`
}

type Repository interface {
	// Insert returns ErrDuplicate when an order already exists for the cart.
	Insert(ctx context.Context, order CartOrder) error
	GetByCart(ctx context.Context, cartGUID string) (CartOrder, error)
}

type Service interface {
	CreateIfAbsent(ctx context.Context, cartGUID, storeCode string) (CartOrder, error)
}

func NewService(repo Repository) *service {
	return &service{repo: repo, now: time.Now}
}

type service struct {
	repo Repository
	now  func() time.Time
}

func (s *service) CreateIfAbsent(ctx context.Context, cartGUID, storeCode string) (CartOrder, error) {
	const funcName = "CreateIfAbsent"

	if cartGUID == "" {
		return CartOrder{}, errors.New("cart guid is required")
	}

	order := CartOrder{
		ID:        uuid.NewString(),
		CartGUID:  cartGUID,
		StoreCode: storeCode,
		Created:   s.now(),
	}

	err := s.repo.Insert(ctx, order)
	if err == nil {
		log.Info().Str("func", funcName).Str("cart", cartGUID).Str("id", order.ID).Msg("created cart order")
		return order, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return CartOrder{}, errors.WithMessage(err, "failed to create cart order")
	}

	log.Warn().
		Str("func", funcName).
		Str("cart", cartGUID).
		Msg("cart order was created concurrently, using the existing one")

	existing, err := s.repo.GetByCart(ctx, cartGUID)
	if err != nil {
		return CartOrder{}, errors.WithMessage(err, "failed to load concurrently created cart order")
	}
	return existing, nil
}
