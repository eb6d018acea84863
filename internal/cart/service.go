package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jlkwl/supermarket/internal/cart/cache"
	"github.com/jlkwl/supermarket/internal/cart/store"
	"github.com/jlkwl/supermarket/internal/domain"
)

var (
	ErrQuantityInvalid = errors.New("quantity must be positive")
)

// ProductCatalog is the read-only product lookup used to freeze unit prices
// when an item enters the cart.
type ProductCatalog interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

// Service is the cart collaborator the checkout engine consumes: it serves
// snapshots of the user's cart and clears it after a committed order.
type Service struct {
	repo     store.CartStore
	cache    cache.CartCache
	products ProductCatalog
	sfg      singleflight.Group // Prevents cache stampede
}

func NewService(repo store.CartStore, cache cache.CartCache, products ProductCatalog) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		products: products,
	}
}

func (s *Service) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(fmt.Sprint(userID), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errors.Is(errGet, store.ErrCartNotFound) {
			return &domain.Cart{
				UserID:    userID,
				Items:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// Lines returns the read-only snapshot the checkout engine consumes. Lines
// for the same product are already merged by AddItem.
func (s *Service) Lines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart.Lines(), nil
}

// AddItem looks up the product and stores the line with the unit price frozen
// at add time.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrQuantityInvalid
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	item := domain.CartItem{
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
	}
	if errAdd := s.repo.AddItem(ctx, userID, item); errAdd != nil {
		log.Printf("repo add item error: %v", errAdd)
		return errAdd
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		// Zero or negative means the item leaves the cart.
		return s.RemoveItem(ctx, userID, productID)
	}
	if errUpdate := s.repo.UpdateItemQuantity(ctx, userID, productID, quantity); errUpdate != nil {
		log.Printf("repo update item quantity error: %v", errUpdate)
		return errUpdate
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) error {
	if errRemove := s.repo.RemoveItem(ctx, userID, productID); errRemove != nil {
		log.Printf("repo remove item error: %v", errRemove)
		return errRemove
	}

	s.invalidateCache(userID)
	return nil
}

// Clear empties the cart. The checkout engine calls this after commit; a
// missing cart is not an error there.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil && !errors.Is(errDelete, store.ErrCartNotFound) {
		log.Printf("repo delete cart error: %v", errDelete)
		return errDelete
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
