package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound: the id does not exist in the menu catalog.
	ErrItemNotFound = errors.New("menu item does not exist")
	// ErrItemNotInCart: the item exists but this user's cart has no entry for it.
	ErrItemNotInCart = errors.New("item not in cart")
	// ErrConcurrentUpdate is returned when optimistic retries are exhausted.
	ErrConcurrentUpdate = errors.New("cart modified concurrently")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	// ErrLineLimit: adding would take a line past MaxQuantity.
	ErrLineLimit = fmt.Errorf("%w: line limit is %d", ErrInvalidQuantity, MaxQuantity)
)
