package inventory

import "fmt"

// ShortageError details a failed reservation.
type ShortageError struct {
	ProductID int64 `json:"product_id"`
	Required  int   `json:"required"`
	Available int   `json:"available"`
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("product %d: required %d, available %d", e.ProductID, e.Required, e.Available)
}
