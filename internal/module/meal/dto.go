package meal

// AddMealRequest is the form for publishing a new meal. Admin only.
type AddMealRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Category    string  `json:"category" validate:"required,max=50"`
	Price       float64 `json:"price" validate:"gte=0"`
	Distributor string  `json:"distributor" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=2000"`
	Ingredients string  `json:"ingredients" validate:"max=2000"`
	Image       string  `json:"image" validate:"omitempty,url"`
}

// UpdateMealRequest is the form for editing an existing meal. Admin only.
// All fields are sent; the server replaces the stored values.
type UpdateMealRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Category    string  `json:"category" validate:"required,max=50"`
	Price       float64 `json:"price" validate:"gte=0"`
	Distributor string  `json:"distributor" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=2000"`
	Ingredients string  `json:"ingredients" validate:"max=2000"`
	Image       string  `json:"image" validate:"omitempty,url"`
}
