package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a skip/limit window over a sorted listing.
type Page struct {
	Limit int64
	Skip  int64
}

// NewPage clamps a 1-based page number and size into a Page.
func NewPage(page, size int64) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return Page{Limit: size, Skip: (page - 1) * size}
}

// OrderFilter narrows admin listings. Empty fields match everything.
type OrderFilter struct {
	UserID        string
	Status        FulfillmentStatus
	PaymentStatus PaymentStatus
	HasRequest    bool
}
