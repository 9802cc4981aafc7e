package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind is the closed set of bookable item variants.
type ItemKind string

const (
	ItemKindWorkshop ItemKind = "WORKSHOP"
	ItemKindCourse   ItemKind = "COURSE"
)

// ItemRef points at one bookable item. Build it with WorkshopItem or CourseItem.
type ItemRef struct {
	kind ItemKind
	id   string
}

// WorkshopItem references a workshop.
func WorkshopItem(id string) ItemRef { return ItemRef{kind: ItemKindWorkshop, id: id} }

// CourseItem references a course.
func CourseItem(id string) ItemRef { return ItemRef{kind: ItemKindCourse, id: id} }

// ParseItemRef rebuilds a reference from its stored (kind, id) pair.
func ParseItemRef(kind string, id string) (ItemRef, error) {
	if id == "" {
		return ItemRef{}, fmt.Errorf("item id is required")
	}
	switch ItemKind(kind) {
	case ItemKindWorkshop:
		return WorkshopItem(id), nil
	case ItemKindCourse:
		return CourseItem(id), nil
	default:
		return ItemRef{}, fmt.Errorf("unknown item kind %q", kind)
	}
}

func (r ItemRef) Kind() ItemKind { return r.kind }
func (r ItemRef) ID() string { return r.id }
func (r ItemRef) IsZero() bool { return r.kind == "" }
func (r ItemRef) IsWorkshop() bool { return r.kind == ItemKindWorkshop }
func (r ItemRef) String() string { return fmt.Sprintf("%s:%s", r.kind, r.id) }
func (r ItemRef) Resource() Resource { return Resource{kind: ResourceKind(r.kind), id: r.id} }

// MarshalJSON renders the reference as {"kind": ..., "id": ...}.
func (r ItemRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind ItemKind `json:"kind"`
		ID   string   `json:"id"`
	}{r.kind, r.id})
}

// Workshop is a live session with a fixed number of seats.
type Workshop struct {
	WorkshopID     string          `json:"workshopID"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	SeatsTotal     int             `json:"seatsTotal"`
	SeatsAvailable int             `json:"seatsAvailable"`
	Date           time.Time       `json:"date"`
	Active         bool            `json:"active"`
}

// IsFull reports whether no seat is left.
func (w Workshop) IsFull() bool { return w.SeatsAvailable <= 0 }

// Course is self-paced and never runs out of seats.
type Course struct {
	CourseID      string          `json:"courseID"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	EnrolledCount int             `json:"enrolledCount"`
	Active        bool            `json:"active"`
}

// BookableItem is the resolved item behind an ItemRef. Exactly one field is set.
type BookableItem struct {
	Workshop *Workshop
	Course   *Course
}

// Price returns the full price of the item.
func (b BookableItem) Price() decimal.Decimal {
	switch {
	case b.Workshop != nil:
		return b.Workshop.Price
	case b.Course != nil:
		return b.Course.Price
	}
	return decimal.Zero
}

// Active reports whether the item accepts enrollments.
func (b BookableItem) Active() bool {
	switch {
	case b.Workshop != nil:
		return b.Workshop.Active
	case b.Course != nil:
		return b.Course.Active
	}
	return false
}

// StockItem is a physical or digital product.
type StockItem struct {
	StockItemID       string          `json:"stockItemID"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stockQuantity"`
	StockTracked      bool            `json:"stockTracked"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	Active            bool            `json:"active"`
}

// ResourceKind names what a capacity counter counts.
type ResourceKind string

const (
	ResourceWorkshopSeats ResourceKind = ResourceKind(ItemKindWorkshop)
	ResourceCourseSeats   ResourceKind = ResourceKind(ItemKindCourse)
	ResourceStock         ResourceKind = "PRODUCT"
)

// Resource identifies one capacity counter owned by the ledger.
type Resource struct {
	kind ResourceKind
	id   string
}

// StockResource references the stock counter of a product.
func StockResource(id string) Resource { return Resource{kind: ResourceStock, id: id} }

func (r Resource) Kind() ResourceKind { return r.kind }
func (r Resource) ID() string { return r.id }
func (r Resource) String() string { return fmt.Sprintf("%s:%s", r.kind, r.id) }

// Reservation is the counter state after a reserve or release.
type Reservation struct {
	Resource  Resource
	Quantity  int
	Remaining int
	// Tracked is false when the counter never limits (courses, untracked stock).
	Tracked bool
}
