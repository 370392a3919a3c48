package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// ParseRole matches a role string case-insensitively.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleCustomer):
		return RoleCustomer, true
	case string(RoleSeller):
		return RoleSeller, true
	case string(RoleAdmin):
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Session is the client-held record of an authenticated identity.
// Role is present iff Token is present; a token without a role is a
// corrupt session and must be re-authenticated.
type Session struct {
	Token     string
	Role      Role
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Corrupt reports a token without a resolvable role.
func (s Session) Corrupt() bool {
	return s.Token != "" && s.Role == ""
}

// LineItem is one cart or wishlist entry. Wishlist entries carry an
// implicit quantity of 1.
type LineItem struct {
	BookID    string  `json:"bookId"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	ImageRef  string  `json:"imageRef,omitempty"`
}

// Mirror is the local cached copy of a server-owned line-item collection
// plus its derived aggregates. Aggregates are never patched incrementally;
// call Recompute after any change to Items.
type Mirror struct {
	Items         []LineItem `json:"items"`
	TotalQuantity int        `json:"totalQuantity"`
	TotalPrice    float64    `json:"totalPrice"`
}

// Recompute rebuilds both aggregates from the current items.
func (m *Mirror) Recompute() {
	m.TotalQuantity = 0
	m.TotalPrice = 0
	for _, item := range m.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		m.TotalQuantity += qty
		m.TotalPrice += item.UnitPrice * float64(qty)
	}
}

// Empty reports whether the mirror holds no items.
func (m Mirror) Empty() bool {
	return len(m.Items) == 0
}

type Book struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image"`
	SellerID    string    `json:"sellerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Pagination mirrors the remote API's paging envelope.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
}

// Profile holds the editable user fields.
type Profile struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	ImageURL  string `json:"image,omitempty"`
}

// User is the admin-facing account listing shape.
type User struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	Blocked   bool      `json:"isBlocked"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Address is the canonical delivery-address shape. The remote API returns
// addresses in several loosely-normalized forms; apiclient normalizes them
// all into this one.
type Address struct {
	ID        string `json:"_id"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Country   string `json:"country"`
	IsDefault bool   `json:"isDefault"`
}

type OrderItemStatus string

const (
	OrderItemProcessing OrderItemStatus = "processing"
	OrderItemShipped    OrderItemStatus = "shipped"
	OrderItemDelivered  OrderItemStatus = "delivered"
	OrderItemCancelled  OrderItemStatus = "cancelled"
)

type OrderItem struct {
	BookID    string          `json:"bookId"`
	Title     string          `json:"title"`
	UnitPrice float64         `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Status    OrderItemStatus `json:"status"`
}

type Order struct {
	ID         string      `json:"_id"`
	Items      []OrderItem `json:"items"`
	Address    Address     `json:"address"`
	TotalPrice float64     `json:"totalPrice"`
	PlacedAt   time.Time   `json:"createdAt"`
}

// SellerStats are the seller dashboard counters.
type SellerStats struct {
	TotalBooks    int     `json:"totalBooks"`
	TotalOrders   int     `json:"totalOrders"`
	PendingOrders int     `json:"pendingOrders"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// AdminStats are the admin dashboard counters.
type AdminStats struct {
	TotalCustomers int     `json:"totalCustomers"`
	TotalSellers   int     `json:"totalSellers"`
	TotalBooks     int     `json:"totalBooks"`
	TotalOrders    int     `json:"totalOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
}

// HomeBooks are the public featured lists on the landing page.
type HomeBooks struct {
	Featured    []Book `json:"featured"`
	NewArrivals []Book `json:"newArrivals"`
}
