//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/clientstate"
	"github.com/Ib-dI/ylang-creations/dbschema"
	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/migration/migrator"
	"github.com/Ib-dI/ylang-creations/migrations"
	"github.com/Ib-dI/ylang-creations/store"
)

// setupStore migrates a clean public schema on POSTGRES_TEST_DSN.
func setupStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping store integration test: POSTGRES_TEST_DSN environment variable not set")
	}

	c := qt.New(t)
	ctx := context.Background()

	db, err := dbschema.Connect(dsn, dbschema.WithSSLMode("disable"))
	c.Assert(err, qt.IsNil)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public`)
	c.Assert(err, qt.IsNil)

	m, err := migrator.NewFSMigrator(db, migrations.FS())
	c.Assert(err, qt.IsNil)
	c.Assert(m.MigrateUp(ctx), qt.IsNil)

	return store.New(db)
}

func createUser(t *testing.T, s *store.Store, email string) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Email: email, FullName: "Camille"}
	qt.Assert(t, s.Users.Upsert(context.Background(), u), qt.IsNil)
	return u
}

func TestProducts(t *testing.T) {
	s := setupStore(t)
	c := qt.New(t)
	ctx := context.Background()

	p := &domain.Product{
		Slug:     "gigoteuse-lin",
		Name:     "Gigoteuse en lin",
		Category: "sommeil",
		Price:    6490,
		Stock:    3,
		Images:   []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"},
		Options:  map[string]any{"tailles": []any{"0-6m", "6-12m"}},
		Featured: true,
	}
	c.Assert(s.Products.Create(ctx, p), qt.IsNil)
	c.Assert(p.ID, qt.Not(qt.Equals), uuid.Nil)

	dup := &domain.Product{Slug: "gigoteuse-lin", Name: "Autre", Price: 100}
	c.Assert(s.Products.Create(ctx, dup), qt.ErrorIs, store.ErrConflict)

	got, err := s.Products.GetBySlug(ctx, "gigoteuse-lin")
	c.Assert(err, qt.IsNil)
	c.Assert(got.Images, qt.DeepEquals, p.Images)
	c.Assert(got.Options, qt.DeepEquals, p.Options)

	_, err = s.Products.GetBySlug(ctx, "missing")
	c.Assert(err, qt.ErrorIs, store.ErrNotFound)

	c.Assert(s.Products.Create(ctx, &domain.Product{Slug: "bavoir", Name: "Bavoir", Category: "repas", Price: 1200}), qt.IsNil)

	featured := true
	list, err := s.Products.List(ctx, store.ProductFilter{Featured: &featured})
	c.Assert(err, qt.IsNil)
	c.Assert(list.Total, qt.Equals, 1)
	c.Assert(list.Products[0].Slug, qt.Equals, "gigoteuse-lin")

	list, err = s.Products.List(ctx, store.ProductFilter{Sort: store.SortPriceAsc})
	c.Assert(err, qt.IsNil)
	c.Assert(list.Total, qt.Equals, 2)
	c.Assert(list.Products[0].Slug, qt.Equals, "bavoir")

	list, err = s.Products.List(ctx, store.ProductFilter{Search: "LIN"})
	c.Assert(err, qt.IsNil)
	c.Assert(list.Total, qt.Equals, 1)

	// A page past the end still reports the total.
	list, err = s.Products.List(ctx, store.ProductFilter{Page: store.Page{Limit: 10, Offset: 50}})
	c.Assert(err, qt.IsNil)
	c.Assert(list.Products, qt.HasLen, 0)
	c.Assert(list.Total, qt.Equals, 2)

	c.Assert(s.Products.AdjustStock(ctx, p.ID, -10), qt.IsNil)
	got, err = s.Products.GetByID(ctx, p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Stock, qt.Equals, 0)
}

func TestProductDeleteRemovesReviews(t *testing.T) {
	s := setupStore(t)
	c := qt.New(t)
	ctx := context.Background()

	u := createUser(t, s, "camille@example.com")
	p := &domain.Product{Slug: "doudou", Name: "Doudou", Price: 2500, Images: []string{"https://cdn.example/doudou.jpg"}}
	c.Assert(s.Products.Create(ctx, p), qt.IsNil)

	_, err := s.Reviews.Upsert(ctx, &domain.Review{ProductID: p.ID, UserID: u.ID, Rating: 5, Comment: "Parfait"})
	c.Assert(err, qt.IsNil)

	deleted, err := s.Products.Delete(ctx, p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(deleted.Images, qt.DeepEquals, []string{"https://cdn.example/doudou.jpg"})

	reviews, err := s.Reviews.ListForProduct(ctx, p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(reviews, qt.HasLen, 0)

	_, err = s.Products.Delete(ctx, p.ID)
	c.Assert(err, qt.ErrorIs, store.ErrNotFound)
}

func TestReviewsUpsertOnePerUser(t *testing.T) {
	s := setupStore(t)
	c := qt.New(t)
	ctx := context.Background()

	u := createUser(t, s, "lea@example.com")
	p := &domain.Product{Slug: "cape", Name: "Cape de bain", Price: 3900}
	c.Assert(s.Products.Create(ctx, p), qt.IsNil)

	created, err := s.Reviews.Upsert(ctx, &domain.Review{ProductID: p.ID, UserID: u.ID, Rating: 3})
	c.Assert(err, qt.IsNil)
	c.Assert(created, qt.IsTrue)

	created, err = s.Reviews.Upsert(ctx, &domain.Review{ProductID: p.ID, UserID: u.ID, Rating: 5, Comment: "Finalement top"})
	c.Assert(err, qt.IsNil)
	c.Assert(created, qt.IsFalse)

	reviews, err := s.Reviews.ListForProduct(ctx, p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(reviews, qt.HasLen, 1)
	c.Assert(reviews[0].Rating, qt.Equals, 5)
	c.Assert(reviews[0].Author, qt.Equals, "Camille")

	summary, err := s.Reviews.Summary(ctx, p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(summary, qt.Equals, domain.RatingSummary{Count: 1, Average: 5})
}

func TestSettingsSingleton(t *testing.T) {
	s := setupStore(t)
	c := qt.New(t)
	ctx := context.Background()

	got, err := s.Settings.Get(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Store.Name, qt.Equals, "Ylang Créations")

	got.Store.AnnouncementBar = "Livraison offerte dès 80 €"
	c.Assert(s.Settings.Save(ctx, got), qt.IsNil)

	got.Testimonials = []domain.Testimonial{{Author: "Inès", Content: "Magnifique", Rating: 5}}
	c.Assert(s.Settings.Save(ctx, got), qt.IsNil)

	var rows int
	c.Assert(s.DB.QueryRowContext(ctx, `SELECT count(*) FROM settings`).Scan(&rows), qt.IsNil)
	c.Assert(rows, qt.Equals, 1)

	got, err = s.Settings.Get(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Store.AnnouncementBar, qt.Equals, "Livraison offerte dès 80 €")
	c.Assert(got.Testimonials, qt.HasLen, 1)

	reset, err := s.Settings.Reset(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(reset.Store.AnnouncementBar, qt.Equals, "")
	c.Assert(s.DB.QueryRowContext(ctx, `SELECT count(*) FROM settings`).Scan(&rows), qt.IsNil)
	c.Assert(rows, qt.Equals, 1)
}

func TestOrdersLifecycle(t *testing.T) {
	s := setupStore(t)
	c := qt.New(t)
	ctx := context.Background()

	u := createUser(t, s, "paul@example.com")
	cust := &domain.Customer{UserID: u.ID, StripeCustomerID: "cus_123"}
	c.Assert(s.Customers.Create(ctx, cust), qt.IsNil)
	c.Assert(s.Customers.Create(ctx, &domain.Customer{UserID: u.ID, StripeCustomerID: "cus_456"}), qt.ErrorIs, store.ErrConflict)

	p := &domain.Product{Slug: "turbulette", Name: "Turbulette", Price: 5500, Stock: 5}
	c.Assert(s.Products.Create(ctx, p), qt.IsNil)

	o := &domain.Order{
		CustomerID:      &cust.ID,
		Items:           []domain.OrderItem{{ProductID: p.ID.String(), Name: p.Name, UnitPrice: 5500, Quantity: 2}},
		TotalAmount:     11000,
		Currency:        "eur",
		StripeSessionID: "cs_test_1",
	}
	c.Assert(s.Orders.Create(ctx, o), qt.IsNil)
	c.Assert(o.Status, qt.Equals, domain.OrderPending)

	address := &domain.Address{Line1: "1 rue des Lilas", PostalCode: "75011", City: "Paris", Country: "FR"}
	paid, changed, err := s.Orders.MarkPaid(ctx, store.PaymentRef{Reference: "cs_test_1"}, store.Payment{CustomerEmail: "paul@example.com", ShippingAddress: address})
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsTrue)
	c.Assert(paid.Status, qt.Equals, domain.OrderConfirmed)

	_, changed, err = s.Orders.MarkPaid(ctx, store.PaymentRef{OrderID: o.ID, Reference: "cs_test_1"}, store.Payment{})
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsFalse)

	got, err := s.Products.GetByID(ctx, p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Stock, qt.Equals, 3)

	_, err = s.Orders.UpdateStatus(ctx, o.ID, domain.OrderDelivered)
	c.Assert(err, qt.ErrorIs, store.ErrInvalidTransition)
	updated, err := s.Orders.UpdateStatus(ctx, o.ID, domain.OrderInProduction)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Status, qt.Equals, domain.OrderInProduction)
	c.Assert(updated.ShippingAddress, qt.DeepEquals, address)

	mine, err := s.Orders.ListForUser(ctx, u.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(mine.Orders, qt.HasLen, 1)

	c.Assert(s.Orders.Create(ctx, &domain.Order{TotalAmount: 100, Currency: "eur", StripeSessionID: "cs_test_2"}), qt.IsNil)
	cancelled, err := s.Orders.CancelPending(ctx, store.PaymentRef{Reference: "cs_test_2"})
	c.Assert(err, qt.IsNil)
	c.Assert(cancelled, qt.IsTrue)
	cancelled, err = s.Orders.CancelPending(ctx, store.PaymentRef{Reference: "cs_test_1"})
	c.Assert(err, qt.IsNil)
	c.Assert(cancelled, qt.IsFalse)

	stats, err := s.Orders.Stats(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(stats.TotalOrders, qt.Equals, 2)
	c.Assert(stats.Revenue, qt.Equals, int64(11000))
	c.Assert(stats.ByStatus[domain.OrderCancelled], qt.Equals, 1)
	c.Assert(stats.ProductCount, qt.Equals, 1)
	c.Assert(stats.CustomerCount, qt.Equals, 1)

	list, err := s.Orders.List(ctx, store.OrderFilter{Status: domain.OrderCancelled})
	c.Assert(err, qt.IsNil)
	c.Assert(list.Total, qt.Equals, 1)

	list, err = s.Orders.List(ctx, store.OrderFilter{Page: store.Page{Offset: 10}})
	c.Assert(err, qt.IsNil)
	c.Assert(list.Orders, qt.HasLen, 0)
	c.Assert(list.Total, qt.Equals, 2)
}

func TestOrders_NotificationBeforeReference(t *testing.T) {
	s := setupStore(t)
	c := qt.New(t)
	ctx := context.Background()

	p := &domain.Product{Slug: "gigoteuse", Name: "Gigoteuse", Price: 4590, Stock: 2}
	c.Assert(s.Products.Create(ctx, p), qt.IsNil)

	o := &domain.Order{
		Items:       []domain.OrderItem{{ProductID: p.ID.String(), Name: p.Name, UnitPrice: 4590, Quantity: 1}},
		TotalAmount: 4590,
		Currency:    "eur",
	}
	c.Assert(s.Orders.Create(ctx, o), qt.IsNil)

	// The processor reports the payment before checkout recorded the session.
	paid, changed, err := s.Orders.MarkPaid(ctx, store.PaymentRef{OrderID: o.ID, Reference: "cs_early"}, store.Payment{CustomerEmail: "lea@example.com"})
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsTrue)
	c.Assert(paid.StripeSessionID, qt.Equals, "cs_early")

	c.Assert(s.Orders.AttachReference(ctx, o.ID, "cs_early"), qt.IsNil)
	c.Assert(s.Orders.AttachReference(ctx, o.ID, "cs_other"), qt.ErrorIs, store.ErrNotFound)

	got, err := s.Orders.GetBySessionID(ctx, "cs_early")
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.Equals, o.ID)
	c.Assert(got.Status, qt.Equals, domain.OrderConfirmed)

	// Only orders that never reached the processor are discarded.
	c.Assert(s.Orders.Discard(ctx, o.ID), qt.IsNil)
	_, err = s.Orders.GetByID(ctx, o.ID)
	c.Assert(err, qt.IsNil)

	failed := &domain.Order{TotalAmount: 100, Currency: "eur"}
	c.Assert(s.Orders.Create(ctx, failed), qt.IsNil)
	c.Assert(s.Orders.Discard(ctx, failed.ID), qt.IsNil)
	_, err = s.Orders.GetByID(ctx, failed.ID)
	c.Assert(err, qt.ErrorIs, store.ErrNotFound)
}

func TestUsers(t *testing.T) {
	s := setupStore(t)
	c := qt.New(t)
	ctx := context.Background()

	u := createUser(t, s, "admin@example.com")
	c.Assert(u.Role, qt.Equals, domain.RoleCustomer)

	u.FullName = ""
	u.Role = domain.RoleAdmin
	c.Assert(s.Users.Upsert(ctx, u), qt.IsNil)
	c.Assert(u.FullName, qt.Equals, "Camille")
	c.Assert(u.Role, qt.Equals, domain.RoleCustomer)

	updated, err := s.Users.UpdateRole(ctx, u.ID, domain.RoleAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Role, qt.Equals, domain.RoleAdmin)

	role, ok, err := s.Users.RoleOf(ctx, u.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(role, qt.Equals, domain.RoleAdmin)
	_, ok, err = s.Users.RoleOf(ctx, uuid.New())
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	list, err := s.Users.List(ctx, store.UserFilter{Role: domain.RoleAdmin})
	c.Assert(err, qt.IsNil)
	c.Assert(list.Total, qt.Equals, 1)

	list, err = s.Users.List(ctx, store.UserFilter{Role: domain.RoleAdmin, Page: store.Page{Offset: 5}})
	c.Assert(err, qt.IsNil)
	c.Assert(list.Users, qt.HasLen, 0)
	c.Assert(list.Total, qt.Equals, 1)

	c.Assert(s.Users.Delete(ctx, u.ID), qt.IsNil)
	c.Assert(s.Users.Delete(ctx, u.ID), qt.ErrorIs, store.ErrNotFound)
}

func TestStates(t *testing.T) {
	s := setupStore(t)
	c := qt.New(t)
	ctx := context.Background()

	type doc struct {
		Items []string `json:"items"`
	}
	var got doc
	found, err := s.States.Load(ctx, "k", clientstate.KindCart, &got)
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsFalse)

	c.Assert(s.States.Save(ctx, "k", clientstate.KindCart, doc{Items: []string{"a"}}), qt.IsNil)
	c.Assert(s.States.Save(ctx, "k", clientstate.KindCart, doc{Items: []string{"a", "b"}}), qt.IsNil)
	found, err = s.States.Load(ctx, "k", clientstate.KindCart, &got)
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsTrue)
	c.Assert(got.Items, qt.DeepEquals, []string{"a", "b"})

	c.Assert(s.States.Delete(ctx, "k", clientstate.KindCart), qt.IsNil)
	found, err = s.States.Load(ctx, "k", clientstate.KindCart, &got)
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsFalse)
}
