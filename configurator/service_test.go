package configurator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/cart"
	"github.com/Ib-dI/ylang-creations/clientstate"
	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/configurator"
	"github.com/Ib-dI/ylang-creations/domain"
)

var errNotFound = errors.New("not found")

type fakeProducts struct {
	bySlug map[string]*domain.Product
}

func (f *fakeProducts) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	if p, ok := f.bySlug[slug]; ok {
		return p, nil
	}
	return nil, errNotFound
}

func (f *fakeProducts) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	for _, p := range f.bySlug {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errNotFound
}

var catalog = config.CatalogConfig{
	EmbroiderySurcharge: 1500,
	AccessorySurcharge:  1000,
	Fabrics: []config.Fabric{
		{ID: "coton-bio", Name: "Coton bio", Price: 0},
		{ID: "velours", Name: "Velours côtelé", Price: 1200},
	},
	Accessories: []config.Accessory{
		{ID: "doudou", Name: "Doudou assorti"},
		{ID: "pochette", Name: "Pochette de rangement"},
	},
}

func newService() *configurator.Service {
	products := &fakeProducts{bySlug: map[string]*domain.Product{
		"gigoteuse": {
			ID:           uuid.MustParse("6f1c1f0e-3f4e-4d36-9d43-4f7b0a9b0a01"),
			Slug:         "gigoteuse",
			Name:         "Gigoteuse",
			Price:        4590,
			Images:       []string{"https://cdn.example/gigoteuse.jpg"},
			Customizable: true,
		},
		"carte-cadeau": {
			ID:   uuid.MustParse("6f1c1f0e-3f4e-4d36-9d43-4f7b0a9b0a02"),
			Slug: "carte-cadeau",
			Name: "Carte cadeau",
		},
	}}
	return configurator.NewService(clientstate.NewMemory(), products, catalog)
}

func TestService_Flow(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc := newService()

	v, err := svc.Get(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(v.State.Step, qt.Equals, configurator.StepProduct)
	c.Assert(v.CanAdvance, qt.IsFalse)

	_, err = svc.Next(ctx, "k")
	c.Assert(err, qt.ErrorIs, configurator.ErrProductRequired)

	v, err = svc.SelectProduct(ctx, "k", "gigoteuse")
	c.Assert(err, qt.IsNil)
	c.Assert(v.Price.Total, qt.Equals, int64(4590))
	c.Assert(v.State.Selection.Product.Image, qt.Equals, "https://cdn.example/gigoteuse.jpg")

	v, err = svc.Next(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(v.StepName, qt.Equals, "fabric")

	_, err = svc.SelectFabric(ctx, "k", "soie")
	c.Assert(err, qt.ErrorIs, configurator.ErrUnknownFabric)

	_, err = svc.SelectFabric(ctx, "k", "velours")
	c.Assert(err, qt.IsNil)
	_, err = svc.SetEmbroidery(ctx, "k", configurator.Embroidery{Text: "Léa", Font: "script"})
	c.Assert(err, qt.IsNil)
	_, err = svc.SetAccessories(ctx, "k", []string{"doudou", "bavoir"})
	c.Assert(err, qt.ErrorIs, configurator.ErrUnknownAccessory)
	v, err = svc.ToggleAccessory(ctx, "k", "doudou")
	c.Assert(err, qt.IsNil)
	c.Assert(v.Price.Total, qt.Equals, int64(4590+1200+1500+1000))

	v, err = svc.GoTo(ctx, "k", configurator.StepSummary)
	c.Assert(err, qt.IsNil)
	c.Assert(v.State.Step, qt.Equals, configurator.StepSummary)

	// State survives reloads.
	v, err = svc.Get(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(v.State.Step, qt.Equals, configurator.StepSummary)

	// Other visitors are unaffected.
	v, err = svc.Get(ctx, "other")
	c.Assert(err, qt.IsNil)
	c.Assert(v.State.Selection.Product, qt.IsNil)

	v, err = svc.Reset(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(v.State, qt.DeepEquals, configurator.New())
	v, err = svc.Get(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(v.State, qt.DeepEquals, configurator.New())
}

func TestService_SelectProduct(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc := newService()

	_, err := svc.SelectProduct(ctx, "k", "carte-cadeau")
	c.Assert(err, qt.ErrorIs, configurator.ErrNotCustomizable)

	_, err = svc.SelectProduct(ctx, "k", "missing")
	c.Assert(err, qt.ErrorIs, errNotFound)
}

func TestService_LineItem(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc := newService()

	_, err := svc.LineItem(ctx, "k")
	c.Assert(err, qt.ErrorIs, configurator.ErrIncomplete)

	_, err = svc.SelectProduct(ctx, "k", "gigoteuse")
	c.Assert(err, qt.IsNil)
	_, err = svc.SelectFabric(ctx, "k", "velours")
	c.Assert(err, qt.IsNil)
	_, err = svc.SetAccessories(ctx, "k", []string{"doudou", "pochette"})
	c.Assert(err, qt.IsNil)

	item, err := svc.LineItem(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(strings.HasPrefix(item.ID, "custom-6f1c1f0e-3f4e-4d36-9d43-4f7b0a9b0a01-"), qt.IsTrue)
	c.Assert(item.Price, qt.Equals, 77.90)
	c.Assert(item.Quantity, qt.Equals, 1)
	c.Assert(item.Options, qt.DeepEquals, map[string]string{
		"fabric":      "Velours côtelé",
		"accessories": "Doudou assorti, Pochette de rangement",
	})
	c.Assert(item.Configuration, qt.DeepEquals, &cart.Configuration{
		Fabric:      "velours",
		Accessories: []string{"doudou", "pochette"},
	})

	again, err := svc.LineItem(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(again.ID, qt.Equals, item.ID)

	_, err = svc.SelectFabric(ctx, "k", "coton-bio")
	c.Assert(err, qt.IsNil)
	other, err := svc.LineItem(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(other.ID, qt.Not(qt.Equals), item.ID)
	c.Assert(other.Price, qt.Equals, 65.90)
}

func TestRestore(t *testing.T) {
	gigoteuse := &domain.Product{
		ID:           uuid.MustParse("6f1c1f0e-3f4e-4d36-9d43-4f7b0a9b0a01"),
		Slug:         "gigoteuse",
		Name:         "Gigoteuse",
		Price:        4590,
		Customizable: true,
	}

	tests := []struct {
		name    string
		product *domain.Product
		cfg     cart.Configuration
		total   int64
		wantErr error
	}{{
		name:    "fabric only",
		product: gigoteuse,
		cfg:     cart.Configuration{Fabric: "coton-bio"},
		total:   4590,
	}, {
		name:    "every option",
		product: gigoteuse,
		cfg:     cart.Configuration{Fabric: "velours", Embroidery: "Léa", Accessories: []string{"doudou", "pochette", "doudou"}},
		total:   4590 + 1200 + 1500 + 2*1000,
	}, {
		name:    "unknown fabric",
		product: gigoteuse,
		cfg:     cart.Configuration{Fabric: "soie"},
		wantErr: configurator.ErrUnknownFabric,
	}, {
		name:    "unknown accessory",
		product: gigoteuse,
		cfg:     cart.Configuration{Fabric: "velours", Accessories: []string{"hochet"}},
		wantErr: configurator.ErrUnknownAccessory,
	}, {
		name:    "embroidery too long",
		product: gigoteuse,
		cfg:     cart.Configuration{Fabric: "velours", Embroidery: strings.Repeat("a", configurator.MaxEmbroideryLength+1)},
		wantErr: configurator.ErrEmbroideryTooLong,
	}, {
		name:    "not customizable",
		product: &domain.Product{ID: uuid.New(), Name: "Carte cadeau", Price: 2000},
		cfg:     cart.Configuration{Fabric: "velours"},
		wantErr: configurator.ErrNotCustomizable,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			st, err := configurator.Restore(tt.product, tt.cfg, catalog)
			if tt.wantErr != nil {
				c.Assert(err, qt.ErrorIs, tt.wantErr)
				return
			}
			c.Assert(err, qt.IsNil)
			c.Assert(st.Step, qt.Equals, configurator.StepSummary)
			c.Assert(st.Price(configurator.PricingFor(catalog)).Total, qt.Equals, tt.total)
		})
	}
}
