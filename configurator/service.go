package configurator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/cart"
	"github.com/Ib-dI/ylang-creations/clientstate"
	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/domain"
)

var (
	// ErrNotCustomizable is returned when selecting a product that cannot be configured.
	ErrNotCustomizable = errors.New("product is not customizable")
	// ErrUnknownFabric is returned for fabric ids missing from the catalogue.
	ErrUnknownFabric = errors.New("unknown fabric")
	// ErrUnknownAccessory is returned for accessory ids missing from the catalogue.
	ErrUnknownAccessory = errors.New("unknown accessory")
	// ErrIncomplete is returned when adding an unfinished configuration to the cart.
	ErrIncomplete = errors.New("configuration is incomplete")
)

// ProductLookup resolves catalogue products.
type ProductLookup interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// View is a state with its computed price.
type View struct {
	State      *State         `json:"state"`
	StepName   string         `json:"stepName"`
	CanAdvance bool           `json:"canAdvance"`
	Price      PriceBreakdown `json:"price"`
}

// Service persists configurator state per visitor and validates choices
// against the catalogue.
type Service struct {
	states   clientstate.Store
	products ProductLookup
	catalog  config.CatalogConfig
}

// NewService creates a configurator service.
func NewService(states clientstate.Store, products ProductLookup, catalog config.CatalogConfig) *Service {
	return &Service{states: states, products: products, catalog: catalog}
}

// Pricing returns the surcharges from the catalogue.
func (s *Service) Pricing() Pricing {
	return PricingFor(s.catalog)
}

// PricingFor returns the surcharges of catalog.
func PricingFor(catalog config.CatalogConfig) Pricing {
	return Pricing{
		EmbroiderySurcharge: catalog.EmbroiderySurcharge,
		AccessorySurcharge:  catalog.AccessorySurcharge,
	}
}

// Catalog returns the fabric and accessory catalogue.
func (s *Service) Catalog() config.CatalogConfig {
	return s.catalog
}

func (s *Service) view(st *State) *View {
	return &View{
		State:      st,
		StepName:   st.Step.String(),
		CanAdvance: st.CanAdvance(),
		Price:      st.Price(s.Pricing()),
	}
}

func (s *Service) load(ctx context.Context, key string) (*State, error) {
	st := New()
	if _, err := s.states.Load(ctx, key, clientstate.KindConfigurator, st); err != nil {
		return nil, fmt.Errorf("failed to load configurator state: %w", err)
	}
	if !st.Step.Valid() {
		st.Step = FirstStep
	}
	if st.Selection.Accessories == nil {
		st.Selection.Accessories = []string{}
	}
	return st, nil
}

// update loads the state, applies fn and saves the result when fn succeeds.
func (s *Service) update(ctx context.Context, key string, fn func(*State) error) (*View, error) {
	st, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := s.states.Save(ctx, key, clientstate.KindConfigurator, st); err != nil {
		return nil, fmt.Errorf("failed to save configurator state: %w", err)
	}
	return s.view(st), nil
}

// Get returns the visitor's current configuration.
func (s *Service) Get(ctx context.Context, key string) (*View, error) {
	st, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// SelectProduct picks a customizable product by slug.
func (s *Service) SelectProduct(ctx context.Context, key, slug string) (*View, error) {
	p, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product %q: %w", slug, err)
	}
	choice, err := productChoice(p)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, key, func(st *State) error {
		st.SelectProduct(choice)
		return nil
	})
}

func productChoice(p *domain.Product) (ProductChoice, error) {
	if !p.Customizable {
		return ProductChoice{}, ErrNotCustomizable
	}
	return ProductChoice{
		ID:        p.ID.String(),
		Slug:      p.Slug,
		Name:      p.Name,
		BasePrice: p.Price,
		Image:     p.PrimaryImage(),
	}, nil
}

// Restore rebuilds the summary state of a configuration recorded on a cart
// item, taking the base price from p and every surcharge from catalog.
func Restore(p *domain.Product, cfg cart.Configuration, catalog config.CatalogConfig) (*State, error) {
	choice, err := productChoice(p)
	if err != nil {
		return nil, err
	}
	f, ok := catalog.FabricByID(cfg.Fabric)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFabric, cfg.Fabric)
	}
	for _, id := range cfg.Accessories {
		if _, ok := catalog.AccessoryByID(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAccessory, id)
		}
	}

	st := New()
	st.SelectProduct(choice)
	st.SelectFabric(FabricChoice{ID: f.ID, Name: f.Name, Color: f.Color, Price: f.Price})
	err = st.SetEmbroidery(Embroidery{Text: cfg.Embroidery, Font: cfg.EmbroideryFont, Color: cfg.EmbroideryColor})
	if err != nil {
		return nil, err
	}
	st.SetAccessories(cfg.Accessories)
	st.Step = LastStep
	return st, nil
}

// SelectFabric picks a catalogue fabric.
func (s *Service) SelectFabric(ctx context.Context, key, fabricID string) (*View, error) {
	f, ok := s.catalog.FabricByID(fabricID)
	if !ok {
		return nil, ErrUnknownFabric
	}
	return s.update(ctx, key, func(st *State) error {
		st.SelectFabric(FabricChoice{ID: f.ID, Name: f.Name, Color: f.Color, Price: f.Price})
		return nil
	})
}

// SetEmbroidery sets or clears the embroidery.
func (s *Service) SetEmbroidery(ctx context.Context, key string, e Embroidery) (*View, error) {
	return s.update(ctx, key, func(st *State) error {
		return st.SetEmbroidery(e)
	})
}

// SetAccessories replaces the accessory list.
func (s *Service) SetAccessories(ctx context.Context, key string, ids []string) (*View, error) {
	for _, id := range ids {
		if _, ok := s.catalog.AccessoryByID(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAccessory, id)
		}
	}
	return s.update(ctx, key, func(st *State) error {
		st.SetAccessories(ids)
		return nil
	})
}

// ToggleAccessory adds or removes one accessory.
func (s *Service) ToggleAccessory(ctx context.Context, key, id string) (*View, error) {
	if _, ok := s.catalog.AccessoryByID(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccessory, id)
	}
	return s.update(ctx, key, func(st *State) error {
		st.ToggleAccessory(id)
		return nil
	})
}

// Next advances one step.
func (s *Service) Next(ctx context.Context, key string) (*View, error) {
	return s.update(ctx, key, func(st *State) error { return st.Next() })
}

// Prev goes back one step.
func (s *Service) Prev(ctx context.Context, key string) (*View, error) {
	return s.update(ctx, key, func(st *State) error {
		st.Prev()
		return nil
	})
}

// GoTo jumps to step.
func (s *Service) GoTo(ctx context.Context, key string, step Step) (*View, error) {
	return s.update(ctx, key, func(st *State) error { return st.GoTo(step) })
}

// Reset clears the configuration.
func (s *Service) Reset(ctx context.Context, key string) (*View, error) {
	if err := s.states.Delete(ctx, key, clientstate.KindConfigurator); err != nil {
		return nil, fmt.Errorf("failed to reset configurator state: %w", err)
	}
	return s.view(New()), nil
}

// LineItem converts the visitor's complete configuration into a cart item.
// Identical configurations yield the same item id.
func (s *Service) LineItem(ctx context.Context, key string) (cart.Item, error) {
	st, err := s.load(ctx, key)
	if err != nil {
		return cart.Item{}, err
	}
	return LineItem(st, s.Pricing(), s.catalog)
}

// LineItem builds the cart item for st.
func LineItem(st *State, pricing Pricing, catalog config.CatalogConfig) (cart.Item, error) {
	if !st.Complete() {
		return cart.Item{}, ErrIncomplete
	}
	sel := st.Selection

	raw, err := json.Marshal(sel)
	if err != nil {
		return cart.Item{}, fmt.Errorf("failed to encode selection: %w", err)
	}
	sum := sha256.Sum256(raw)

	opts := map[string]string{
		"fabric": sel.Fabric.Name,
	}
	if sel.Embroidery != nil {
		opts["embroidery"] = sel.Embroidery.Text
		if sel.Embroidery.Font != "" {
			opts["embroideryFont"] = sel.Embroidery.Font
		}
		if sel.Embroidery.Color != "" {
			opts["embroideryColor"] = sel.Embroidery.Color
		}
	}
	if len(sel.Accessories) > 0 {
		names := make([]string, 0, len(sel.Accessories))
		for _, id := range sel.Accessories {
			name := id
			if a, ok := catalog.AccessoryByID(id); ok {
				name = a.Name
			}
			names = append(names, name)
		}
		opts["accessories"] = strings.Join(names, ", ")
	}

	recorded := &cart.Configuration{
		Fabric:      sel.Fabric.ID,
		Accessories: slices.Clone(sel.Accessories),
	}
	if sel.Embroidery != nil {
		recorded.Embroidery = sel.Embroidery.Text
		recorded.EmbroideryFont = sel.Embroidery.Font
		recorded.EmbroideryColor = sel.Embroidery.Color
	}

	return cart.Item{
		ID:        "custom-" + sel.Product.ID + "-" + hex.EncodeToString(sum[:6]),
		ProductID: sel.Product.ID,
		Slug:      sel.Product.Slug,
		Name:      sel.Product.Name + " personnalisé",
		Price:     domain.ToMajorUnits(st.Price(pricing).Total),
		Quantity:  1,
		Image:     sel.Product.Image,
		Options:   opts,

		Configuration: recorded,
	}, nil
}
