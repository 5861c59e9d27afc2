// Package configurator implements the five-step product customisation wizard:
// product, fabric, preview, personalization, summary.
//
// State is a plain value: every mutation is a method on *State and persistence
// is left to the caller (see Service).
package configurator

import (
	"errors"
	"slices"
)

// Step is a configurator step, numbered from 1.
type Step int

const (
	StepProduct Step = iota + 1
	StepFabric
	StepPreview
	StepPersonalization
	StepSummary
)

// FirstStep and LastStep bound the wizard.
const (
	FirstStep = StepProduct
	LastStep  = StepSummary
)

var stepNames = map[Step]string{
	StepProduct:         "product",
	StepFabric:          "fabric",
	StepPreview:         "preview",
	StepPersonalization: "personalization",
	StepSummary:         "summary",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is within the wizard.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

var (
	// ErrProductRequired is returned when leaving the product step with no product.
	ErrProductRequired = errors.New("a product must be selected")
	// ErrFabricRequired is returned when leaving the fabric step with no fabric.
	ErrFabricRequired = errors.New("a fabric must be selected")
	// ErrInvalidStep is returned for steps outside 1..5.
	ErrInvalidStep = errors.New("invalid configurator step")
	// ErrEmbroideryTooLong is returned when the embroidery text exceeds MaxEmbroideryLength.
	ErrEmbroideryTooLong = errors.New("embroidery text is too long")
)

// MaxEmbroideryLength bounds the embroidered text, in runes.
const MaxEmbroideryLength = 20

// ProductChoice is the product picked on step 1. BasePrice is in cents.
type ProductChoice struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	BasePrice int64  `json:"basePrice"`
	Image     string `json:"image,omitempty"`
}

// FabricChoice is the fabric picked on step 2. Price is in cents.
type FabricChoice struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Price int64  `json:"price"`
}

// Embroidery describes the optional personalization.
type Embroidery struct {
	Text  string `json:"text"`
	Font  string `json:"font,omitempty"`
	Color string `json:"color,omitempty"`
}

// Selection accumulates the customer's choices.
type Selection struct {
	Product     *ProductChoice `json:"product,omitempty"`
	Fabric      *FabricChoice  `json:"fabric,omitempty"`
	Embroidery  *Embroidery    `json:"embroidery,omitempty"`
	Accessories []string       `json:"accessories"`
}

// Pricing holds the flat surcharges, in cents.
type Pricing struct {
	EmbroiderySurcharge int64 `json:"embroiderySurcharge"`
	AccessorySurcharge  int64 `json:"accessorySurcharge"`
}

// State is the wizard position and selection.
type State struct {
	Step      Step      `json:"step"`
	Selection Selection `json:"selection"`
}

// New returns a state positioned on the first step with nothing selected.
func New() *State {
	return &State{
		Step:      FirstStep,
		Selection: Selection{Accessories: []string{}},
	}
}

// guard reports why the wizard may not leave step s, if anything blocks it.
func (st *State) guard(s Step) error {
	switch s {
	case StepProduct:
		if st.Selection.Product == nil {
			return ErrProductRequired
		}
	case StepFabric:
		if st.Selection.Fabric == nil {
			return ErrFabricRequired
		}
	}
	return nil
}

// CanAdvance reports whether Next would succeed.
func (st *State) CanAdvance() bool {
	return st.Step < LastStep && st.guard(st.Step) == nil
}

// Next moves to the following step. It is a no-op on the last step.
func (st *State) Next() error {
	if st.Step >= LastStep {
		return nil
	}
	if err := st.guard(st.Step); err != nil {
		return err
	}
	st.Step++
	return nil
}

// Prev moves to the previous step. It is a no-op on the first step.
func (st *State) Prev() {
	if st.Step > FirstStep {
		st.Step--
	}
}

// GoTo jumps to target. Moving backwards is always allowed; moving forwards
// requires every step being left behind to pass its guard.
func (st *State) GoTo(target Step) error {
	if !target.Valid() {
		return ErrInvalidStep
	}
	for s := st.Step; s < target; s++ {
		if err := st.guard(s); err != nil {
			return err
		}
	}
	st.Step = target
	return nil
}

// SelectProduct sets the product. Changing product keeps the other choices.
func (st *State) SelectProduct(p ProductChoice) {
	st.Selection.Product = &p
}

// SelectFabric sets the fabric.
func (st *State) SelectFabric(f FabricChoice) {
	st.Selection.Fabric = &f
}

// SetEmbroidery sets or, when e.Text is empty, clears the embroidery.
func (st *State) SetEmbroidery(e Embroidery) error {
	if e.Text == "" {
		st.Selection.Embroidery = nil
		return nil
	}
	if len([]rune(e.Text)) > MaxEmbroideryLength {
		return ErrEmbroideryTooLong
	}
	st.Selection.Embroidery = &e
	return nil
}

// ToggleAccessory adds id to the accessories or removes it when present.
// It returns true when the accessory is selected afterwards.
func (st *State) ToggleAccessory(id string) bool {
	if i := slices.Index(st.Selection.Accessories, id); i >= 0 {
		st.Selection.Accessories = slices.Delete(st.Selection.Accessories, i, i+1)
		return false
	}
	st.Selection.Accessories = append(st.Selection.Accessories, id)
	return true
}

// SetAccessories replaces the accessory list, dropping duplicates.
func (st *State) SetAccessories(ids []string) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	st.Selection.Accessories = out
}

// Reset returns to the first step and clears the selection.
func (st *State) Reset() {
	*st = *New()
}

// Complete reports whether the selection is purchasable.
func (st *State) Complete() bool {
	return st.Selection.Product != nil && st.Selection.Fabric != nil
}

// PriceBreakdown itemises Price.
type PriceBreakdown struct {
	Base        int64 `json:"base"`
	Fabric      int64 `json:"fabric"`
	Embroidery  int64 `json:"embroidery"`
	Accessories int64 `json:"accessories"`
	Total       int64 `json:"total"`
}

// Price computes the configured price: base product price, plus fabric price,
// plus the embroidery surcharge when embroidery is set, plus the accessory
// surcharge for each accessory.
func (st *State) Price(p Pricing) PriceBreakdown {
	var b PriceBreakdown
	if st.Selection.Product != nil {
		b.Base = st.Selection.Product.BasePrice
	}
	if st.Selection.Fabric != nil {
		b.Fabric = st.Selection.Fabric.Price
	}
	if st.Selection.Embroidery != nil {
		b.Embroidery = p.EmbroiderySurcharge
	}
	b.Accessories = p.AccessorySurcharge * int64(len(st.Selection.Accessories))
	b.Total = b.Base + b.Fabric + b.Embroidery + b.Accessories
	return b
}
