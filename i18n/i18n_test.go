package i18n_test

import (
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/text/language"

	"github.com/Ib-dI/ylang-creations/i18n"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.French},
		{"fr-FR,fr;q=0.9", language.French},
		{"en-GB,en;q=0.8", language.English},
		{"de-DE", language.French},
		{"not a header;;", language.French},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			c := qt.New(t)
			base, _ := i18n.Match(tt.header).Base()
			want, _ := tt.want.Base()
			c.Assert(base, qt.Equals, want)
		})
	}
}

func TestT(t *testing.T) {
	c := qt.New(t)

	c.Assert(i18n.T(language.French, i18n.ErrEmptyCart), qt.Equals, "Votre panier est vide.")
	c.Assert(i18n.T(language.English, i18n.ErrEmptyCart), qt.Equals, "Your cart is empty.")
	c.Assert(i18n.T(language.French, i18n.ErrInternal), qt.Not(qt.Equals), "")
}

func TestFromRequest(t *testing.T) {
	c := qt.New(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Language", "en")
	c.Assert(i18n.T(i18n.FromRequest(req), i18n.ErrForbidden), qt.Equals, "Access denied.")
}

func TestFormatPrice(t *testing.T) {
	c := qt.New(t)

	c.Assert(i18n.FormatPrice(language.English, 4590), qt.Equals, "45.90 €")
	c.Assert(i18n.FormatPrice(language.French, 4590), qt.Contains, "45,90")
}
