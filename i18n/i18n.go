// Package i18n holds the user-facing message catalog. French is the store's
// primary language; English is offered to visitors who ask for it.
package i18n

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a localized message.
type Key string

// Message keys.
const (
	ErrInternal        Key = "error.internal"
	ErrInvalidRequest  Key = "error.invalid_request"
	ErrUnauthorized    Key = "error.unauthorized"
	ErrForbidden       Key = "error.forbidden"
	ErrNotFound        Key = "error.not_found"
	ErrConflict        Key = "error.conflict"
	ErrEmptyCart       Key = "error.empty_cart"
	ErrCheckout        Key = "error.checkout"
	ErrInvalidStatus   Key = "error.invalid_status_transition"
	ErrSlugTaken       Key = "error.slug_taken"
	ErrStepLocked      Key = "error.step_locked"
	ErrUnknownFabric   Key = "error.unknown_fabric"
	ErrUnknownProduct  Key = "error.unknown_product"
	ErrUnsupportedFile Key = "error.unsupported_file"
	ErrFileTooLarge    Key = "error.file_too_large"
	ErrStorageDisabled Key = "error.storage_disabled"
	ErrInvalidSig      Key = "error.invalid_signature"
	ErrOutOfStock      Key = "error.out_of_stock"
	FieldRequired      Key = "field.required"
	FieldInvalid       Key = "field.invalid"
	FieldTooShort      Key = "field.too_short"
	FieldTooLong       Key = "field.too_long"
	FieldEmail         Key = "field.email"
	FieldURL           Key = "field.url"
	FieldOneOf         Key = "field.oneof"
	FieldMin           Key = "field.min"
	FieldMax           Key = "field.max"
)

// Default is the store's primary language.
var Default = language.French

var supported = []language.Tag{language.French, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[Key][2]string{ // {fr, en}
	ErrInternal:        {"Une erreur est survenue. Veuillez réessayer plus tard.", "Something went wrong. Please try again later."},
	ErrInvalidRequest:  {"Requête invalide.", "Invalid request."},
	ErrUnauthorized:    {"Vous devez être connecté.", "You must be signed in."},
	ErrForbidden:       {"Accès refusé.", "Access denied."},
	ErrNotFound:        {"Ressource introuvable.", "Not found."},
	ErrConflict:        {"Cette ressource existe déjà.", "This resource already exists."},
	ErrEmptyCart:       {"Votre panier est vide.", "Your cart is empty."},
	ErrCheckout:        {"Impossible de lancer le paiement. Veuillez réessayer.", "Unable to start checkout. Please try again."},
	ErrInvalidStatus:   {"Changement de statut impossible.", "This status change is not allowed."},
	ErrSlugTaken:       {"Ce slug est déjà utilisé.", "This slug is already in use."},
	ErrStepLocked:      {"Veuillez compléter l'étape en cours.", "Please complete the current step first."},
	ErrUnknownFabric:   {"Tissu inconnu.", "Unknown fabric."},
	ErrUnknownProduct:  {"Produit inconnu.", "Unknown product."},
	ErrUnsupportedFile: {"Format de fichier non pris en charge.", "Unsupported file type."},
	ErrFileTooLarge:    {"Fichier trop volumineux.", "File is too large."},
	ErrStorageDisabled: {"Le stockage des fichiers n'est pas disponible.", "File storage is not available."},
	ErrInvalidSig:      {"Signature invalide.", "Invalid signature."},
	ErrOutOfStock:      {"Stock insuffisant.", "Not enough stock."},
	FieldRequired:      {"Ce champ est obligatoire.", "This field is required."},
	FieldInvalid:       {"Valeur invalide.", "Invalid value."},
	FieldTooShort:      {"Valeur trop courte.", "Value is too short."},
	FieldTooLong:       {"Valeur trop longue.", "Value is too long."},
	FieldEmail:         {"Adresse e-mail invalide.", "Invalid email address."},
	FieldURL:           {"URL invalide.", "Invalid URL."},
	FieldOneOf:         {"Valeur non autorisée.", "Value is not allowed."},
	FieldMin:           {"Valeur trop petite.", "Value is too small."},
	FieldMax:           {"Valeur trop grande.", "Value is too large."},
}

var cat = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Default))
	for key, text := range messages {
		_ = b.SetString(language.French, string(key), text[0])
		_ = b.SetString(language.English, string(key), text[1])
	}
	return b
}()

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return supported[idx]
}

// FromRequest negotiates the response language for r.
func FromRequest(r *http.Request) language.Tag {
	return Match(r.Header.Get("Accept-Language"))
}

// Printer returns a message printer for tag backed by the store catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

// T localizes key in tag.
func T(tag language.Tag, key Key) string {
	return Printer(tag).Sprintf(string(key))
}

// FormatPrice renders an amount in cents for display, e.g. "45,90 €".
func FormatPrice(tag language.Tag, cents int64) string {
	return Printer(tag).Sprintf("%.2f €", float64(cents)/100)
}
