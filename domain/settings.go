package domain

import "time"

// SettingsID is the fixed key of the singleton settings row.
const SettingsID = "global"

// HeroSlide is one homepage carousel slide.
type HeroSlide struct {
	Title    string `json:"title" validate:"required,max=120"`
	Subtitle string `json:"subtitle,omitempty" validate:"max=240"`
	Image    string `json:"image" validate:"required,url"`
	CTALabel string `json:"ctaLabel,omitempty" validate:"max=40"`
	CTAHref  string `json:"ctaHref,omitempty" validate:"max=200"`
}

// Testimonial is a customer quote displayed on the storefront.
type Testimonial struct {
	Author  string `json:"author" validate:"required,max=80"`
	Content string `json:"content" validate:"required,max=600"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
}

// EmailTemplate is a subject/body pair rendered with order data.
type EmailTemplate struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required"`
}

// EmailTemplates holds the transactional email templates.
type EmailTemplates struct {
	OrderConfirmation EmailTemplate `json:"orderConfirmation"`
	AdminNotification EmailTemplate `json:"adminNotification"`
	OrderShipped      EmailTemplate `json:"orderShipped"`
}

// StoreInfo carries store-wide contact and shipping information.
type StoreInfo struct {
	Name              string `json:"name" validate:"required,max=80"`
	ContactEmail      string `json:"contactEmail" validate:"omitempty,email"`
	Phone             string `json:"phone,omitempty" validate:"max=30"`
	FreeShippingFrom  int64  `json:"freeShippingFrom" validate:"min=0"`
	ProductionDelay   string `json:"productionDelay,omitempty" validate:"max=80"`
	AnnouncementBar   string `json:"announcementBar,omitempty" validate:"max=200"`
	InstagramURL      string `json:"instagramUrl,omitempty" validate:"omitempty,url"`
	MaintenanceNotice string `json:"maintenanceNotice,omitempty" validate:"max=400"`
}

// Settings is the singleton store configuration record.
type Settings struct {
	HeroSlides   []HeroSlide    `json:"heroSlides" validate:"dive"`
	Testimonials []Testimonial  `json:"testimonials" validate:"dive"`
	Templates    EmailTemplates `json:"templates"`
	Store        StoreInfo      `json:"store"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// PublicSettings is the subset exposed to anonymous storefront visitors.
type PublicSettings struct {
	HeroSlides   []HeroSlide   `json:"heroSlides"`
	Testimonials []Testimonial `json:"testimonials"`
	Store        StoreInfo     `json:"store"`
}

// Public strips the admin-only parts of s.
func (s *Settings) Public() PublicSettings {
	return PublicSettings{
		HeroSlides:   s.HeroSlides,
		Testimonials: s.Testimonials,
		Store:        s.Store,
	}
}

// DefaultSettings returns the settings used before an admin saves any.
func DefaultSettings() *Settings {
	return &Settings{
		HeroSlides:   []HeroSlide{},
		Testimonials: []Testimonial{},
		Templates: EmailTemplates{
			OrderConfirmation: EmailTemplate{
				Subject: "Votre commande {{.OrderRef}} est confirmée",
				Body: `<p>Bonjour,</p>
<p>Merci pour votre commande {{.OrderRef}} d'un montant de {{.Total}}.</p>
<ul>{{range .Items}}<li>{{.Quantity}} × {{.Name}} ({{.Price}})</li>{{end}}</ul>
<p>Nous vous préviendrons dès son expédition.</p>`,
			},
			AdminNotification: EmailTemplate{
				Subject: "Nouvelle commande {{.OrderRef}}",
				Body: `<p>Nouvelle commande {{.OrderRef}} de {{.CustomerEmail}} : {{.Total}}.</p>
<ul>{{range .Items}}<li>{{.Quantity}} × {{.Name}}</li>{{end}}</ul>`,
			},
			OrderShipped: EmailTemplate{
				Subject: "Votre commande {{.OrderRef}} a été expédiée",
				Body:    `<p>Bonne nouvelle : votre commande {{.OrderRef}} est en route.</p>`,
			},
		},
		Store: StoreInfo{
			Name:            "Ylang Créations",
			ProductionDelay: "2 à 3 semaines",
		},
	}
}
