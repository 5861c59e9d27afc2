// Package domain defines the storefront's entities and the rules that belong
// to them independently of storage and transport: order status transitions,
// money conversion, and the default store settings.
package domain
