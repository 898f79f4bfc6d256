// Package models defines the domain types shared by the order builder.
//
// # Reference data
//
// The catalog types are fetched from the meal-prep backend and never
// mutated here:
//   - Plan: a weekly package with a meal count and a price
//   - MealOption: a meal that fills one slot, with an optional supplement
//   - OrderItem: an add-on or dessert bought by quantity
//   - DeliveryAvailability, OrderingStatus, Settings: operational switches
//
// # Cart data
//
//   - LineItem: a frozen snapshot of a completed box
//   - Breakdown: a price split into plan, supplements, add-ons, desserts
//     and shipping
//
// # Money
//
// All amounts are Money, an integer count of pence. Decimals from the
// backend are parsed from text and formatted back to two places only at the
// edges (JSON and display).
//
// Relationships use IDs and value copies rather than pointers into the
// catalog, so a snapshot stays valid after the catalog is refreshed.
package models
