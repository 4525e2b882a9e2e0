package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func items(statuses ...OrderItemStatus) []OrderItem {
	out := make([]OrderItem, len(statuses))
	for i, s := range statuses {
		out[i] = OrderItem{Status: s}
	}
	return out
}

func TestDeriveOrderStatus(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItem
		want  OrderStatus
	}{
		{"no items", nil, OrderStatusPaid},
		{"all paid", items(ItemStatusPaid, ItemStatusPaid), OrderStatusPaid},
		{"one shipped one paid", items(ItemStatusShipped, ItemStatusPaid), OrderStatusPaid},
		{"all shipped", items(ItemStatusShipped, ItemStatusShipped), OrderStatusShipped},
		{"shipped and delivered", items(ItemStatusShipped, ItemStatusDelivered), OrderStatusShipped},
		{"all delivered", items(ItemStatusDelivered, ItemStatusDelivered), OrderStatusDelivered},
		{"all cancelled", items(ItemStatusCancelled, ItemStatusCancelled), OrderStatusCancelled},
		{"cancelled and delivered", items(ItemStatusCancelled, ItemStatusDelivered), OrderStatusPaid},
		{"single delivered", items(ItemStatusDelivered), OrderStatusDelivered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOrderStatus(tt.items))
		})
	}
}

func TestItemStatusTransitions(t *testing.T) {
	assert.True(t, ItemStatusPaid.CanTransition(ItemStatusShipped))
	assert.True(t, ItemStatusPaid.CanTransition(ItemStatusCancelled))
	assert.True(t, ItemStatusShipped.CanTransition(ItemStatusDelivered))
	assert.True(t, ItemStatusShipped.CanTransition(ItemStatusCancelled))

	assert.False(t, ItemStatusPaid.CanTransition(ItemStatusDelivered))
	assert.False(t, ItemStatusPaid.CanTransition(ItemStatusPaid))
	assert.False(t, ItemStatusDelivered.CanTransition(ItemStatusCancelled))
	assert.False(t, ItemStatusCancelled.CanTransition(ItemStatusPaid))
}

func TestParseItemStatus(t *testing.T) {
	st, ok := ParseItemStatus("SHIPPED")
	assert.True(t, ok)
	assert.Equal(t, ItemStatusShipped, st)

	_, ok = ParseItemStatus("PENDING")
	assert.False(t, ok)
	_, ok = ParseItemStatus("shipped")
	assert.False(t, ok)
}

func TestSellerIDsDistinct(t *testing.T) {
	o := Order{Items: []OrderItem{{SellerID: "s1"}, {SellerID: "s2"}, {SellerID: "s1"}}}
	assert.Equal(t, []string{"s1", "s2"}, o.SellerIDs())
}
