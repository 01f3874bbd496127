package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MovementProposal is an AI-interpreted stock movement awaiting human
// confirmation. Quantities travel as strings so the model cannot emit
// float noise.
type MovementProposal struct {
	Action          string  `json:"action" jsonschema_description:"One of inbound, outbound, transfer, adjustment"`
	ProductSKU      string  `json:"product_sku" jsonschema_description:"SKU of the product being moved"`
	WarehouseCode   string  `json:"warehouse_code" jsonschema_description:"Warehouse code, or source warehouse for transfers"`
	ToWarehouseCode string  `json:"to_warehouse_code" jsonschema_description:"Destination warehouse code, empty unless action is transfer"`
	Quantity        string  `json:"quantity" jsonschema_description:"Quantity as a decimal string, signed for adjustments"`
	Supplier        string  `json:"supplier" jsonschema_description:"Supplier name for inbound movements, else empty"`
	Customer        string  `json:"customer" jsonschema_description:"Customer name for outbound movements, else empty"`
	Reference       string  `json:"reference" jsonschema_description:"Document reference if mentioned, else empty"`
	Reason          string  `json:"reason" jsonschema_description:"Reason for an adjustment, else empty"`
	Confidence      float64 `json:"confidence" jsonschema_description:"Confidence score between 0.0 and 1.0"`
	Reasoning       string  `json:"reasoning" jsonschema_description:"Short explanation of the interpretation"`
}

var proposalActions = map[string]bool{
	"inbound": true, "outbound": true, "transfer": true, "adjustment": true,
}

// Normalize trims whitespace and lowercases the action.
func (p *MovementProposal) Normalize() {
	p.Action = strings.ToLower(strings.TrimSpace(p.Action))
	p.ProductSKU = strings.TrimSpace(p.ProductSKU)
	p.WarehouseCode = strings.TrimSpace(p.WarehouseCode)
	p.ToWarehouseCode = strings.TrimSpace(p.ToWarehouseCode)
	p.Quantity = strings.TrimSpace(p.Quantity)
}

// Validate checks the proposal is internally consistent before it is shown
// to a human or applied to the ledger.
func (p *MovementProposal) Validate() error {
	if !proposalActions[p.Action] {
		return fmt.Errorf("unknown action %q", p.Action)
	}
	if p.ProductSKU == "" {
		return fmt.Errorf("product_sku is empty")
	}
	if p.WarehouseCode == "" {
		return fmt.Errorf("warehouse_code is empty")
	}
	qty, err := decimal.NewFromString(p.Quantity)
	if err != nil {
		return fmt.Errorf("quantity %q is not a decimal: %w", p.Quantity, err)
	}
	switch p.Action {
	case "adjustment":
		if qty.IsZero() {
			return fmt.Errorf("adjustment quantity must be non-zero")
		}
		if p.Reason == "" {
			return fmt.Errorf("adjustment requires a reason")
		}
	case "transfer":
		if !qty.IsPositive() {
			return fmt.Errorf("quantity must be positive")
		}
		if p.ToWarehouseCode == "" {
			return fmt.Errorf("transfer requires to_warehouse_code")
		}
		if p.ToWarehouseCode == p.WarehouseCode {
			return fmt.Errorf("transfer warehouses must differ")
		}
	default:
		if !qty.IsPositive() {
			return fmt.Errorf("quantity must be positive")
		}
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", p.Confidence)
	}
	return nil
}

// QuantityDecimal parses the quantity. Call Validate first.
func (p *MovementProposal) QuantityDecimal() decimal.Decimal {
	qty, _ := decimal.NewFromString(p.Quantity)
	return qty
}
