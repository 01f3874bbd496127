package core_test

import (
	"testing"

	"warehouse-backoffice/internal/core"
)

func TestProposal_NormalizationAndValidation(t *testing.T) {
	tests := []struct {
		name      string
		proposal  core.MovementProposal
		expectErr bool
	}{
		{
			name: "Happy path inbound",
			proposal: core.MovementProposal{
				Action: "inbound", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "25", Supplier: "Bosch Rexroth", Confidence: 0.92,
			},
			expectErr: false,
		},
		{
			name: "Action normalized from mixed case",
			proposal: core.MovementProposal{
				Action: "  Outbound ", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "5", Confidence: 0.8,
			},
			expectErr: false,
		},
		{
			name: "Unknown action",
			proposal: core.MovementProposal{
				Action: "stocktake", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "5", Confidence: 0.8,
			},
			expectErr: true,
		},
		{
			name: "Quantity is not a decimal",
			proposal: core.MovementProposal{
				Action: "inbound", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "a few", Confidence: 0.8,
			},
			expectErr: true,
		},
		{
			name: "Negative quantity outside adjustments",
			proposal: core.MovementProposal{
				Action: "outbound", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "-5", Confidence: 0.8,
			},
			expectErr: true,
		},
		{
			name: "Signed adjustment with reason",
			proposal: core.MovementProposal{
				Action: "adjustment", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "-3", Reason: "water damage", Confidence: 0.7,
			},
			expectErr: false,
		},
		{
			name: "Adjustment without reason",
			proposal: core.MovementProposal{
				Action: "adjustment", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "-3", Confidence: 0.7,
			},
			expectErr: true,
		},
		{
			name: "Zero adjustment",
			proposal: core.MovementProposal{
				Action: "adjustment", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "0", Reason: "none", Confidence: 0.7,
			},
			expectErr: true,
		},
		{
			name: "Transfer with destination",
			proposal: core.MovementProposal{
				Action: "transfer", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				ToWarehouseCode: "WH-HN", Quantity: "10", Confidence: 0.85,
			},
			expectErr: false,
		},
		{
			name: "Transfer missing destination",
			proposal: core.MovementProposal{
				Action: "transfer", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "10", Confidence: 0.85,
			},
			expectErr: true,
		},
		{
			name: "Transfer onto itself",
			proposal: core.MovementProposal{
				Action: "transfer", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				ToWarehouseCode: "WH-HCM", Quantity: "10", Confidence: 0.85,
			},
			expectErr: true,
		},
		{
			name: "Confidence out of range",
			proposal: core.MovementProposal{
				Action: "inbound", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
				Quantity: "5", Confidence: 1.4,
			},
			expectErr: true,
		},
		{
			name: "Missing SKU",
			proposal: core.MovementProposal{
				Action: "inbound", WarehouseCode: "WH-HCM",
				Quantity: "5", Confidence: 0.9,
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.proposal
			p.Normalize()
			err := p.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected valid proposal, got %v", err)
			}
		})
	}
}

func TestProposal_QuantityDecimal(t *testing.T) {
	p := core.MovementProposal{
		Action: "adjustment", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
		Quantity: " -2.5 ", Reason: "recount", Confidence: 0.9,
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if p.QuantityDecimal().String() != "-2.5" {
		t.Errorf("expected -2.5, got %s", p.QuantityDecimal())
	}
}
