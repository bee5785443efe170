package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"
)

type PriorityLevel string

const (
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

type PriorityConfig struct {
	ComputeUnits uint32 // Number of compute units
	PriorityFee  uint64 // Priority fee in micro-lamports
}

// PriorityManager выдаёт compute-budget инструкции по профилю приоритета.
type PriorityManager struct {
	profiles map[PriorityLevel]PriorityConfig
	logger   *zap.Logger
}

func NewPriorityManager(logger *zap.Logger) *PriorityManager {
	return &PriorityManager{
		profiles: map[PriorityLevel]PriorityConfig{
			// Raydium v4 swap с созданием ATA укладывается в ~80k CU
			PriorityLow: {
				ComputeUnits: 120_000,
				PriorityFee:  1_000,
			},
			PriorityMedium: {
				ComputeUnits: 200_000,
				PriorityFee:  5_000,
			},
			PriorityHigh: {
				ComputeUnits: 300_000,
				PriorityFee:  10_000,
			},
			PriorityExtreme: {
				ComputeUnits: 400_000,
				PriorityFee:  50_000,
			},
		},
		logger: logger.Named("priority"),
	}
}

// Resolve возвращает бюджет для уровня; ненулевые override перекрывают профиль.
func (pm *PriorityManager) Resolve(level PriorityLevel, unitsOverride uint32, feeOverride uint64) (ComputeBudget, error) {
	cfg, ok := pm.profiles[level]
	if !ok {
		return ComputeBudget{}, fmt.Errorf("unknown priority level: %s", level)
	}
	if unitsOverride > 0 {
		cfg.ComputeUnits = unitsOverride
	}
	if feeOverride > 0 {
		cfg.PriorityFee = feeOverride
	}

	pm.logger.Debug("compute budget resolved",
		zap.String("level", string(level)),
		zap.Uint32("compute_units", cfg.ComputeUnits),
		zap.Uint64("priority_fee", cfg.PriorityFee))

	return ComputeBudget{ComputeUnits: cfg.ComputeUnits, PriorityFee: cfg.PriorityFee}, nil
}

// Instructions строит SetComputeUnitLimit / SetComputeUnitPrice.
func (pm *PriorityManager) Instructions(budget ComputeBudget) []solana.Instruction {
	var instructions []solana.Instruction

	if budget.ComputeUnits > 0 {
		inst := computebudget.NewSetComputeUnitLimitInstruction(budget.ComputeUnits).Build()
		instructions = append(instructions, inst)
	}

	if budget.PriorityFee > 0 {
		inst := computebudget.NewSetComputeUnitPriceInstruction(budget.PriorityFee).Build()
		instructions = append(instructions, inst)
	}

	return instructions
}
