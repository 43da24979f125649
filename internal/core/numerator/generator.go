package numerator

import (
	"context"
	"fmt"
	"time"
)

// Generator generates sequential document numbers.
// Implementations live in pkg/numerator (PostgreSQL) and in this package (memory).
type Generator interface {
	// GetNextNumber generates the next document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g. RCP-2024-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber makes value the next number handed out (for migrations).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// BuildKey creates the sequence key based on config and period.
func BuildKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format creates the final number string.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// FloorBase returns the "last used" value implied by a floor,
// so that base+1 is the first number handed out.
func FloorBase(cfg Config) int64 {
	if cfg.Floor <= 1 {
		return 0
	}
	return cfg.Floor - 1
}

// Assign fills *number from gen when it is empty. Existing numbers are kept.
func Assign(ctx context.Context, gen Generator, cfg Config, number *string, period time.Time) error {
	if *number != "" || gen == nil {
		return nil
	}
	next, err := gen.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		return fmt.Errorf("assign %s number: %w", cfg.Prefix, err)
	}
	*number = next
	return nil
}
