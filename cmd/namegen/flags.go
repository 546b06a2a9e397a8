package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/services"
)

const birthDateLayout = "2006-01-02"

// birthFlags collects the optional birth moment of a person.
type birthFlags struct {
	date string
	hour int
}

func (b *birthFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&b.date, "birth-date", "", "Birth date as YYYY-MM-DD")
	cmd.Flags().IntVar(&b.hour, "birth-hour", 12, "Birth hour 0-23; defaults to noon")
}

// resolve returns nil when no birth date was given.
func (b *birthFlags) resolve(cmd *cobra.Command) (*services.BirthData, error) {
	hourSet := cmd.Flags().Changed("birth-hour")
	date := strings.TrimSpace(b.date)
	if date == "" {
		if hourSet {
			return nil, errors.New("--birth-hour requires --birth-date")
		}
		return nil, nil
	}
	parsed, err := time.Parse(birthDateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("--birth-date must be YYYY-MM-DD: %w", err)
	}
	birth := &services.BirthData{Year: parsed.Year(), Month: int(parsed.Month()), Day: parsed.Day()}
	if hourSet {
		if b.hour < 0 || b.hour > 23 {
			return nil, fmt.Errorf("--birth-hour must be within 0-23, got %d", b.hour)
		}
		hour := b.hour
		birth.Hour = &hour
	}
	return birth, nil
}

// elementFlags collects preferred and avoided element filters.
type elementFlags struct {
	prefer []string
	avoid  []string
}

func (e *elementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&e.prefer, "prefer", nil, "Preferred elements, e.g. wood,water")
	cmd.Flags().StringSliceVar(&e.avoid, "avoid", nil, "Elements to avoid, e.g. fire")
}

func (e *elementFlags) resolve() (domain.ElementSet, domain.ElementSet, error) {
	preferred, err := domain.ParseElementSet(e.prefer)
	if err != nil {
		return nil, nil, fmt.Errorf("--prefer: %w", err)
	}
	avoid, err := domain.ParseElementSet(e.avoid)
	if err != nil {
		return nil, nil, fmt.Errorf("--avoid: %w", err)
	}
	return preferred, avoid, nil
}
