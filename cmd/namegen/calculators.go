package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hanko-field/naming/internal/di"
)

func newChartCmd(opts *globalOptions) *cobra.Command {
	var birth birthFlags

	cmd := &cobra.Command{
		Use:     "chart",
		Short:   "Compute the BaZi four pillars and element balance",
		Example: "  namegen chart --birth-date 2000-01-01 --birth-hour 12",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			birthData, err := birth.resolve(cmd)
			if err != nil {
				return err
			}
			if birthData == nil {
				return errors.New("--birth-date is required")
			}

			return withContainer(cmd, opts, func(c *di.Container) error {
				ctx := cmd.Context()
				chart, err := c.Services.Calculator.Chart(ctx, *birthData)
				if err != nil {
					return err
				}
				balance, err := c.Services.Calculator.Balance(ctx, *birthData)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return writeJSON(out, newChartView(chart, balance))
				}
				return printChart(out, chart, balance)
			})
		},
	}

	birth.register(cmd)
	return cmd
}

func newWugeCmd(opts *globalOptions) *cobra.Command {
	var surnameStrokes, givenStrokes []int

	cmd := &cobra.Command{
		Use:   "wuge [SURNAME GIVEN]",
		Short: "Analyse the five grids of a name",
		Example: "  namegen wuge 李 明涵\n" +
			"  namegen wuge --surname-strokes 7 --given-strokes 8,12",
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 && (len(surnameStrokes) == 0 || len(givenStrokes) == 0) {
				return errors.New("pass SURNAME and GIVEN or both --surname-strokes and --given-strokes")
			}

			return withContainer(cmd, opts, func(c *di.Container) error {
				ctx := cmd.Context()
				surname, given := surnameStrokes, givenStrokes
				var err error
				if len(surname) == 0 {
					if surname, err = c.Services.Catalog.StrokeCounts(ctx, args[0]); err != nil {
						return err
					}
				}
				if len(given) == 0 {
					if given, err = c.Services.Catalog.StrokeCounts(ctx, args[1]); err != nil {
						return err
					}
				}
				analysis, err := c.Services.Calculator.Wuge(ctx, surname, given)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return writeJSON(out, newWugeView(surname, given, analysis))
				}
				return printWuge(out, surname, given, analysis)
			})
		},
	}

	cmd.Flags().IntSliceVar(&surnameStrokes, "surname-strokes", nil, "Surname stroke counts, e.g. 7 or 15,17")
	cmd.Flags().IntSliceVar(&givenStrokes, "given-strokes", nil, "Given name stroke counts, e.g. 8,12")
	return cmd
}

func newPhoneticsCmd(opts *globalOptions) *cobra.Command {
	var surnamePinyin, givenPinyin []string

	cmd := &cobra.Command{
		Use:   "phonetics [SURNAME GIVEN]",
		Short: "Check the tone pattern and sound harmony of a name",
		Example: "  namegen phonetics 李 明涵\n" +
			"  namegen phonetics --surname-pinyin lǐ --given-pinyin míng,hán",
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 && (len(surnamePinyin) == 0 || len(givenPinyin) == 0) {
				return errors.New("pass SURNAME and GIVEN or both --surname-pinyin and --given-pinyin")
			}

			return withContainer(cmd, opts, func(c *di.Container) error {
				ctx := cmd.Context()
				surname, given := surnamePinyin, givenPinyin
				var err error
				if len(surname) == 0 {
					if surname, err = c.Services.Catalog.Pinyin(ctx, args[0]); err != nil {
						return err
					}
				}
				if len(given) == 0 {
					if given, err = c.Services.Catalog.Pinyin(ctx, args[1]); err != nil {
						return err
					}
				}
				report, err := c.Services.Calculator.Phonetics(ctx, surname, given)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return writeJSON(out, newPhoneticsView(surname, given, report))
				}
				return printPhonetics(out, surname, given, report)
			})
		},
	}

	cmd.Flags().StringSliceVar(&surnamePinyin, "surname-pinyin", nil, "Surname syllables with tone marks or digits")
	cmd.Flags().StringSliceVar(&givenPinyin, "given-pinyin", nil, "Given name syllables with tone marks or digits")
	return cmd
}
