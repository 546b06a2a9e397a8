package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hanko-field/naming/internal/di"
	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/services"
)

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		birth    birthFlags
		elements elementFlags
		gender   string
		style    string
		source   string
		chars    int
		count    int
	)

	cmd := &cobra.Command{
		Use:     "generate SURNAME",
		Short:   "Generate ranked given names for a surname",
		Example: "  namegen generate 李 --gender female --birth-date 1990-05-17 --birth-hour 8 --count 5",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			birthData, err := birth.resolve(cmd)
			if err != nil {
				return err
			}
			preferred, avoid, err := elements.resolve()
			if err != nil {
				return err
			}
			g, ok := domain.ParseGender(gender)
			if !ok {
				return fmt.Errorf("--gender must be male, female or neutral, got %q", gender)
			}

			return withContainer(cmd, opts, func(c *di.Container) error {
				result, err := c.Services.Generator.Generate(cmd.Context(), services.NameGenerationCommand{
					Surname:           args[0],
					Gender:            g,
					Birth:             birthData,
					PreferredElements: preferred,
					AvoidElements:     avoid,
					Style:             style,
					Source:            source,
					CharacterCount:    chars,
					MaxResults:        count,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return writeJSON(out, newGenerationView(result))
				}
				return printGeneration(out, result)
			})
		},
	}

	birth.register(cmd)
	elements.register(cmd)
	cmd.Flags().StringVar(&gender, "gender", string(domain.GenderNeutral), "Gender affinity: male, female or neutral")
	cmd.Flags().StringVar(&style, "style", "", "Style tag, e.g. classic")
	cmd.Flags().StringVar(&source, "source", "", "Cultural source tag, e.g. tang_poetry")
	cmd.Flags().IntVar(&chars, "chars", 2, "Given name length: 1 or 2")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of candidates; 0 uses the configured default")
	return cmd
}

func newScoreCmd(opts *globalOptions) *cobra.Command {
	var (
		birth    birthFlags
		elements elementFlags
	)

	cmd := &cobra.Command{
		Use:     "score SURNAME GIVEN",
		Short:   "Score an existing name",
		Example: "  namegen score 李 明涵 --birth-date 2000-01-01",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			birthData, err := birth.resolve(cmd)
			if err != nil {
				return err
			}
			preferred, avoid, err := elements.resolve()
			if err != nil {
				return err
			}

			return withContainer(cmd, opts, func(c *di.Container) error {
				result, err := c.Services.Generator.ScoreName(cmd.Context(), services.NameScoreCommand{
					Surname:           args[0],
					GivenName:         args[1],
					Birth:             birthData,
					PreferredElements: preferred,
					AvoidElements:     avoid,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return writeJSON(out, newScoreView(result))
				}
				return printScore(out, result)
			})
		},
	}

	birth.register(cmd)
	elements.register(cmd)
	return cmd
}
