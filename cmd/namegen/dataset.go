package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hanko-field/naming/internal/dataset"
	"github.com/hanko-field/naming/internal/di"
	domain "github.com/hanko-field/naming/internal/domain"
	pfirestore "github.com/hanko-field/naming/internal/platform/firestore"
	firestoreRepo "github.com/hanko-field/naming/internal/repositories/firestore"
)

func newDatasetCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect or publish the character dataset",
	}
	cmd.AddCommand(newDatasetInfoCmd(opts), newDatasetPushCmd(opts))
	return cmd
}

func newDatasetInfoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Validate the selected dataset and summarise it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, opts, func(c *di.Container) error {
				ds, err := c.Source.Load(cmd.Context())
				if err != nil {
					return err
				}
				view := newDatasetView(c.Source.Name(), ds)
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return writeJSON(out, view)
				}
				return printDataset(out, view)
			})
		},
	}
}

func newDatasetPushCmd(opts *globalOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     "push",
		Short:   "Upsert the selected dataset into the Firestore collections",
		Example: "  namegen dataset push --dataset file --dataset-path ./characters.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.EqualFold(strings.TrimSpace(opts.dataset), "firestore") {
				return errors.New("dataset push reads from embedded, file or gcs; firestore is the destination")
			}

			return withContainer(cmd, opts, func(c *di.Container) error {
				ctx := cmd.Context()
				ds, err := c.Source.Load(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if dryRun {
					_, err := fmt.Fprintf(out, "would write %d characters and %d surnames from %s (version %s)\n",
						len(ds.Characters), len(ds.Surnames), c.Source.Name(), ds.Version)
					return err
				}

				cfg := c.Config.Firestore
				if strings.TrimSpace(cfg.ProjectID) == "" {
					return errors.New("NAMING_FIRESTORE_PROJECT_ID is required to push the dataset")
				}
				provider := pfirestore.NewProvider(cfg)
				defer func() {
					_ = provider.Close(ctx)
				}()
				repo, err := firestoreRepo.NewCharacterRepository(provider, cfg)
				if err != nil {
					return err
				}
				characters, surnames, err := repo.Seed(ctx, ds)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "wrote %d characters and %d surnames to %s\n", characters, surnames, repo.Name())
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and count without writing")
	return cmd
}

// datasetView summarises a dataset snapshot.
type datasetView struct {
	Source     string         `json:"source"`
	Version    string         `json:"version"`
	Characters int            `json:"characters"`
	Surnames   int            `json:"surnames"`
	ByElement  map[string]int `json:"byElement"`
}

func newDatasetView(source string, ds dataset.Dataset) datasetView {
	byElement := make(map[string]int, len(domain.AllElements))
	for _, el := range domain.AllElements {
		byElement[el.String()] = 0
	}
	for _, c := range ds.Characters {
		byElement[c.Element.String()]++
	}
	return datasetView{
		Source:     source,
		Version:    ds.Version,
		Characters: len(ds.Characters),
		Surnames:   len(ds.Surnames),
		ByElement:  byElement,
	}
}
