package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/xxxsen/artgan/internal/conditioning"
	"github.com/xxxsen/artgan/internal/generator"
	"github.com/xxxsen/artgan/internal/network"
)

func newGenerateCmd(configPath *string) *cobra.Command {
	var (
		artist     string
		genre      string
		style      string
		seed       int64
		truncation float64
		out        string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate one image to a local png file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			labels, err := conditioning.ParseLabels(artist, genre, style)
			if err != nil {
				return err
			}
			req := generator.Request{Labels: labels, Truncation: truncation}
			if seed >= 0 {
				if seed > generator.MaxSeed {
					return fmt.Errorf("--seed must be within [0, %d]", uint32(generator.MaxSeed))
				}
				s := uint32(seed)
				req.Seed = &s
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			gen, err := buildGenerator(cfg)
			if err != nil {
				return err
			}
			res, err := gen.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			data, err := generator.EncodePNG(res.Image)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (seed %d)\n", out, res.Seed)
			return nil
		},
	}
	cmd.Flags().StringVar(&artist, "artist", string(conditioning.ArtistMonet), "artist label")
	cmd.Flags().StringVar(&genre, "genre", string(conditioning.GenreLandscape), "genre label")
	cmd.Flags().StringVar(&style, "style", string(conditioning.StyleImpressionism), "style label")
	cmd.Flags().Int64Var(&seed, "seed", -1, "seed, negative draws a random one")
	cmd.Flags().Float64Var(&truncation, "truncation", 1.0, "truncation psi")
	cmd.Flags().StringVar(&out, "out", "", "output png path")
	return cmd
}

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "list accepted artist, genre and style labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "artists: %s\n", joinLabels(conditioning.Artists()))
			fmt.Fprintf(w, "genres:  %s\n", joinLabels(conditioning.Genres()))
			fmt.Fprintf(w, "styles:  %s\n", joinLabels(conditioning.Styles()))
			return nil
		},
	}
}

func joinLabels[T ~string](labels []T) string {
	return strings.Join(lo.Map(labels, func(l T, _ int) string { return string(l) }), ", ")
}

func newCheckpointCmd() *cobra.Command {
	var (
		out        string
		zDim       int
		resolution int
		channels   int
		seed       uint64
	)
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "write a random linear checkpoint for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			info := network.Info{
				ZDim:       zDim,
				CDim:       conditioning.Width,
				Resolution: resolution,
				Channels:   channels,
			}
			if err := network.SaveLinearCheckpoint(out, network.RandomLinearCheckpoint(info, seed)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (z_dim %d, c_dim %d, %dx%dx%d)\n",
				out, info.ZDim, info.CDim, info.Channels, info.Resolution, info.Resolution)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "checkpoint output path")
	cmd.Flags().IntVar(&zDim, "z-dim", 64, "latent size")
	cmd.Flags().IntVar(&resolution, "resolution", 64, "output height and width")
	cmd.Flags().IntVar(&channels, "channels", 3, "output channels (1 or 3)")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "weight seed")
	return cmd
}

