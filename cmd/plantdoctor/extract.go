package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"plantdoctor/internal/app"
	"plantdoctor/internal/model"
)

var (
	plantType  string
	imagePath  string
	skipCache  bool
	jsonOutput bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <description>",
	Short: "Show clause segmentation and extracted symptoms for a description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description := strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			resp, err := a.Diagnosis.ExtractSymptoms(ctx, description)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			for i, c := range resp.Clauses {
				marker := ""
				if c.Inherited {
					marker = " (inherited)"
				}
				fmt.Printf("%d. [%s%s] %s\n", i+1, c.Anchor, marker, c.Text)
			}
			fmt.Println()
			for _, part := range resp.Symptoms.Parts() {
				for _, s := range resp.Symptoms.Get(part) {
					fmt.Printf("  %-8s %-24s %.2f\n", part, s.Name, s.Confidence)
				}
			}
			return nil
		})
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <description>",
	Short: "Run a diagnosis through knowledge base, cache and model",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &model.DiagnoseRequest{
			Description: strings.Join(args, " "),
			SkipCache:   skipCache,
		}
		if plantType != "" {
			req.PlantType = &plantType
		}
		if imagePath != "" {
			img, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			req.Image = img
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			resp, err := a.Diagnosis.Diagnose(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(resp)
		})
	},
}

func init() {
	extractCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw JSON response")

	diagnoseCmd.Flags().StringVar(&plantType, "plant", "", "Plant type, e.g. \"Sầu riêng\"")
	diagnoseCmd.Flags().StringVar(&imagePath, "image", "", "Path to a photo of the plant")
	diagnoseCmd.Flags().BoolVar(&skipCache, "skip-cache", false, "Bypass knowledge base and cache")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
