package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkadlec/facegallery/internal/identity"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Inspect and maintain face assignments",
}

var facesClustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Group unidentified faces into review clusters",
	Long: `Partition all unassigned faces into similarity clusters for batch
labeling. Clusters are ordered by size; members by distance to the seed
face, so the most representative face leads each group.`,
	RunE: runFacesClusters,
}

var facesAuditCmd = &cobra.Command{
	Use:   "audit [person-uid]",
	Short: "Audit per-person embedding consistency",
	Long: `Report faces whose embeddings sit far from their person's centroid.
With no argument every person is audited, worst mean distance first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFacesAudit,
}

var facesRematchCmd = &cobra.Command{
	Use:   "rematch",
	Short: "Re-run recognition over all unverified faces",
	RunE:  runFacesRematch,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesClustersCmd)
	facesCmd.AddCommand(facesAuditCmd)
	facesCmd.AddCommand(facesRematchCmd)

	facesClustersCmd.Flags().Int("min-size", 1, "Only show clusters with at least this many faces")
	facesClustersCmd.Flags().Bool("json", false, "Output as JSON")
	facesAuditCmd.Flags().Bool("json", false, "Output as JSON")
}

func runFacesClusters(cmd *cobra.Command, args []string) error {
	minSize := mustGetInt(cmd, "min-size")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	app, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	all := app.engine.ClusterUnknown()
	clusters := all[:0:0]
	for _, c := range all {
		if c.Size >= minSize {
			clusters = append(clusters, c)
		}
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(clusters)
	}

	if len(clusters) == 0 {
		fmt.Println("No unidentified faces to cluster.")
		return nil
	}

	fmt.Printf("%d clusters of unidentified faces:\n\n", len(clusters))
	for _, c := range clusters {
		fmt.Printf("Cluster %s (%d faces)\n", c.ID, c.Size)
		for _, m := range c.Members {
			fmt.Printf("  face %-8d photo %-20s distance %.4f\n", m.RecordID, m.PhotoUID, m.Distance)
		}
		fmt.Println()
	}
	return nil
}

func runFacesAudit(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	app, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args) == 1 {
		report := app.engine.AuditPerson(args[0])
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(report)
		}
		printAudit(*report)
		return nil
	}

	reports := app.engine.AuditAll()
	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(reports)
	}

	if len(reports) == 0 {
		fmt.Println("No people with enough faces to audit.")
		return nil
	}
	for _, report := range reports {
		printAudit(report)
	}
	return nil
}

func printAudit(report identity.PersonAudit) {
	fmt.Printf("Person %s: %d faces, mean distance %.4f\n",
		report.PersonUID, report.FaceCount, report.MeanDistance)
	for _, o := range report.Outliers {
		fmt.Printf("  OUTLIER face %-8d photo %-20s distance %.4f\n", o.RecordID, o.PhotoUID, o.Distance)
	}
}

func runFacesRematch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	changed, err := app.engine.RematchUnverified(ctx)
	if err != nil {
		return fmt.Errorf("rematching: %w", err)
	}
	fmt.Printf("Rematch complete: %d assignments changed\n", changed)
	return nil
}
