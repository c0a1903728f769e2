package cmd

// addPlanFlags adds the various flags for the plan command
func addPlanFlags() {
	planCmd.Flags().SortFlags = false

	// Manifest path
	planCmd.Flags().String("manifest", DefaultManifestFilename, "path of the project manifest to derive the plan from")

	// Publishing sender
	planCmd.Flags().String("sender", "", "principal publishing every contract. Empty derives the first wallet's address")

	// Output path for the plan
	planCmd.Flags().String("out", "", "output path for the generated plan. Empty writes it next to the manifest")
}
