package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "siren.json"

// DefaultManifestFilename describes the manifest filename the plan command reads by default.
const DefaultManifestFilename = "Clarinet.toml"

// DefaultDeploymentPlanFilename describes the filename generated deployment plans are written under.
const DefaultDeploymentPlanFilename = "default.simnet-plan.yaml"
