package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/distro"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <output>",
	Short: "Write the release catalog as YAML",
	Long: `Write the known Ubuntu releases and the skip list as a YAML release
catalog. Edit the file and pass it to "forwardport fetch --releases-file"
to analyze releases the built-in catalog does not know yet.

Examples:
  forwardport catalog releases.yaml
  forwardport catalog --from releases.yaml --force releases.yaml`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)

	catalogCmd.Flags().String("from", "", "YAML release catalog to start from (default: built-in)")
	catalogCmd.Flags().Bool("force", false, "Overwrite an existing output file")

	_ = viper.BindPFlag("catalog.from", catalogCmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("catalog.force", catalogCmd.Flags().Lookup("force"))
}

func runCatalog(_ *cobra.Command, args []string) error {
	output := args[0]

	if _, err := os.Stat(output); err == nil && !viper.GetBool("catalog.force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", output)
	}

	catalog := distro.Default()
	if from := viper.GetString("catalog.from"); from != "" {
		c, err := distro.LoadCatalogFromFile(from)
		if err != nil {
			return err
		}
		catalog = c
	}

	if err := distro.SaveCatalogToFile(catalog, output); err != nil {
		return err
	}

	zap.L().Info("release catalog written",
		zap.String("path", output),
		zap.Int("releases", len(catalog.Releases())),
	)
	return nil
}
