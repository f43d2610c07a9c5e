package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/forked/internal/provider"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models that can serve simulations and the one that would be used",
	Long: `Runs the same capability probe as server startup.

For Gemini, lists every model supporting content generation in API order and marks
the selected one: the configured model if set, otherwise the first listed.
OpenAI uses a fixed model and is reported as is.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if cfg.LLM.Provider != provider.NameGemini {
		p, err := provider.New(ctx, cfg.ProviderConfig(), logger)
		if err != nil {
			return err
		}
		defer p.Close()
		fmt.Fprintf(out, "%s uses a fixed model\n* %s\n", p.Name(), p.Model())
		return nil
	}

	g, err := provider.NewGeminiClient(ctx, cfg.ProviderConfig(), logger)
	if err != nil {
		return err
	}
	defer g.Close()

	capable, err := g.CapableModels(ctx)
	if err != nil {
		return err
	}

	for _, name := range capable {
		marker := " "
		if name == g.Model() {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, name)
	}
	fmt.Fprintf(out, "\nselected: %s\n", g.Model())
	return nil
}
