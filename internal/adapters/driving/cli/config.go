package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/kindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kindex/internal/config"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change settings stored in config.toml.

Keys use dotted names, for example embedding.provider or
indexing.chunk_size. Environment variables such as OPENAI_API_KEY and
KINDEX_DATA_DIR override the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a stored value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a value",
	Long: `Store a value in config.toml. Numeric and boolean keys are checked,
and the resulting configuration must still be valid.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a stored value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that configured AI providers respond",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive provider setup",
	Long:  `Choose embedding and LLM providers step by step. API keys are read without echo.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigWizard,
}

// newValidator builds the provider checker used by check and wizard.
var newValidator = func() driven.AIConfigValidator { return ai.NewConfigValidator() }

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configWizardCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, store, err := loadConfig()
	if err != nil {
		return err
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Printf("  File:     %s\n", store.Path())
	cmd.Printf("  Data dir: %s\n", cfg.DataDir)
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.APIKey)
	cmd.Printf("  Status: %s\n\n", configuredStatus(cfg.Embedding.IsConfigured()))

	cmd.Println("[LLM]")
	printProvider(cmd, cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.APIKey)
	cmd.Printf("  Status: %s\n\n", configuredStatus(cfg.LLM.IsConfigured()))

	cmd.Println("[Vector]")
	cmd.Printf("  Backend: %s\n", cfg.Vector.Backend.Description())
	if cfg.Vector.Backend == domain.VectorBackendQdrant {
		cmd.Printf("  URL: %s\n", cfg.Vector.URL)
		cmd.Printf("  Collection: %s\n", cfg.Vector.Collection)
	}
	cmd.Println()

	cmd.Println("[Indexing]")
	cmd.Printf("  Chunk size: %d (overlap %d words)\n", cfg.Indexing.ChunkSize, cfg.Indexing.ChunkOverlapWords)
	cmd.Printf("  Concurrency: %d\n", cfg.Indexing.MaxConcurrentProcessing)
	cmd.Printf("  Max files: %d\n", cfg.Indexing.MaxFiles)
	cmd.Printf("  Recursive: %t\n", cfg.Indexing.Recursive)
	cmd.Printf("  Embeddings: %t, concepts: %t, summaries: %t\n",
		cfg.Indexing.GenerateEmbeddings, cfg.Indexing.ExtractConcepts, cfg.Indexing.GenerateSummary)
	cmd.Println()

	cmd.Println("[Graph]")
	cmd.Printf("  Slices: %d x %d chars\n", cfg.Graph.MaxSlices, cfg.Graph.SliceChars)
	if cfg.Graph.Neo4jURI != "" {
		cmd.Printf("  Neo4j: %s (%s)\n", cfg.Graph.Neo4jURI, cfg.Graph.Neo4jDatabase)
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", cfg.Server.Addr)
	return nil
}

func printProvider(cmd *cobra.Command, p domain.AIProvider, model, baseURL, apiKey string) {
	if p == "" {
		cmd.Println("  Provider: (none)")
		return
	}
	cmd.Printf("  Provider: %s\n", p.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if p.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Println("  API Key: (not set)")
		}
	}
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

// maskAPIKey keeps the first and last four characters.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	_, store, err := loadConfig()
	if err != nil {
		return err
	}
	cmd.Println(store.Path())
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	_, store, err := loadConfig()
	if err != nil {
		return err
	}

	value, ok := store.Get(args[0])
	if !ok {
		return fmt.Errorf("%s: %w", args[0], domain.ErrNotFound)
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	_, store, err := loadConfig()
	if err != nil {
		return err
	}

	staged := memory.NewOverlay(store)
	if err := config.Set(staged, key, raw); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := config.FromStore(staged).Validate(); err != nil {
		return err
	}
	if err := config.Set(store, key, raw); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	_, store, err := loadConfig()
	if err != nil {
		return err
	}
	if _, ok := store.Get(args[0]); !ok {
		return fmt.Errorf("%s: %w", args[0], domain.ErrNotFound)
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	cmd.Printf("Unset %s\n", args[0])
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	v := newValidator()
	var failed []error

	cmd.Print("Embedding provider... ")
	switch {
	case cfg.Embedding.Provider == "":
		cmd.Println("not configured (lexical search only)")
	case !cfg.Embedding.IsConfigured():
		cmd.Println("FAILED: API key missing")
		failed = append(failed, errors.New("embedding: API key missing"))
	default:
		if err := v.ValidateEmbedding(&cfg.Embedding); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			failed = append(failed, fmt.Errorf("embedding: %w", err))
		} else {
			cmd.Println("OK")
		}
	}

	cmd.Print("LLM provider... ")
	switch {
	case cfg.LLM.Provider == "":
		cmd.Println("not configured (no concepts or summaries)")
	case !cfg.LLM.IsConfigured():
		cmd.Println("FAILED: API key missing")
		failed = append(failed, errors.New("llm: API key missing"))
	default:
		if err := v.ValidateLLM(&cfg.LLM); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			failed = append(failed, fmt.Errorf("llm: %w", err))
		} else {
			cmd.Println("OK")
		}
	}

	return errors.Join(failed...)
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	_, store, err := loadConfig()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	v := newValidator()

	// Both steps are staged and written together.
	staged := memory.NewOverlay(store)

	cmd.Println("kindex Configuration Wizard")
	cmd.Println("===========================")
	cmd.Println()

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	cmd.Println("Embeddings enable semantic search. Without them search is keyword only.")
	if err := configureProvider(cmd, reader, staged, providerStep{
		providers:   domain.AllEmbeddingProviders(),
		defaults:    domain.DefaultEmbeddingModels(),
		providerKey: config.KeyEmbedProvider,
		modelKey:    config.KeyEmbedModel,
		apiKeyKey:   config.KeyEmbedAPIKey,
		validate: func(p domain.AIProvider, model, key string) error {
			return v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: p, Model: model, APIKey: key})
		},
	}); err != nil {
		return err
	}

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	cmd.Println("An LLM extracts concepts for the graph and writes summaries.")
	if err := configureProvider(cmd, reader, staged, providerStep{
		providers:   domain.AllLLMProviders(),
		defaults:    domain.DefaultLLMModels(),
		providerKey: config.KeyLLMProvider,
		modelKey:    config.KeyLLMModel,
		apiKeyKey:   config.KeyLLMAPIKey,
		validate: func(p domain.AIProvider, model, key string) error {
			return v.ValidateLLM(&domain.LLMSettings{Provider: p, Model: model, APIKey: key})
		},
	}); err != nil {
		return err
	}

	if err := commit(store, staged); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	cmd.Println("Configuration Complete!")
	cmd.Printf("Saved to %s\n", store.Path())
	return nil
}

// commit writes staged changes to store in key order.
func commit(store driven.ConfigStore, staged *memory.ConfigStore) error {
	changes := staged.Changes()
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := store.Set(k, changes[k]); err != nil {
			return err
		}
	}
	return nil
}

// providerStep describes one wizard step.
type providerStep struct {
	providers   []domain.AIProvider
	defaults    map[domain.AIProvider]string
	providerKey string
	modelKey    string
	apiKeyKey   string
	validate    func(p domain.AIProvider, model, apiKey string) error
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, store driven.ConfigStore, step providerStep) error {
	for i, p := range step.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	none := len(step.providers) + 1
	cmd.Printf("  %d. None\n", none)
	cmd.Print("\nEnter choice [1]: ")

	idx := parseChoice(readLine(reader), none, 1)
	if idx == none {
		cmd.Println("Disabled.")
		cmd.Println()
		return store.Set(step.providerKey, "")
	}
	provider := step.providers[idx-1]

	defaultModel := step.defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	cmd.Print("Validating configuration... ")
	if err := step.validate(provider, model, apiKey); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s validation failed: %w", provider, err)
	}
	cmd.Println("OK")

	if err := store.Set(step.providerKey, string(provider)); err != nil {
		return err
	}
	if err := store.Set(step.modelKey, model); err != nil {
		return err
	}
	if apiKey != "" {
		if err := store.Set(step.apiKeyKey, apiKey); err != nil {
			return err
		}
	}
	cmd.Printf("Configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, fallback *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(fallback)
}
