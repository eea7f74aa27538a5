package genai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/openai/openai-go/option"

	"datachat/internal/config"
	"datachat/internal/logging"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiModel = "gemini-2.0-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

// Provider is the process-wide generative backend, selected once at startup.
// Precedence: explicit ai_provider config, then GEMINI_API_KEY, then
// OPENAI_API_KEY. Without any credential the process refuses to start rather
// than serving with a dead model path.
type Provider struct {
	app   *genkit.Genkit
	name  string
	model string
}

func New(ctx context.Context, cfg *config.Config) (*Provider, error) {
	name, apiKey, err := selectBackend(cfg)
	if err != nil {
		return nil, err
	}

	model := cfg.AIModel
	if model == "" {
		model = defaultModel(name)
	}

	// The genkit reflection server only starts when GENKIT_ENV=dev; keep it
	// off unless the environment explicitly asks for it. Same for telemetry
	// export, which otherwise retries against a collector that isn't there.
	if os.Getenv("GENKIT_ENV") == "" {
		os.Setenv("GENKIT_ENV", "prod")
	}
	if os.Getenv("GENKIT_ENABLE_TELEMETRY") == "" {
		os.Setenv("OTEL_SDK_DISABLED", "true")
	}

	logging.Info("Initializing model backend: provider=%s, model=%s", name, model)

	var app *genkit.Genkit
	switch name {
	case ProviderOpenAI:
		var opts []option.RequestOption
		if cfg.AIBaseURL != "" {
			logging.Debug("Using custom OpenAI base URL: %s", cfg.AIBaseURL)
			opts = append(opts, option.WithBaseURL(cfg.AIBaseURL))
		}
		app = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{APIKey: apiKey, Opts: opts}))
	case ProviderGemini:
		app = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: apiKey}))
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s (use %q or %q)", name, ProviderGemini, ProviderOpenAI)
	}

	return &Provider{app: app, name: name, model: model}, nil
}

// selectBackend resolves the backend name and credential. An explicitly
// configured provider wins; otherwise the first present well-known key
// decides, Gemini before OpenAI.
func selectBackend(cfg *config.Config) (string, string, error) {
	if provider := strings.ToLower(cfg.AIProvider); provider != "" {
		apiKey := cfg.AIAPIKey
		if apiKey == "" {
			apiKey = keyFromEnv(provider)
		}
		if apiKey == "" {
			return "", "", fmt.Errorf("ai_provider is %q but no API key is configured", provider)
		}
		return provider, apiKey, nil
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return ProviderGemini, key, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return ProviderOpenAI, key, nil
	}

	return "", "", fmt.Errorf("no generative backend configured: set ai_provider or export GEMINI_API_KEY or OPENAI_API_KEY")
}

func keyFromEnv(provider string) string {
	switch provider {
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultGeminiModel
}

// App exposes the genkit instance for components that drive generation
// directly.
func (p *Provider) App() *genkit.Genkit {
	return p.app
}

// Name reports the selected backend, "gemini" or "openai".
func (p *Provider) Name() string {
	return p.name
}

// Model returns the bare model name without a provider prefix.
func (p *Provider) Model() string {
	return p.model
}

// ModelName returns the genkit-qualified model identifier.
func (p *Provider) ModelName() string {
	if p.name == ProviderOpenAI {
		return fmt.Sprintf("openai/%s", p.model)
	}
	return fmt.Sprintf("googleai/%s", p.model)
}

// Complete runs a single plain-text generation with no tools attached.
func (p *Provider) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, p.app,
		ai.WithModelName(p.ModelName()),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return resp.Text(), nil
}
