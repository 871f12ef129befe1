// Package main demonstrates the moderation library.
//
// By default the example runs offline against canned classifier and
// model replies. Pass -live to build the client from configuration
// (.env, an optional -config YAML file and the environment) and call
// the real backends.
//
// This example shows:
// 1. Building a client with a screener, judge and fact-checker
// 2. Moderating posts, comments and remedy posts
// 3. Persisting results and reacting to decision changes via hooks
// 4. Rendering content for different viewers
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/bootstrap"
	"github.com/heibot/moderation/client"
	"github.com/heibot/moderation/config"
	"github.com/heibot/moderation/factcheck"
	"github.com/heibot/moderation/hooks"
	"github.com/heibot/moderation/judge"
	"github.com/heibot/moderation/providers"
	"github.com/heibot/moderation/screener"
	"github.com/heibot/moderation/store/memory"
	"github.com/heibot/moderation/visibility"
)

func main() {
	live := flag.Bool("live", false, "call the configured backends instead of canned replies")
	configPath := flag.String("config", "", "optional YAML config file (with -live)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// ============================================================
	// Step 1: Build the client
	// ============================================================
	var c *client.Client
	if *live {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
		app, err := bootstrap.Build(ctx, *cfg, logger)
		if err != nil {
			logger.Fatal("failed to build client", zap.Error(err))
		}
		defer app.Close()
		c = app.Client
	} else {
		c, err = offlineClient(logger)
		if err != nil {
			logger.Fatal("failed to build client", zap.Error(err))
		}
	}

	// ============================================================
	// Step 2: Moderate sample content
	// ============================================================
	samples := []struct {
		name string
		req  moderation.Request
	}{
		{"support post", moderation.Request{
			Text:        "I was diagnosed with PCOS last year and felt so alone. Reading everyone's stories here has helped me more than I can say.",
			ContentType: moderation.ContentPost,
			Topic:       "PCOS",
		}},
		{"remedy post", moderation.Request{
			Text:        "Drinking warm cumin water after meals really helps with my period bloating.",
			ContentType: moderation.ContentPost,
			Topic:       "Home Remedies",
		}},
		{"borderline comment", moderation.Request{
			Text:        "Honestly just stop your metformin, cinnamon does the same thing.",
			ContentType: moderation.ContentComment,
			Topic:       "PCOS",
		}},
		{"abusive comment", moderation.Request{
			Text:        "You are disgusting and nobody wants to hear about your body.",
			ContentType: moderation.ContentComment,
		}},
		{"too short", moderation.Request{Text: "ok", ContentType: moderation.ContentComment}},
	}

	for _, s := range samples {
		res := c.Moderate(ctx, s.req)
		fmt.Printf("[%s] approved=%v score=%d flags=%v judge=%v\n",
			s.name, res.Approved, res.SafetyScore, res.Flags, res.UsedSafetyJudge)
		fmt.Printf("    reason: %s\n", res.Reason)
		if res.FactCheck != nil {
			fmt.Printf("    fact-check: %s (%s) %s\n", res.FactCheck.Verdict, res.FactCheck.Evidence, res.FactCheck.Advice)
		}
		if b := visibility.BadgeFor(res); b != visibility.BadgeNone {
			fmt.Printf("    badge: %s\n", b.Label())
		}
	}

	// ============================================================
	// Step 3: Persist and re-moderate after an edit
	// ============================================================
	if *live {
		return
	}
	ref := moderation.ContentRef{ContentType: moderation.ContentComment, ContentID: "comment-42", ParentID: "post-7", AuthorID: "user-3"}
	for _, text := range []string{
		"Honestly just stop your metformin, cinnamon does the same thing.",
		"Cinnamon helped me a little, but please ask your doctor before changing metformin.",
	} {
		out, err := c.Submit(ctx, client.SubmitInput{Ref: ref, Request: moderation.Request{Text: text, ContentType: ref.ContentType}})
		if err != nil {
			logger.Fatal("submit failed", zap.Error(err))
		}
		fmt.Printf("[submit] revision=%d approved=%v\n", out.Record.Revision, out.Record.Approved)
	}

	// ============================================================
	// Step 4: Render for different viewers
	// ============================================================
	rec, err := c.GetRecord(ctx, ref.ContentType, ref.ContentID)
	if err != nil {
		logger.Fatal("get record failed", zap.Error(err))
	}
	renderer := visibility.NewRenderer()
	for _, viewer := range []visibility.ViewerRole{visibility.ViewerPublic, visibility.ViewerCreator, visibility.ViewerAdmin} {
		out := renderer.Render(visibility.RenderContext{ContentType: ref.ContentType, Viewer: viewer},
			"Cinnamon helped me a little, but please ask your doctor before changing metformin.", &rec.Result)
		fmt.Printf("[render:%s] visible=%v text=%q message=%q\n", viewer, out.Visible, out.Text, out.Message)
	}
}

// offlineClient wires the real screener, judge and fact-check stages
// over canned backend replies keyed on the sample texts.
func offlineClient(logger *zap.Logger) (*client.Client, error) {
	classifier := providers.ClassifierFunc{
		ProviderName: "canned-toxicity",
		Fn: func(ctx context.Context, text string) (providers.Signal, error) {
			lower := strings.ToLower(text)
			switch {
			case strings.Contains(lower, "disgusting"):
				return providers.CategoryScores{"Toxic": 0.91, "Insult": 0.84}, nil
			case strings.Contains(lower, "stop your metformin"):
				return providers.CategoryScores{"Toxic": 0.12, "Health": 0.52}, nil
			default:
				return providers.CategoryScores{"Toxic": 0.04}, nil
			}
		},
	}
	model := providers.GeneratorFunc{
		ProviderName: "canned-llm",
		Fn: func(ctx context.Context, prompt string) (string, error) {
			if strings.HasPrefix(prompt, "Fact-check") {
				return `{"verdict": "uncertain", "evidence": "Small studies suggest cumin may ease digestion; evidence for bloating is limited.", "advice": "Generally safe in food amounts. See a doctor if bloating is severe."}`, nil
			}
			return "```json\n" + `{"approved": false, "safetyScore": 30, "flags": ["medication misinformation"], "reason": "Advises stopping prescribed medication.", "suggestedEdit": "Cinnamon helped me a little, but please ask your doctor before changing metformin."}` + "\n```", nil
		},
	}

	printer := hooks.FuncHooks{
		OnModeratedFunc: func(ctx context.Context, e hooks.ModeratedEvent) error {
			if e.Change != nil && e.Change.IsRestoration() {
				fmt.Printf("    [hook] %s/%s is visible again\n", e.Ref.ContentType, e.Ref.ContentID)
			}
			return nil
		},
		OnRejectedFunc: func(ctx context.Context, e hooks.RejectedEvent) error {
			fmt.Printf("    [hook] rejected: %s\n", visibility.Notice(e.Result))
			return nil
		},
	}

	return client.New(client.Options{
		Screener:    screener.New(classifier, screener.Config{Logger: logger}),
		Judge:       judge.New(model, judge.Config{Logger: logger}),
		FactChecker: factcheck.New(model, factcheck.Config{Logger: logger}),
		Hooks:       printer,
		Store:       memory.New(),
		Logger:      logger,
		Policy:      client.DefaultPolicy(),
	})
}
