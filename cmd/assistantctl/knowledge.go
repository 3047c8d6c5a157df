package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"mnp-assistant-be/internal/bootstrap"
	"mnp-assistant-be/internal/config"
	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/pkg/serverutils"
	"mnp-assistant-be/internal/repository/unitofwork"
	"mnp-assistant-be/internal/service"
	"mnp-assistant-be/pkg/database"
	"mnp-assistant-be/pkg/knowledge"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

const seedTopic = "assistantctl.embed"

type seedItem struct {
	Category    string   `yaml:"category"`
	Subcategory string   `yaml:"subcategory"`
	Question    string   `yaml:"question"`
	Answer      string   `yaml:"answer"`
	Keywords    []string `yaml:"keywords"`
	Carrier     string   `yaml:"carrier"`
	Priority    int      `yaml:"priority"`
}

type seedFile struct {
	Items []seedItem `yaml:"items"`
}

func newKnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Manage the knowledge base",
	}

	seed := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Insert knowledge items from a YAML file and embed them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	var carrier, step string
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Run the hybrid retriever against the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), args[0], knowledge.SearchContext{Carrier: carrier, CurrentStep: step})
		},
	}
	search.Flags().StringVar(&carrier, "carrier", "", "session carrier used for filtering and boosting")
	search.Flags().StringVar(&step, "step", "", "current workflow step used for boosting")

	cmd.AddCommand(seed, search)
	return cmd
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Connection == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
	}
	poolCfg := database.DefaultPoolConfig()
	poolCfg.Verbose = cfg.Database.Verbose
	return database.NewGormDBFromDSN(cfg.Database.Connection, poolCfg)
}

func loadSeedFile(path string) ([]*dto.CreateKnowledgeItemRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	requests := make([]*dto.CreateKnowledgeItemRequest, 0, len(file.Items))
	for i, item := range file.Items {
		req := &dto.CreateKnowledgeItemRequest{
			Category: item.Category,
			Question: item.Question,
			Answer:   item.Answer,
			Keywords: item.Keywords,
			Priority: item.Priority,
		}
		if item.Subcategory != "" {
			sub := item.Subcategory
			req.Subcategory = &sub
		}
		if item.Carrier != "" {
			c := item.Carrier
			req.Carrier = &c
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return nil, fmt.Errorf("item %d (%q): %w", i+1, item.Question, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// runSeed pushes every item through the same create and embed path the server uses. The
// channel blocks each publish until the consumer acks, so items are embedded one by one.
func runSeed(ctx context.Context, out io.Writer, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	requests, err := loadSeedFile(path)
	if err != nil {
		return err
	}

	cfg := config.Load()
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, watermill.NopLogger{})
	defer pubSub.Close()

	uowFactory := unitofwork.NewRepositoryFactory(db)
	embedder := bootstrap.NewEmbeddingProvider(cfg)
	consumer := service.NewConsumerService(pubSub, seedTopic, uowFactory, embedder, cfg.Ai.EmbeddingTimeout, logger.NopLogger{})
	if err := consumer.Consume(ctx); err != nil {
		return err
	}
	knowledgeService := service.NewKnowledgeService(uowFactory, service.NewPublisherService(seedTopic, pubSub), nil, logger.NopLogger{})

	for _, req := range requests {
		res, err := knowledgeService.Create(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s %s\n", color.GreenString("+"), color.CyanString(res.Category), res.Question)
	}

	pending, err := uowFactory.NewUnitOfWork(ctx).KnowledgeItemRepository().FindMissingEmbeddings(ctx, len(requests)+1)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		color.New(color.FgYellow).Fprintf(out, "%d item(s) still lack an embedding; the server backfill will retry them\n", len(pending))
	}
	fmt.Fprintf(out, "Seeded %d item(s)\n", len(requests))
	return nil
}

func runSearch(ctx context.Context, out io.Writer, query string, sc knowledge.SearchContext) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	retriever := bootstrap.NewRetriever(db, cfg, bootstrap.NewEmbeddingProvider(cfg), logger.NopLogger{}, nil)
	res := retriever.Search(ctx, query, sc)

	fmt.Fprintf(out, "context relevance %.2f, %d result(s)\n", res.ContextRelevance, len(res.Items))
	for i, r := range res.Items {
		fmt.Fprintf(out, "%d. %s %s [%s]\n", i+1, color.CyanString("%.3f", r.Score), r.Item.Question, r.Method)
		fmt.Fprintf(out, "   %s\n", truncate(r.Item.Answer, 120))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
