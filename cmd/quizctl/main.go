package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"notes-quiz/internal/adapter"
	"notes-quiz/internal/adapter/embedding"
	"notes-quiz/internal/adapter/oracle"
	"notes-quiz/internal/cache"
	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/grounding"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "quizctl",
		Short:        "Grounded quizzes from course notes",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.AddCommand(coursesCmd(), searchCmd(), topicsCmd(), quizCmd())
	return root
}

// deps holds what the subcommands share. Oracle-backed parts are built only
// by commands that need them.
type deps struct {
	cfg     *config.Config
	cache   domain.Cache
	index   *grounding.Index
	catalog *service.CourseCatalog
}

func setup(cmd *cobra.Command) (*deps, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level, _ := cmd.Flags().GetString("log-level")
	cfg.Logger.Level = level
	if err := logger.InitializeWithWriter(cfg.Logger, os.Stderr); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	d := &deps{cfg: cfg}
	client, err := cache.NewRedisClient(cmd.Context(), cfg.Redis)
	if err != nil {
		logger.Get().Warn("Redis unavailable, continuing without shared cache", zap.Error(err))
	}
	var opts []grounding.Option
	if client != nil {
		d.cache = adapter.NewRedisCacheAdapter(client)
		opts = append(opts, grounding.WithCache(d.cache, cfg.Redis.PageTTL))
	}
	d.index = grounding.NewIndex(cfg.Notes.Root, opts...)
	d.catalog = service.NewCourseCatalog(d.index, cfg.Courses)
	return d, nil
}

func (d *deps) oracle() (domain.Oracle, error) {
	o, err := oracle.New(d.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create oracle: %w", err)
	}
	return o, nil
}

func (d *deps) engine() (*service.QuizEngine, error) {
	llm, err := d.oracle()
	if err != nil {
		return nil, err
	}

	var genOpts []service.GeneratorOption
	var embedder domain.EmbeddingService
	if d.cfg.Embedding.Enabled {
		svc, err := embedding.New(d.cfg.Embedding, d.cache)
		if err != nil {
			return nil, fmt.Errorf("create embedding service: %w", err)
		}
		embedder = svc
		genOpts = append(genOpts, service.WithSimilarityGuard(service.NewSimilarityGuard(embedder, d.cfg.Embedding.Threshold)))
	}

	var gradeOpts []service.GradingOption
	if d.cache != nil {
		gradeOpts = append(gradeOpts, service.WithGradingCache(service.NewGradingCache(d.cache, embedder, d.cfg.Embedding.Threshold)))
	}

	gen := service.NewGenerator(d.catalog, llm, genOpts...)
	grader := service.NewGradingEngine(d.index, llm, gradeOpts...)
	results := service.NewResultStore(d.cache, service.DefaultResultTTL)
	return service.NewQuizEngine(d.catalog, gen, grader, results, d.cfg.Generation.Lazy), nil
}

func coursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List courses and which notes are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := setup(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tNOTES\tFILES")
			for _, c := range d.catalog.AvailableCourses() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%v\n", c.Code, c.Name, c.NotesAvailable, c.NoteFiles)
			}
			return w.Flush()
		},
	}
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <file> <query>",
		Short: "Rank the pages of a notes file against a query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			if !d.index.ValidateReference(args[0]) {
				return fmt.Errorf("notes file not found: %s", args[0])
			}
			results := d.index.Search(cmd.Context(), args[0], args[1], limit)
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching pages.")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "p. %d  (score %d)\n    %s\n", r.Page, r.Score, r.Excerpt)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "l", 5, "Maximum number of results")
	return cmd
}

func topicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics <course> <topic>...",
		Short: "Check which topics the course notes cover",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(cmd)
			if err != nil {
				return err
			}
			result, err := d.catalog.ValidateTopics(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range result.Found {
				fmt.Fprintf(out, "found      %-24s %s p. %d\n", m.Topic, m.File, m.Page)
			}
			for _, t := range result.NotFound {
				fmt.Fprintf(out, "not found  %s\n", t)
				for _, s := range result.Suggestions[t] {
					fmt.Fprintf(out, "           - %s\n", s)
				}
			}
			return nil
		},
	}
}

func quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Take an interactive quiz in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := setup(cmd)
			if err != nil {
				return err
			}
			engine, err := d.engine()
			if err != nil {
				return err
			}

			f := cmd.Flags()
			course, _ := f.GetString("course")
			topics, _ := f.GetStringSlice("topic")
			types, _ := f.GetStringSlice("type")
			difficulty, _ := f.GetString("difficulty")
			n, _ := f.GetInt("num-questions")

			req := domain.GenerationRequest{
				Course:       course,
				Topics:       topics,
				Difficulty:   difficulty,
				NumQuestions: n,
			}
			for _, t := range types {
				qt := domain.QuestionType(t)
				if !qt.Valid() {
					return fmt.Errorf("unknown question type %q", t)
				}
				req.QuestionTypes = append(req.QuestionTypes, qt)
			}
			return runQuiz(cmd.Context(), engine, req, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringP("course", "c", "", "Course code, as listed by the courses command")
	f.StringSliceP("topic", "t", nil, "Topic to quiz on (repeatable)")
	f.StringSlice("type", nil, "Question type (repeatable): mcq_single, mcq_multi, short_answer, long_answer, derivation, proof, code")
	f.StringP("difficulty", "d", domain.DefaultDifficulty, "Difficulty (intro, standard, advanced, exam)")
	f.IntP("num-questions", "n", 5, "Number of questions")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}
