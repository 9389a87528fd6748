package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systemshift/mindgraph/internal/app"
	"github.com/systemshift/mindgraph/internal/config"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/notesdir"
	"github.com/systemshift/mindgraph/internal/mindgraph/plan"
	"github.com/systemshift/mindgraph/internal/store"
)

// --- Global Command Variables ---
var (
	configPath string
	cfg        *config.Config

	noteKeywords   []string
	noteDifficulty int
	noteBody       string
	noteExtract    bool
	buildReset     bool
	sessionSort    string

	rootCmd = &cobra.Command{
		Use:   "mindgraph",
		Short: "Build a note graph and plan what to study next",
		Long: `mindgraph links notes whose keywords name other notes, derives a
minimum spanning forest over the links and walks it into study paths.
It also keeps a revision queue and a study plan between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				configPath = p
			}
			if cmd.Name() == "init" {
				return nil
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the data folders",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	// --- Notes ---
	noteCmd = &cobra.Command{
		Use:   "note",
		Short: "Manage notes in the configured store",
	}
	noteAddCmd = &cobra.Command{
		Use:   "add [title]",
		Short: "Add a note",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNoteAdd,
	}
	noteListCmd = &cobra.Command{
		Use:   "list",
		Short: "List notes in the store",
		Args:  cobra.NoArgs,
		RunE:  runNoteList,
	}
	openCmd = &cobra.Command{
		Use:   "open [id]",
		Short: "Open a note and record it in the session log",
		Args:  cobra.ExactArgs(1),
		RunE:  runOpen,
	}

	// --- Graph ---
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Infer edges from the notes in the store",
		Args:  cobra.NoArgs,
		RunE:  runBuild,
	}
	graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Print every note with its neighbours",
		Args:  cobra.NoArgs,
		RunE:  runGraph,
	}
	mstCmd = &cobra.Command{
		Use:   "mst",
		Short: "Print the minimum spanning forest",
		Args:  cobra.NoArgs,
		RunE:  runMST,
	}
	pathCmd = &cobra.Command{
		Use:   "path [start-id]",
		Short: "Print the study path, from the easiest note when no start is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPath,
	}

	// --- Revision ---
	reviseCmd = &cobra.Command{
		Use:   "revise",
		Short: "Work through the revision queue",
	}
	reviseNextCmd = &cobra.Command{
		Use:   "next",
		Short: "Take the next note to revise, refilling the queue when empty",
		Args:  cobra.NoArgs,
		RunE:  runReviseNext,
	}
	reviseListCmd = &cobra.Command{
		Use:   "list",
		Short: "Show the revision queue",
		Args:  cobra.NoArgs,
		RunE:  runReviseList,
	}
	reviseAddCmd = &cobra.Command{
		Use:   "add [id...]",
		Short: "Queue notes for revision",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runReviseAdd,
	}
	reviseClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Empty the revision queue",
		Args:  cobra.NoArgs,
		RunE:  runReviseClear,
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show the session log of opened notes",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	// --- Plan ---
	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Manage the study plan",
	}
	planAddCmd = &cobra.Command{
		Use:   "add [id or title]",
		Short: "Add a note to the plan",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPlanAdd,
	}
	planRemoveCmd = &cobra.Command{
		Use:   "remove [id or title]",
		Short: "Remove a note from the plan",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPlanRemove,
	}
	planListCmd = &cobra.Command{
		Use:   "list",
		Short: "Show the plan",
		Args:  cobra.NoArgs,
		RunE:  runPlanList,
	}
	planClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Empty the plan",
		Args:  cobra.NoArgs,
		RunE:  runPlanClear,
	}

	// --- Maintenance ---
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Write snapshots and truncate journals",
		Args:  cobra.NoArgs,
		RunE:  runFlush,
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show counts for the graph, queue, history and plan",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the graph whenever the notes folder changes",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $MINDGRAPH_CONFIG or ~/.config/mindgraph/config.yaml)")

	noteAddCmd.Flags().StringSliceVarP(&noteKeywords, "keywords", "k", nil, "comma separated keywords")
	noteAddCmd.Flags().IntVarP(&noteDifficulty, "difficulty", "d", core.MinDifficulty, "difficulty from 1 to 5")
	noteAddCmd.Flags().StringVarP(&noteBody, "body", "b", "", "note text")
	noteAddCmd.Flags().BoolVar(&noteExtract, "extract", false, "extract keywords from the body")
	noteCmd.AddCommand(noteAddCmd, noteListCmd)

	buildCmd.Flags().BoolVar(&buildReset, "reset", true, "start from an empty graph")

	reviseCmd.AddCommand(reviseNextCmd, reviseListCmd, reviseAddCmd, reviseClearCmd)

	historyCmd.Flags().StringVar(&sessionSort, "sort", "newest", "newest, oldest or mostused")

	planCmd.AddCommand(planAddCmd, planRemoveCmd, planListCmd, planClearCmd)

	rootCmd.AddCommand(
		initCmd, noteCmd, openCmd,
		buildCmd, graphCmd, mstCmd, pathCmd,
		reviseCmd, historyCmd, planCmd,
		flushCmd, statsCmd, watchCmd,
	)
}

// withApp opens the engine for the duration of fn
func withApp(ctx context.Context, fn func(a *app.App) error) (err error) {
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
	}()
	return fn(a)
}

func titleOf(a *app.App) func(core.NoteID) string {
	return func(id core.NoteID) string {
		n, _ := a.Engine.Note(id)
		return n.Title
	}
}

func parseID(arg string) (core.NoteID, error) {
	id, err := core.ParseNoteID(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", arg)
	}
	return id, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		c = loaded
	} else if err := config.Save(configPath, c); err != nil {
		return err
	}

	for _, dir := range []string{c.DataDir, c.NotesDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	fmt.Println(titleStyle.Render("mindgraph initialized"))
	fmt.Println(dimStyle.Render("config: " + configPath))
	fmt.Println(dimStyle.Render("data:   " + c.DataDir))
	return nil
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	note := core.Note{
		Title:      strings.Join(args, " "),
		Keywords:   noteKeywords,
		Difficulty: noteDifficulty,
	}
	if noteExtract {
		note.Keywords = mergeKeywords(note.Keywords, core.ExtractKeywords(noteBody))
	}
	if note.Difficulty < core.MinDifficulty || note.Difficulty > core.MaxDifficulty {
		return fmt.Errorf("difficulty must be between %d and %d", core.MinDifficulty, core.MaxDifficulty)
	}

	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		switch {
		case a.Stores.Repository != nil:
			if err := a.Stores.Repository.Upsert(ctx, &note); err != nil {
				return err
			}
		case a.Stores.Folder != nil:
			id, err := nextFolderID(ctx, a.Stores.Folder)
			if err != nil {
				return err
			}
			note.ID = id
			path, err := a.Stores.Folder.Write(note, []byte(noteBody))
			if err != nil {
				return err
			}
			fmt.Println(dimStyle.Render("wrote " + path))
		default:
			return errors.New("no writable note store configured")
		}
		fmt.Printf("Added %s\n", label(func(core.NoteID) string { return note.Title }, note.ID))
		if len(note.Keywords) > 0 {
			fmt.Println(dimStyle.Render("keywords: " + strings.Join(note.Keywords, ", ")))
		}
		return nil
	})
}

// mergeKeywords appends extra keywords not already present, ignoring case
func mergeKeywords(keywords, extra []string) []string {
	seen := make(map[string]bool, len(keywords)+len(extra))
	out := make([]string, 0, len(keywords)+len(extra))
	for _, k := range append(append([]string(nil), keywords...), extra...) {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, k)
	}
	return out
}

// nextFolderID returns one more than the highest id in the folder
func nextFolderID(ctx context.Context, folder *notesdir.Store) (core.NoteID, error) {
	notes, err := folder.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	var last core.NoteID
	for _, n := range notes {
		last = max(last, n.ID)
	}
	return last + 1, nil
}

func runNoteList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		notes, err := a.Stores.Notes.FindAll(ctx)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("Notes (%d)", len(notes))))
		for _, n := range notes {
			fmt.Printf("  %s  %s  %s\n",
				dimStyle.Render(fmt.Sprintf("#%-4d", n.ID)),
				noteStyle.Render(n.Title),
				dimStyle.Render(fmt.Sprintf("d%d [%s]", n.Difficulty, n.KeywordsCSV())))
		}
		return nil
	})
}

func runOpen(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		note, err := a.Engine.OpenNote(ctx, id)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render(note.Title))
		if note.FilePath != "" {
			fmt.Println(dimStyle.Render(note.FilePath))
		}
		for _, n := range a.Engine.Neighbours(id) {
			fmt.Printf("  -> %s\n", label(titleOf(a), n))
		}
		return nil
	})
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		result, err := a.Engine.BuildFromStore(ctx, buildReset)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("Graph built"))
		fmt.Printf("  notes:    %d\n", result.Notes)
		fmt.Printf("  inferred: %d (%d new)\n", result.Inferred, result.Added)
		fmt.Printf("  graph:    %d nodes, %d edges\n", result.Nodes, result.Edges)
		fmt.Println(dimStyle.Render("  took " + result.Duration.String()))
		return nil
	})
}

func runGraph(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		printGraph(os.Stdout, a.Engine.Snapshot())
		return nil
	})
}

func runMST(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		forest := a.Engine.MinimumSpanningTree()
		titles := titleOf(a)
		total := 0.0
		fmt.Println(titleStyle.Render(fmt.Sprintf("Spanning forest (%d edges)", len(forest))))
		for _, e := range forest {
			total += e.Weight
			fmt.Printf("  %s -- %s  %s\n", label(titles, e.From), label(titles, e.To),
				dimStyle.Render(fmt.Sprintf("%.0f", e.Weight)))
		}
		fmt.Println(dimStyle.Render(fmt.Sprintf("total weight %.0f", total)))
		return nil
	})
}

func runPath(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		var (
			start core.NoteID
			path  []core.NoteID
		)
		if len(args) == 1 {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			start, path = id, a.Engine.StudyPath(id)
		} else {
			var ok bool
			start, path, ok = a.Engine.DefaultStudyPath()
			if !ok {
				fmt.Println(dimStyle.Render("The graph is empty. Run `mindgraph build` first."))
				return nil
			}
		}
		fmt.Println(titleStyle.Render("Study path"), "from", label(titleOf(a), start))
		printPath(os.Stdout, titleOf(a), path)
		return nil
	})
}

func runReviseNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		note, ok, err := a.Engine.NextNote(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println(dimStyle.Render("Nothing to revise."))
			return nil
		}
		fmt.Printf("Revise %s\n", label(titleOf(a), note.ID))
		if note.FilePath != "" {
			fmt.Println(dimStyle.Render(note.FilePath))
		}
		return nil
	})
}

func runReviseList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		items := a.Engine.RevisionItems()
		fmt.Println(titleStyle.Render(fmt.Sprintf("Revision queue (%d)", len(items))))
		printPath(os.Stdout, titleOf(a), items)
		return nil
	})
}

func runReviseAdd(cmd *cobra.Command, args []string) error {
	ids := make([]core.NoteID, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return withApp(cmd.Context(), func(a *app.App) error {
		for _, id := range ids {
			if err := a.Engine.Enqueue(id); err != nil {
				return err
			}
		}
		fmt.Printf("Queued %d notes\n", len(ids))
		return nil
	})
}

func runReviseClear(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		return a.Engine.ClearRevision()
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	sort, err := store.ParseSortOrder(sessionSort)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		if a.Stores.Sessions == nil {
			return fmt.Errorf("the %s store keeps no session log", a.Config.Store.Driver)
		}
		entries, err := a.Stores.Sessions.SessionHistory(ctx, sort)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("Session history (%s)", sort)))
		for _, e := range entries {
			fmt.Printf("  %s  %s  %s\n",
				dimStyle.Render(e.OpenedAt.Local().Format("2006-01-02 15:04")),
				noteStyle.Render(e.Title),
				dimStyle.Render(fmt.Sprintf("opened %dx", e.UsageCount)))
		}
		return nil
	})
}

func runPlanAdd(cmd *cobra.Command, args []string) error {
	id, title := parseEntryArg(strings.Join(args, " "))
	return withApp(cmd.Context(), func(a *app.App) error {
		added, err := a.Engine.PlanAdd(plan.Entry{ID: id, Title: title})
		if err != nil {
			return err
		}
		if !added {
			fmt.Println(dimStyle.Render("Already planned."))
		}
		return nil
	})
}

func runPlanRemove(cmd *cobra.Command, args []string) error {
	id, title := parseEntryArg(strings.Join(args, " "))
	return withApp(cmd.Context(), func(a *app.App) error {
		removed, err := a.Engine.PlanRemove(plan.Entry{ID: id, Title: title})
		if err != nil {
			return err
		}
		if !removed {
			fmt.Println(dimStyle.Render("Not in the plan."))
		}
		return nil
	})
}

func runPlanList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		entries := a.Engine.PlanList()
		fmt.Println(titleStyle.Render(fmt.Sprintf("Study plan (%d)", len(entries))))
		for i, e := range entries {
			if e.ID.Transient() {
				fmt.Printf("%3d. %s %s\n", i+1, noteStyle.Render(e.Title), dimStyle.Render("(unsaved)"))
				continue
			}
			fmt.Printf("%3d. %s\n", i+1, label(func(core.NoteID) string { return e.Title }, e.ID))
		}
		return nil
	})
}

func runPlanClear(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		return a.Engine.PlanClear()
	})
}

func runFlush(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		if err := a.Engine.Flush(); err != nil {
			return err
		}
		fmt.Println(dimStyle.Render("Snapshots written."))
		return nil
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		s := a.Engine.Stats()
		fmt.Println(titleStyle.Render("mindgraph"))
		fmt.Printf("  graph:    %d nodes, %d edges (%d notes known)\n", s.Nodes, s.Edges, s.Notes)
		fmt.Printf("  revision: %d queued\n", s.Revision)
		fmt.Printf("  plan:     %d entries\n", s.Planned)
		fmt.Println(dimStyle.Render("  data: " + filepath.Clean(a.Config.DataDir)))
		return nil
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		if a.Stores.Folder == nil {
			return app.ErrNoNotesDir
		}
		result, err := a.Engine.BuildFromStore(ctx, true)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("Watching " + a.Stores.Folder.Dir()))
		fmt.Println(dimStyle.Render(fmt.Sprintf("%d nodes, %d edges", result.Nodes, result.Edges)))
		return a.WatchNotes(ctx)
	})
}
