// Package main provides the histedit CLI: record a collaborative editing
// session's activity history and analyze what deleting activities from it
// would drag along.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"histedit/internal/analysis"
	"histedit/internal/config"
	"histedit/internal/depgraph"
	"histedit/internal/deps"
	"histedit/internal/describe"
	"histedit/internal/match"
	"histedit/internal/policy"
	"histedit/internal/session"
)

const dbFile = "session.db"

var rootCmd = &cobra.Command{
	Use:   "histedit",
	Short: "Session history deletion analysis",
	Long:  `histedit records multi-user editing session activities and computes which activities must or may be deleted together, via dependency graph analysis.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a session history in the data directory",
	RunE:  runInit,
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record activities",
}

var recordPackageCmd = &cobra.Command{
	Use:   "package <added|saved|renamed|deleted> <name>",
	Short: "Record a package activity",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecordPackage,
}

var recordTransactionCmd = &cobra.Command{
	Use:   "transaction",
	Short: "Record a transaction activity",
	Args:  cobra.NoArgs,
	RunE:  runRecordTransaction,
}

var recordConnectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Record a connection activity",
	Args:  cobra.NoArgs,
	RunE:  runRecordBare(session.EventConnection),
}

var recordLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Record a lock activity",
	Args:  cobra.NoArgs,
	RunE:  runRecordBare(session.EventLock),
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List recorded activities",
	RunE:  runLog,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [activity-id]...",
	Short: "Compute deletion requirements for the given activities",
	RunE:  runAnalyze,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dependency graph",
}

var exportDotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Export the dependency graph in Graphviz dot format",
	RunE:  runExportDot,
}

var (
	dataDir      string
	debugFlag    bool
	summaryFlag  string
	endpointFlag string
	newNameFlag  string
	dataFileFlag string
	modifiesFlag []string
	createsFlag  []string
	removesFlag  []string
	editsFlag    []string
	packagesFlag []string
	policyFlag   string
	jsonFlag     bool
	outFlag      string
	graphName    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "Data directory (default: .histedit, or HISTEDIT_DATA)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	recordCmd.PersistentFlags().StringVar(&summaryFlag, "summary", "", "Human-readable summary of the activity")
	recordCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Endpoint UUID of the client performing the activity")
	recordPackageCmd.Flags().StringVar(&newNameFlag, "new-name", "", "New package name (renames only)")
	recordPackageCmd.Flags().StringVar(&dataFileFlag, "data-file", "", "File with package data to store")
	recordTransactionCmd.Flags().StringSliceVar(&modifiesFlag, "modifies", nil, "Package modified by the transaction")
	recordTransactionCmd.Flags().StringSliceVar(&createsFlag, "creates", nil, "Object path created by the transaction")
	recordTransactionCmd.Flags().StringSliceVar(&removesFlag, "removes", nil, "Object path removed by the transaction")
	recordTransactionCmd.Flags().StringSliceVar(&editsFlag, "edits", nil, "Object path edited by the transaction")

	analyzeCmd.Flags().StringSliceVar(&packagesFlag, "packages", nil, "Seed every activity touching packages matching this glob")
	analyzeCmd.Flags().StringVar(&policyFlag, "policy", "", "YAML policy for possible dependencies (default: HISTEDIT_POLICY)")
	analyzeCmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")

	exportDotCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output file (default: stdout)")
	exportDotCmd.Flags().StringVar(&graphName, "name", "SessionHistory", "Graph name")

	recordCmd.AddCommand(recordPackageCmd)
	recordCmd.AddCommand(recordTransactionCmd)
	recordCmd.AddCommand(recordConnectionCmd)
	recordCmd.AddCommand(recordLockCmd)
	exportCmd.AddCommand(exportDotCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	cobra.OnInitialize(setupLogging)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if debugFlag || config.FromEnv().Debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.FromEnv().DataDir
}

func resolvePolicyPath() string {
	if policyFlag != "" {
		return policyFlag
	}
	return config.FromEnv().PolicyPath
}

func openDB() (*session.DB, error) {
	dir := resolveDataDir()
	dbPath := filepath.Join(dir, dbFile)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no session history at %s; run 'histedit init' first", dbPath)
	}
	slog.Debug("opening session database", "path", dbPath)
	return session.Open(dbPath)
}

func resolveEndpoint() (uuid.UUID, error) {
	if endpointFlag == "" {
		return uuid.New(), nil
	}
	endpoint, err := uuid.Parse(endpointFlag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing endpoint id: %w", err)
	}
	return endpoint, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	db, err := session.Open(filepath.Join(dir, dbFile))
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Initialized session history in %s/\n", dir)
	return nil
}

func runRecordPackage(cmd *cobra.Command, args []string) error {
	updateType := session.PackageUpdateType(args[0])
	switch updateType {
	case session.PackageAdded, session.PackageSaved, session.PackageRenamed, session.PackageDeleted:
	default:
		return fmt.Errorf("unknown package update type %q", args[0])
	}
	if updateType == session.PackageRenamed && newNameFlag == "" {
		return fmt.Errorf("renames require --new-name")
	}

	var data []byte
	if dataFileFlag != "" {
		var err error
		data, err = os.ReadFile(dataFileFlag)
		if err != nil {
			return fmt.Errorf("reading data file: %w", err)
		}
	}

	endpoint, err := resolveEndpoint()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.AddPackageActivity(endpoint, summaryFlag, session.PackageInfo{
		UpdateType: updateType,
		Name:       args[1],
		NewName:    newNameFlag,
	}, data)
	if err != nil {
		return err
	}

	fmt.Printf("Recorded activity %d\n", id)
	return nil
}

func runRecordTransaction(cmd *cobra.Command, args []string) error {
	var objects []session.ExportedObject
	for _, path := range createsFlag {
		objects = append(objects, session.ExportedObject{Path: path, AllowCreate: true})
	}
	for _, path := range removesFlag {
		objects = append(objects, session.ExportedObject{Path: path, PendingKill: true})
	}
	for _, path := range editsFlag {
		objects = append(objects, session.ExportedObject{Path: path})
	}
	if len(objects) == 0 && len(modifiesFlag) == 0 {
		return fmt.Errorf("transaction needs at least one of --modifies, --creates, --removes, --edits")
	}

	endpoint, err := resolveEndpoint()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.AddTransactionActivity(endpoint, summaryFlag, session.TransactionInfo{
		ModifiedPackages: modifiesFlag,
		ExportedObjects:  objects,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Recorded activity %d\n", id)
	return nil
}

func runRecordBare(eventType session.EventType) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		endpoint, err := resolveEndpoint()
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var id int64
		if eventType == session.EventLock {
			id, err = db.AddLockActivity(endpoint, summaryFlag)
		} else {
			id, err = db.AddConnectionActivity(endpoint, summaryFlag)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Recorded activity %d\n", id)
		return nil
	}
}

func runLog(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.EnumerateActivities(func(activity *session.Activity) error {
		fmt.Printf("%6d  %-12s %s\n", activity.ID, activity.Type, describe.Activity(activity))
		return nil
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(packagesFlag) == 0 {
		return fmt.Errorf("nothing to analyze; pass activity IDs or --packages")
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	seeds, err := collectSeeds(db, args)
	if err != nil {
		return err
	}
	slog.Debug("collected seeds", "count", len(seeds))

	graph, err := deps.BuildGraph(db)
	if err != nil {
		return fmt.Errorf("building dependency graph: %w", err)
	}
	slog.Debug("built dependency graph", "nodes", graph.NodeCount())

	requirements := analysis.AnalyzeDeletion(seeds, graph)

	var decision *policy.Decision
	if path := resolvePolicyPath(); path != "" {
		pol, err := policy.Load(path)
		if err != nil {
			return err
		}
		d := pol.Apply(graph, seeds, requirements)
		decision = &d
	}

	if jsonFlag {
		return printAnalysisJSON(seeds, requirements, decision)
	}
	printAnalysis(db, seeds, requirements, decision)
	return nil
}

// collectSeeds resolves explicit activity IDs and expands --packages globs
// into every package or transaction activity touching a matching package.
func collectSeeds(db *session.DB, args []string) ([]depgraph.ActivityID, error) {
	seen := make(map[depgraph.ActivityID]bool)
	var seeds []depgraph.ActivityID
	add := func(id depgraph.ActivityID) {
		if !seen[id] {
			seen[id] = true
			seeds = append(seeds, id)
		}
	}

	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid activity id %q", arg)
		}
		add(depgraph.ActivityID(id))
	}

	if len(packagesFlag) == 0 {
		return seeds, nil
	}
	matcher, err := match.NewMatcher(packagesFlag)
	if err != nil {
		return nil, err
	}

	err = db.EnumerateActivities(func(activity *session.Activity) error {
		switch activity.Type {
		case session.EventPackage:
			if matcher.Match(activity.Package.Name) || (activity.Package.NewName != "" && matcher.Match(activity.Package.NewName)) {
				add(depgraph.ActivityID(activity.ID))
			}
		case session.EventTransaction:
			if matcher.MatchAny(activity.Transaction.ModifiedPackages) {
				add(depgraph.ActivityID(activity.ID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seeds, nil
}

func printAnalysis(db *session.DB, seeds []depgraph.ActivityID, req analysis.Requirements, decision *policy.Decision) {
	fmt.Printf("Seeds: %s\n", formatIDs(seeds))

	fmt.Printf("Hard requirements (%d):\n", len(req.Hard))
	for _, id := range req.HardIDs() {
		fmt.Printf("  %6d  %s\n", id, activitySummary(db, id))
	}

	fmt.Printf("Possible requirements (%d):\n", len(req.Possible))
	for _, id := range req.PossibleIDs() {
		fmt.Printf("  %6d  %s\n", id, activitySummary(db, id))
	}

	if decision != nil {
		fmt.Printf("Policy verdicts: delete %s; review %s; keep %s\n",
			formatIDs(decision.Delete), formatIDs(decision.Review), formatIDs(decision.Keep))
	}
}

func printAnalysisJSON(seeds []depgraph.ActivityID, req analysis.Requirements, decision *policy.Decision) error {
	out := map[string]interface{}{
		"seeds":    seeds,
		"hard":     req.HardIDs(),
		"possible": req.PossibleIDs(),
	}
	if decision != nil {
		out["policy"] = map[string]interface{}{
			"delete": decision.Delete,
			"review": decision.Review,
			"keep":   decision.Keep,
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func activitySummary(db *session.DB, id depgraph.ActivityID) string {
	activity, err := db.GetActivity(int64(id))
	if err != nil {
		return ""
	}
	return describe.Activity(activity)
}

func formatIDs(ids []depgraph.ActivityID) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ", ")
}

func runExportDot(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	graph, err := deps.BuildGraph(db)
	if err != nil {
		return fmt.Errorf("building dependency graph: %w", err)
	}

	out := os.Stdout
	if outFlag != "" {
		f, err := os.Create(outFlag)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return depgraph.WriteDot(out, graph, graphName, func(id depgraph.ActivityID) string {
		return activitySummary(db, id)
	})
}
