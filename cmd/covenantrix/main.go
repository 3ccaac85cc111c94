package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/covenantrix/rag/config"
	"github.com/covenantrix/rag/internal/persona"
	"github.com/covenantrix/rag/internal/query"
	"github.com/covenantrix/rag/internal/service"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(100)
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	svc, err := service.Build(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
	defer svc.Close()

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "ingest":
		err = runIngest(ctx, svc, args)
	case "query":
		err = runQuery(ctx, svc, args)
	case "list":
		err = runList(svc, args)
	case "delete":
		err = runDelete(ctx, svc, args)
	case "clear":
		err = runClear(ctx, svc)
	case "analytics":
		err = runAnalytics(svc)
	case "personas":
		err = runPersonas(svc)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: covenantrix <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  ingest <file> [<file>...]   Process documents into the knowledge base")
	fmt.Fprintln(os.Stderr, "  query <text>                Ask a question over ingested documents")
	fmt.Fprintln(os.Stderr, "  list                        Show ingested documents")
	fmt.Fprintln(os.Stderr, "  delete                      Delete a document by id or name")
	fmt.Fprintln(os.Stderr, "  clear                       Delete all documents and engine state")
	fmt.Fprintln(os.Stderr, "  analytics                   Show query usage statistics")
	fmt.Fprintln(os.Stderr, "  personas                    List available personas")
}

func runIngest(ctx context.Context, svc *service.Service, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	folder := fs.String("folder", "", "Folder id to group documents under")
	fs.Parse(args)

	files := fs.Args()
	if len(files) == 0 {
		return fmt.Errorf("ingest: at least one file required")
	}

	for _, path := range files {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription("Starting"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
		)

		meta, err := svc.ProcessDocument(ctx, path, *folder, func(stage string, percent int) {
			bar.Describe(stage)
			bar.Set(percent)
		})
		fmt.Println()
		if err != nil {
			return fmt.Errorf("process %s: %w", path, err)
		}

		fmt.Println(titleStyle.Render(meta.OriginalName))
		printField("ID", meta.ID)
		printField("Type", meta.DocumentType)
		printField("Chunks", fmt.Sprintf("%d", meta.ChunkCount))
		printField("Processing time", fmt.Sprintf("%.2fs", meta.ProcessingTime))
	}
	return nil
}

func runQuery(ctx context.Context, svc *service.Service, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	personaFlag := fs.String("persona", string(persona.DefaultPersona), "Persona to answer as")
	modeFlag := fs.String("mode", string(query.ModeHybrid), "Retrieval mode (local, global, hybrid, naive, mix)")
	conversationFlag := fs.String("conversation", "", "Conversation id to continue")
	followUps := fs.Bool("follow-ups", false, "Suggest follow-up questions")
	fs.Parse(args)

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		return fmt.Errorf("query: question text required")
	}

	qc := query.Context{
		Persona: persona.Persona(*personaFlag),
		Mode:    query.Mode(*modeFlag),
	}

	resp := svc.Query(ctx, text, qc, *conversationFlag)

	fmt.Println(answerStyle.Render(resp.Answer))
	fmt.Println()
	printField("Confidence", fmt.Sprintf("%.2f", resp.Confidence))
	printField("Persona", string(resp.Persona))
	printField("Mode", string(resp.Mode))
	printField("Conversation", resp.ConversationID)
	printField("Time", resp.ProcessingTime.String())

	if *followUps {
		fmt.Println()
		fmt.Println(titleStyle.Render("Follow-up questions"))
		for _, q := range svc.SuggestFollowUps(ctx, text, resp, qc) {
			fmt.Printf("  - %s\n", q)
		}
	}
	return nil
}

func runList(svc *service.Service, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	folder := fs.String("folder", "", "Only documents in this folder")
	fs.Parse(args)

	docs, err := svc.ListDocuments(*folder)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents ingested yet")
		return nil
	}

	for _, d := range docs {
		fmt.Println(titleStyle.Render(d.OriginalName))
		printField("ID", d.ID)
		printField("Type", d.DocumentType)
		printField("Processed", d.ProcessedAt.Format("2006-01-02 15:04"))
		fmt.Println()
	}
	return nil
}

func runDelete(ctx context.Context, svc *service.Service, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Document id to delete")
	name := fs.String("name", "", "Original filename to delete (most recent match)")
	fs.Parse(args)

	var ok bool
	switch {
	case *id != "":
		ok = svc.DeleteDocument(ctx, *id)
	case *name != "":
		ok = svc.DeleteDocumentByName(ctx, *name)
	default:
		return fmt.Errorf("delete: -id or -name required")
	}

	if !ok {
		return fmt.Errorf("document not found")
	}
	fmt.Println("Deleted")
	return nil
}

func runClear(ctx context.Context, svc *service.Service) error {
	count := svc.ClearAllDocuments(ctx)
	fmt.Printf("Cleared %d documents\n", count)
	return nil
}

func runAnalytics(svc *service.Service) error {
	summary := svc.Analytics()
	if summary.Message != "" {
		fmt.Println(summary.Message)
		return nil
	}

	fmt.Println(titleStyle.Render("Query analytics"))
	printField("Total queries", fmt.Sprintf("%d", summary.TotalQueries))
	printField("Avg response time", summary.AverageResponseTime.String())
	printField("Avg confidence", fmt.Sprintf("%.2f", summary.AverageConfidence))

	fmt.Println()
	fmt.Println(titleStyle.Render("Persona usage"))
	for p, n := range summary.PersonaUsage {
		printField(p, fmt.Sprintf("%d", n))
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("Mode usage"))
	for m, n := range summary.ModeUsage {
		printField(m, fmt.Sprintf("%d", n))
	}
	return nil
}

func runPersonas(svc *service.Service) error {
	for _, p := range svc.Personas() {
		fmt.Println(valueStyle.Render(string(p)))
	}
	return nil
}

func printField(label, value string) {
	fmt.Printf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}
