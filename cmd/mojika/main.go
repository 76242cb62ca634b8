package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mojika/mojika/config"
	"github.com/mojika/mojika/internal/adapter/api"
	"github.com/mojika/mojika/internal/adapter/mock"
	"github.com/mojika/mojika/internal/adapter/storage/jsonfile"
	sqlitestore "github.com/mojika/mojika/internal/adapter/storage/sqlite"
	"github.com/mojika/mojika/internal/domain"
	"github.com/mojika/mojika/internal/infrastructure/logger"
	"github.com/mojika/mojika/internal/port"
	"github.com/mojika/mojika/internal/service"
)

const usage = `mojika - transcription client

Usage:
  mojika upload [-format text|markdown|srt] [-o path] [-mock] <file>
  mojika history [-search term] [-date all|today|thisWeek|thisMonth] [-sort asc|desc]
  mojika history show [-format text|markdown|srt] <id>
  mojika history rm <id>
  mojika rm <job-id>
  mojika storage
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error.Printf("failed to create data directory: %v", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error.Printf("failed to open store: %v", err)
		os.Exit(1)
	}
	defer closeStore()

	history := service.NewHistoryService(store)

	var runErr error
	switch os.Args[1] {
	case "upload":
		runErr = runUpload(cfg, history, os.Args[2:])
	case "history":
		runErr = runHistory(history, os.Args[2:])
	case "rm":
		runErr = runRemove(cfg, os.Args[2:])
	case "storage":
		runErr = runStorage(history)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stderr, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (port.KeyValue, func(), error) {
	if cfg.Storage == "sqlite" {
		s, err := sqlitestore.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	s, err := jsonfile.NewStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

func runUpload(cfg *config.Config, history *service.HistoryService, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	format := fs.String("format", "text", "output format: text, markdown or srt")
	outPath := fs.String("o", "", "write the transcript to a file instead of stdout")
	useMock := fs.Bool("mock", false, "simulate the backend instead of calling the API")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("upload expects exactly one file argument")
	}
	path := fs.Arg(0)

	stat, err := os.Stat(path)
	if err != nil {
		return err
	}

	file := port.UploadFile{
		Name:        filepath.Base(path),
		Size:        stat.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}

	var transcriber port.Transcriber
	if *useMock {
		transcriber = mock.NewTranscriber(cfg.Language)
	} else {
		transcriber = api.NewClient(cfg.APIBaseURL)
	}

	bus := service.NewEventBus()
	controller := service.NewController(transcriber, history, bus)

	events := bus.Subscribe(controller.ID())
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		renderEvents(events)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = controller.Submit(ctx, file)
	bus.Unsubscribe(controller.ID(), events)
	<-renderDone
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if *outPath != "" {
		f, createErr := os.Create(*outPath)
		if createErr != nil {
			return createErr
		}
		defer f.Close()
		out = f
	}
	return controller.WriteTranscript(out, domain.OutputFormat(*format))
}

// renderEvents draws session progress on stderr so stdout stays clean for
// the transcript itself.
func renderEvents(events chan service.Event) {
	for ev := range events {
		switch ev.Type {
		case service.EventTypeStatus:
			switch ev.State {
			case service.StateUploading:
				fmt.Fprintln(os.Stderr, "uploading...")
			case service.StateProcessing:
				fmt.Fprintln(os.Stderr, "processing...")
			case service.StateCompleted:
				fmt.Fprintln(os.Stderr, "completed")
			case service.StateFailed:
				if ev.Err != nil {
					fmt.Fprintf(os.Stderr, "failed: %s\n", ev.Err.Message)
				}
			}
		case service.EventTypeProgress:
			if ev.Progress == nil {
				continue
			}
			line := fmt.Sprintf("%s %d%%", ev.Progress.Status, ev.Progress.Percentage)
			if ev.Progress.Speed != "" {
				line += " " + ev.Progress.Speed
			}
			if ev.Progress.RemainingTime != "" {
				line += " " + ev.Progress.RemainingTime
			}
			fmt.Fprintf(os.Stderr, "\r%s", line)
			if ev.Progress.Percentage >= 100 {
				fmt.Fprintln(os.Stderr)
			}
		}
	}
}

func runHistory(history *service.HistoryService, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "show":
			return runHistoryShow(history, args[1:])
		case "rm":
			if len(args) != 2 {
				return fmt.Errorf("history rm expects exactly one id argument")
			}
			return history.Delete(args[1])
		}
	}

	fs := flag.NewFlagSet("history", flag.ExitOnError)
	search := fs.String("search", "", "keywords to match against filenames and transcripts")
	date := fs.String("date", "all", "date window: all, today, thisWeek or thisMonth")
	sortOrder := fs.String("sort", "desc", "sort order: asc or desc")
	_ = fs.Parse(args)

	entries := history.Filter(domain.HistoryFilter{
		SearchTerm: *search,
		DateFilter: domain.DateFilter(*date),
		SortOrder:  domain.SortOrder(*sortOrder),
	})

	if len(entries) == 0 {
		fmt.Println("no transcriptions found")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%s  %s  %s\n    %s\n",
			entry.ID, entry.CreatedAt.Local().Format("2006-01-02 15:04"),
			entry.OriginalFilename, entry.PreviewText)
	}
	return nil
}

func runHistoryShow(history *service.HistoryService, args []string) error {
	fs := flag.NewFlagSet("history show", flag.ExitOnError)
	format := fs.String("format", "text", "output format: text, markdown or srt")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("history show expects exactly one id argument")
	}

	entry, err := history.GetByID(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Print(domain.ConvertFormat(entry.TranscriptionText, domain.OutputFormat(*format)))
	return nil
}

func runRemove(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("rm expects exactly one job id argument")
	}

	client := api.NewClient(cfg.APIBaseURL)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func runStorage(history *service.HistoryService) error {
	info, err := history.StorageStatusInfo()
	if err != nil {
		return err
	}
	fmt.Printf("history storage: %.2f MB / %.0f MB (%.2f%%) status=%s\n",
		info.UsedMB, info.LimitMB, info.Percentage, info.Status)
	return nil
}
