package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"acadsched/internal/core"
	"acadsched/internal/ics"
	"acadsched/internal/model"
	"acadsched/internal/reminder"
	"acadsched/internal/timetable"
	"acadsched/internal/timeutil"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: acadsched [-config path] <command>

commands:
  run                      run the reminder daemon
  import -file F [-format json|csv|pdf] [-semester S] [-section X] [-replace]
                           import a schedule file
  list                     print the stored schedule grouped by day
  export [-out F]          write the schedule as an iCalendar
  lead -minutes N          set the reminder lead time
  meridiem -value AM|PM    set the fallback reading for bare 12-hour times
                           (empty value reads them as 24-hour)`)
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./acadsched.yaml", "path to config file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := core.NewApp(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	code := 0
	switch args[0] {
	case "run":
		code = cmdRun(ctx, app)
	case "import":
		code = cmdImport(ctx, app, args[1:])
	case "list":
		code = cmdList(ctx, app)
	case "export":
		code = cmdExport(ctx, app, args[1:])
	case "lead":
		code = cmdLead(ctx, app, args[1:])
	case "meridiem":
		code = cmdMeridiem(ctx, app, args[1:])
	default:
		usage()
		code = 2
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = app.Stop(stopCtx)
	stopCancel()
	os.Exit(code)
}

func cmdRun(ctx context.Context, app *core.App) int {
	if err := app.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		return 1
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	return 0
}

func cmdImport(ctx context.Context, app *core.App, args []string) int {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "schedule file to import")
	format := fs.String("format", "", "json, csv or pdf (default: by extension)")
	semester := fs.String("semester", "", "target semester for pdf import (free text, digit 1-8)")
	section := fs.String("section", "", "target section for pdf import (empty = any)")
	replace := fs.Bool("replace", false, "clear the stored schedule before importing")
	_ = fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "import: -file is required")
		return 2
	}
	kind := *format
	if kind == "" {
		kind = formatFromExt(*file)
	}

	// Reminder triggers need the scheduler running.
	if err := app.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		return 1
	}

	if *replace {
		n, err := app.ClearItems(ctx)
		if err != nil {
			fmt.Println("clearing schedule failed:", err)
			return 1
		}
		if n > 0 {
			fmt.Printf("removed %d existing item(s)\n", n)
		}
	}

	var (
		res core.ImportResult
		err error
	)
	switch kind {
	case "json":
		var data []byte
		if data, err = os.ReadFile(*file); err == nil {
			res, err = app.ImportJSON(ctx, data)
		}
	case "csv":
		var f *os.File
		if f, err = os.Open(*file); err == nil {
			res, err = app.ImportCSV(ctx, f)
			_ = f.Close()
		}
	case "pdf":
		var data []byte
		if data, err = os.ReadFile(*file); err == nil {
			res, err = app.ImportPDF(ctx, data, *semester, *section)
		}
	default:
		fmt.Fprintf(os.Stderr, "import: unknown format %q\n", kind)
		return 2
	}

	if errors.Is(err, core.ErrUnreadableDocument) {
		fmt.Println("could not read any text from the document; try the JSON or CSV import instead")
		return 1
	}
	if errors.Is(err, timetable.ErrNoLectures) {
		fmt.Println("no lectures matched the requested semester and section")
		return 1
	}
	if err != nil {
		fmt.Println("import failed:", err)
		return 1
	}

	fmt.Printf("imported %d item(s), %d with reminders armed\n", res.Inserted, res.RemindersArmed)
	if res.PermissionDenied {
		fmt.Println("note: notifications are unavailable; reminders were disabled")
	}
	return 0
}

func cmdList(ctx context.Context, app *core.App) int {
	items, err := app.Store().List(ctx)
	if err != nil {
		fmt.Println("list failed:", err)
		return 1
	}
	if len(items) == 0 {
		fmt.Println("no schedule items")
		return 0
	}

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := timeutil.WeekdayRank(items[i].Day), timeutil.WeekdayRank(items[j].Day)
		if ri != rj {
			return ri < rj
		}
		return items[i].StartTime < items[j].StartTime
	})

	now := time.Now()
	day := ""
	for _, it := range items {
		if it.Day != day {
			day = it.Day
			fmt.Printf("%s\n", day)
		}
		line := fmt.Sprintf("  %s-%s  %s", it.StartTime, it.EndTime, it.Subject)
		if it.Room != "" {
			line += "  @" + it.Room
		}
		if it.Teacher != "" && it.Teacher != model.TeacherTBA {
			line += "  (" + it.Teacher + ")"
		}
		if next := reminder.NextOccurrence(it, now); !next.IsZero() {
			line += "  next " + next.Format("Mon Jan 2 15:04")
		}
		fmt.Println(line)
	}
	return 0
}

func cmdExport(ctx context.Context, app *core.App, args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "schedule.ics", "output file")
	_ = fs.Parse(args)

	items, err := app.Store().List(ctx)
	if err != nil {
		fmt.Println("export failed:", err)
		return 1
	}
	body := ics.Export(items, time.Now())
	if err := os.WriteFile(*out, []byte(body), 0o644); err != nil {
		fmt.Println("export failed:", err)
		return 1
	}
	fmt.Printf("wrote %s (%d item(s))\n", *out, len(items))
	return 0
}

func cmdLead(ctx context.Context, app *core.App, args []string) int {
	fs := flag.NewFlagSet("lead", flag.ExitOnError)
	minutes := fs.Int("minutes", -1, "lead time in minutes (0 disables the advance reminder)")
	_ = fs.Parse(args)

	if *minutes < 0 {
		fmt.Fprintln(os.Stderr, "lead: -minutes is required")
		return 2
	}
	if err := app.SetLeadMinutes(ctx, *minutes); err != nil {
		fmt.Println("setting lead time failed:", err)
		return 1
	}
	fmt.Printf("lead time set to %d minute(s)\n", *minutes)
	return 0
}

func cmdMeridiem(ctx context.Context, app *core.App, args []string) int {
	fs := flag.NewFlagSet("meridiem", flag.ExitOnError)
	value := fs.String("value", "", "AM, PM or empty for 24-hour")
	_ = fs.Parse(args)

	if err := app.SetDefaultMeridiem(ctx, *value); err != nil {
		fmt.Println("setting meridiem failed:", err)
		return 1
	}
	if *value == "" {
		fmt.Println("bare times now read as 24-hour")
	} else {
		fmt.Printf("bare 12-hour times now read as %s\n", strings.ToUpper(*value))
	}
	return 0
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".csv":
		return "csv"
	case ".pdf":
		return "pdf"
	}
	return ""
}
